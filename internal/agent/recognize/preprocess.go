package recognize

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Preprocessor transforms a rendered page image before it is sent to
// the recognition model.
type Preprocessor interface {
	Process(img image.Image) (image.Image, error)
}

// GrayscaleProcessor removes color information.
type GrayscaleProcessor struct{}

func NewGrayscaleProcessor() *GrayscaleProcessor { return &GrayscaleProcessor{} }

func (p *GrayscaleProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Grayscale(img), nil
}

// ContrastProcessor stretches contrast so faint ruling lines and light
// scans survive recognition.
type ContrastProcessor struct {
	amount float64
}

func NewContrastProcessor(amount float64) *ContrastProcessor {
	return &ContrastProcessor{amount: amount}
}

func (p *ContrastProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.AdjustContrast(img, p.amount), nil
}

// SharpenProcessor sharpens glyph edges on low-DPI renders.
type SharpenProcessor struct {
	strength float64
}

func NewSharpenProcessor(strength float64) *SharpenProcessor {
	return &SharpenProcessor{strength: strength}
}

func (p *SharpenProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Sharpen(img, p.strength), nil
}

// Chain applies processors in order.
type Chain struct {
	steps []Preprocessor
}

// NewChain builds a preprocessing chain.
func NewChain(steps ...Preprocessor) *Chain {
	return &Chain{steps: steps}
}

// DefaultChain is the standard chain for table recognition input.
func DefaultChain() *Chain {
	return NewChain(
		NewGrayscaleProcessor(),
		NewContrastProcessor(20),
		NewSharpenProcessor(0.5),
	)
}

func (c *Chain) Process(img image.Image) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}
	var err error
	for _, step := range c.steps {
		img, err = step.Process(img)
		if err != nil {
			return nil, err
		}
	}
	return img, nil
}
