package render

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
)

// PageRenderer rasterizes one PDF page. Implementations are used both to
// produce recognition input images and to feed the fallback engine's
// ruling-line detection on scanned pages.
type PageRenderer interface {
	// RenderPage renders a 1-indexed page at the given DPI.
	RenderPage(ctx context.Context, pdfPath string, page int, dpi int) (image.Image, error)
	// Available reports whether the renderer's native dependency is
	// installed.
	Available() error
}

// PdftoppmRenderer shells out to poppler's pdftoppm binary.
type PdftoppmRenderer struct {
	binary string
}

// NewPdftoppmRenderer creates a renderer using the pdftoppm binary on PATH.
func NewPdftoppmRenderer() *PdftoppmRenderer {
	return &PdftoppmRenderer{binary: "pdftoppm"}
}

// Available checks that pdftoppm can be found on PATH.
func (r *PdftoppmRenderer) Available() error {
	if _, err := exec.LookPath(r.binary); err != nil {
		return fmt.Errorf("pdftoppm not found: %w", err)
	}
	return nil
}

// RenderPage renders the page to a temporary PNG and decodes it.
func (r *PdftoppmRenderer) RenderPage(ctx context.Context, pdfPath string, page int, dpi int) (image.Image, error) {
	if err := r.Available(); err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "pagerender")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, r.binary,
		"-png",
		"-r", strconv.Itoa(dpi),
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-singlefile",
		pdfPath,
		prefix,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed for page %d: %w: %s", page, err, string(out))
	}

	img, err := imaging.Open(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("failed to decode rendered page %d: %w", page, err)
	}
	return img, nil
}
