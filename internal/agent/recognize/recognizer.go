package recognize

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/disintegration/imaging"

	"github.com/grahama1970/extractor-sub000/config"
	"github.com/grahama1970/extractor-sub000/internal/models"
	"github.com/grahama1970/extractor-sub000/internal/render"
	"github.com/grahama1970/extractor-sub000/internal/tables"
	"github.com/grahama1970/extractor-sub000/pkg/logger"
)

const minBlockConfidence = 50

// Recognizer detects table regions and their cell structure through the
// Textract TABLES analysis. It implements tables.RegionSource: cell
// polygons come back in absolute document pixels at the render DPI, the
// coordinate space the rest of the pipeline works in.
type Recognizer struct {
	client   *textract.Client
	renderer render.PageRenderer
	pre      Preprocessor
	cache    tables.Cache
	dpi      int
	log      logger.Logger
}

// New creates a recognizer. cache may be nil to disable result reuse.
func New(ctx context.Context, cfg *config.TextractConfig, renderer render.PageRenderer, cache tables.Cache, log logger.Logger) (*Recognizer, error) {
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	client := textract.NewFromConfig(awsCfg, func(o *textract.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &Recognizer{
		client:   client,
		renderer: renderer,
		pre:      DefaultChain(),
		cache:    cache,
		dpi:      150,
		log:      log.Named("recognize"),
	}, nil
}

// Regions renders each page, runs table analysis on it, and returns the
// detected regions with their unassembled cells. Cached pages skip the
// model call.
func (r *Recognizer) Regions(ctx context.Context, doc *models.Document, pdfPath string) ([]models.TableRegion, error) {
	docHash, err := fileHash(pdfPath)
	if err != nil {
		return nil, err
	}

	var regions []models.TableRegion
	for _, page := range doc.Pages {
		key := tables.PageKey(docHash, page.Index)
		if r.cache != nil {
			if cached, ok := r.cache.Lookup(ctx, key); ok {
				regions = append(regions, cached...)
				continue
			}
		}

		pageRegions, err := r.analyzePage(ctx, pdfPath, page)
		if err != nil {
			return nil, fmt.Errorf("failed to analyze page %d: %w", page.Index, err)
		}
		if r.cache != nil {
			r.cache.Store(ctx, key, pageRegions)
		}
		regions = append(regions, pageRegions...)
	}
	return regions, nil
}

func (r *Recognizer) analyzePage(ctx context.Context, pdfPath string, page *models.Page) ([]models.TableRegion, error) {
	img, err := r.renderer.RenderPage(ctx, pdfPath, page.Index+1, r.dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}

	img, err = r.pre.Process(img)
	if err != nil {
		return nil, fmt.Errorf("failed to preprocess page image: %w", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode page image: %w", err)
	}

	result, err := r.client.AnalyzeDocument(ctx, &textract.AnalyzeDocumentInput{
		Document:     &types.Document{Bytes: buf.Bytes()},
		FeatureTypes: []types.FeatureType{types.FeatureTypeTables},
	})
	if err != nil {
		return nil, fmt.Errorf("table analysis request failed: %w", err)
	}

	bounds := img.Bounds()
	regions := r.parseBlocks(result.Blocks, page.Index, float64(bounds.Dx()), float64(bounds.Dy()))

	r.log.Debug("page analyzed",
		logger.Int("page", page.Index),
		logger.Int("regions", len(regions)))

	return regions, nil
}

// parseBlocks walks the block forest: TABLE blocks anchor regions, their
// CELL children carry grid indices and spans, and the cells' WORD
// children carry text. Geometry comes back as page-relative ratios and
// is scaled to absolute document pixels here.
func (r *Recognizer) parseBlocks(blocks []types.Block, pageIndex int, width, height float64) []models.TableRegion {
	byID := make(map[string]types.Block, len(blocks))
	for _, b := range blocks {
		if b.Id != nil {
			byID[*b.Id] = b
		}
	}

	var regions []models.TableRegion
	for _, block := range blocks {
		if block.BlockType != types.BlockTypeTable {
			continue
		}
		if block.Confidence != nil && *block.Confidence < minBlockConfidence {
			continue
		}

		region := models.TableRegion{
			PageIndex: pageIndex,
			BBox:      blockBBox(block, width, height),
		}

		for _, id := range childIDs(block) {
			cell, ok := byID[id]
			if !ok || cell.BlockType != types.BlockTypeCell {
				continue
			}
			region.RawCells = append(region.RawCells, r.rawCell(cell, byID, width, height))
		}

		regions = append(regions, region)
	}
	return regions
}

func (r *Recognizer) rawCell(cell types.Block, byID map[string]types.Block, width, height float64) models.RawCell {
	raw := models.RawCell{
		Row:     int(deref(cell.RowIndex)) - 1,
		Col:     int(deref(cell.ColumnIndex)) - 1,
		RowSpan: int(deref(cell.RowSpan)),
		ColSpan: int(deref(cell.ColumnSpan)),
		Polygon: models.PolygonFromBBox(blockBBox(cell, width, height)),
	}
	if raw.Row < 0 {
		raw.Row = 0
	}
	if raw.Col < 0 {
		raw.Col = 0
	}

	for _, et := range cell.EntityTypes {
		if et == types.EntityTypeColumnHeader {
			raw.IsHeader = true
		}
	}

	for _, id := range childIDs(cell) {
		word, ok := byID[id]
		if !ok || word.BlockType != types.BlockTypeWord || word.Text == nil {
			continue
		}
		if word.Confidence != nil && *word.Confidence < minBlockConfidence {
			continue
		}
		raw.Lines = append(raw.Lines, *word.Text)
	}

	return raw
}

func childIDs(block types.Block) []string {
	for _, rel := range block.Relationships {
		if rel.Type == types.RelationshipTypeChild {
			return rel.Ids
		}
	}
	return nil
}

func blockBBox(block types.Block, width, height float64) models.BBox {
	if block.Geometry == nil || block.Geometry.BoundingBox == nil {
		return models.BBox{}
	}
	box := block.Geometry.BoundingBox
	left := float64(box.Left) * width
	top := float64(box.Top) * height
	return models.NewBBox(left, top, left+float64(box.Width)*width, top+float64(box.Height)*height)
}

func deref(v *int32) int32 {
	if v == nil {
		return 1
	}
	return *v
}

// fileHash identifies the document content for cache keys.
func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
