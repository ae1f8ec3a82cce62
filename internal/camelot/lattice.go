package camelot

import (
	"image"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/ledongthuc/pdf"
)

// ruling is one detected grid line. For horizontal rulings pos is the Y
// coordinate and start/end span X; for vertical rulings pos is X and
// start/end span Y. All values are PDF points, bottom-left origin.
type ruling struct {
	pos   float64
	start float64
	end   float64
}

func (r ruling) length() float64 { return r.end - r.start }

// rulingsFromRects derives grid lines from drawn rectangles. Thin
// rectangles are rulings themselves; larger rectangles (cell borders)
// contribute their four edges.
func rulingsFromRects(rects []pdf.Rect, lineWidth float64) (horiz, vert []ruling) {
	for _, rc := range rects {
		w := rc.Max.X - rc.Min.X
		h := rc.Max.Y - rc.Min.Y

		switch {
		case h <= lineWidth && w > lineWidth:
			horiz = append(horiz, ruling{pos: (rc.Min.Y + rc.Max.Y) / 2, start: rc.Min.X, end: rc.Max.X})
		case w <= lineWidth && h > lineWidth:
			vert = append(vert, ruling{pos: (rc.Min.X + rc.Max.X) / 2, start: rc.Min.Y, end: rc.Max.Y})
		case w > lineWidth && h > lineWidth:
			horiz = append(horiz,
				ruling{pos: rc.Min.Y, start: rc.Min.X, end: rc.Max.X},
				ruling{pos: rc.Max.Y, start: rc.Min.X, end: rc.Max.X})
			vert = append(vert,
				ruling{pos: rc.Min.X, start: rc.Min.Y, end: rc.Max.Y},
				ruling{pos: rc.Max.X, start: rc.Min.Y, end: rc.Max.Y})
		}
	}
	return horiz, vert
}

// rulingsFromImage detects ruling lines in a rendered page image by
// scanning for dark pixel runs, the raster equivalent of morphological
// line detection. lineScale divides the image dimension to obtain the
// minimum run length: larger values detect shorter lines.
func rulingsFromImage(img image.Image, lineScale int) (horiz, vert []ruling) {
	if lineScale < 1 {
		lineScale = 15
	}

	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	minHLen := w / lineScale
	minVLen := h / lineScale
	const darkThreshold = 128

	dark := func(x, y int) bool {
		r, _, _, _ := gray.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
		return uint8(r>>8) < darkThreshold
	}

	// Horizontal runs per row.
	for y := 0; y < h; y++ {
		runStart := -1
		for x := 0; x <= w; x++ {
			if x < w && dark(x, y) {
				if runStart < 0 {
					runStart = x
				}
				continue
			}
			if runStart >= 0 && x-runStart >= minHLen {
				horiz = append(horiz, ruling{pos: float64(y), start: float64(runStart), end: float64(x)})
			}
			runStart = -1
		}
	}

	// Vertical runs per column.
	for x := 0; x < w; x++ {
		runStart := -1
		for y := 0; y <= h; y++ {
			if y < h && dark(x, y) {
				if runStart < 0 {
					runStart = y
				}
				continue
			}
			if runStart >= 0 && y-runStart >= minVLen {
				vert = append(vert, ruling{pos: float64(x), start: float64(runStart), end: float64(y)})
			}
			runStart = -1
		}
	}

	return horiz, vert
}

// imageRulingsToPage converts image-pixel rulings to PDF points,
// flipping the vertical axis (image origin is top-left).
func imageRulingsToPage(horiz, vert []ruling, imgW, imgH int, pageW, pageH float64) (ph, pv []ruling) {
	if imgW == 0 || imgH == 0 {
		return nil, nil
	}
	sx := pageW / float64(imgW)
	sy := pageH / float64(imgH)

	for _, r := range horiz {
		ph = append(ph, ruling{
			pos:   pageH - r.pos*sy,
			start: r.start * sx,
			end:   r.end * sx,
		})
	}
	for _, r := range vert {
		pv = append(pv, ruling{
			pos:   r.pos * sx,
			start: pageH - r.end*sy,
			end:   pageH - r.start*sy,
		})
	}
	return ph, pv
}

// groupRulings clusters rulings aligned within tolerance into single
// boundary positions, averaging the position and merging extents.
func groupRulings(rulings []ruling, tolerance float64) []ruling {
	if len(rulings) == 0 {
		return nil
	}

	sorted := make([]ruling, len(rulings))
	copy(sorted, rulings)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].pos < sorted[j].pos })

	var groups []ruling
	cur := sorted[0]
	count := 1

	for _, r := range sorted[1:] {
		if r.pos-cur.pos <= tolerance {
			cur.pos = (cur.pos*float64(count) + r.pos) / float64(count+1)
			count++
			if r.start < cur.start {
				cur.start = r.start
			}
			if r.end > cur.end {
				cur.end = r.end
			}
		} else {
			groups = append(groups, cur)
			cur = r
			count = 1
		}
	}
	groups = append(groups, cur)

	return groups
}

// latticeBoundaries derives row and column boundary positions for a
// region from grouped rulings. Boundaries must span at least half of the
// region in the perpendicular direction to count, which filters out
// underlines and stray marks.
func latticeBoundaries(horiz, vert []ruling, xMin, yMin, xMax, yMax float64) (rowBounds, colBounds []float64) {
	const tolerance = 2.0

	inRegion := func(r ruling, lo, hi float64) bool {
		return r.pos >= lo-tolerance && r.pos <= hi+tolerance
	}

	var hIn, vIn []ruling
	for _, r := range horiz {
		if inRegion(r, yMin, yMax) {
			hIn = append(hIn, r)
		}
	}
	for _, r := range vert {
		if inRegion(r, xMin, xMax) {
			vIn = append(vIn, r)
		}
	}

	minHSpan := (xMax - xMin) * 0.5
	minVSpan := (yMax - yMin) * 0.5

	for _, g := range groupRulings(hIn, tolerance) {
		if g.length() >= minHSpan {
			rowBounds = append(rowBounds, g.pos)
		}
	}
	for _, g := range groupRulings(vIn, tolerance) {
		if g.length() >= minVSpan {
			colBounds = append(colBounds, g.pos)
		}
	}

	// Rows top to bottom in PDF coordinates (descending Y).
	sort.Sort(sort.Reverse(sort.Float64Slice(rowBounds)))
	sort.Float64s(colBounds)

	return rowBounds, colBounds
}
