package models

import "math"

// Point is a 2D point in absolute document coordinates (origin top-left,
// Y grows downward).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BBox is an axis-aligned bounding box in absolute document coordinates.
// Top < Bottom because the document origin is the top-left corner.
type BBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// NewBBox creates a bounding box, normalizing flipped edges.
func NewBBox(left, top, right, bottom float64) BBox {
	return BBox{
		Left:   math.Min(left, right),
		Top:    math.Min(top, bottom),
		Right:  math.Max(left, right),
		Bottom: math.Max(top, bottom),
	}
}

// Width returns the horizontal extent of the box.
func (b BBox) Width() float64 { return b.Right - b.Left }

// Height returns the vertical extent of the box.
func (b BBox) Height() float64 { return b.Bottom - b.Top }

// Area returns the area of the box.
func (b BBox) Area() float64 { return b.Width() * b.Height() }

// IsEmpty reports whether the box has no positive area.
func (b BBox) IsEmpty() bool { return b.Width() <= 0 || b.Height() <= 0 }

// Center returns the center point of the box.
func (b BBox) Center() Point {
	return Point{X: (b.Left + b.Right) / 2, Y: (b.Top + b.Bottom) / 2}
}

// Contains reports whether the point lies inside the box (edges inclusive).
func (b BBox) Contains(p Point) bool {
	return p.X >= b.Left && p.X <= b.Right && p.Y >= b.Top && p.Y <= b.Bottom
}

// Intersects reports whether the two boxes overlap.
func (b BBox) Intersects(other BBox) bool {
	return !(b.Right < other.Left || b.Left > other.Right ||
		b.Bottom < other.Top || b.Top > other.Bottom)
}

// Intersection returns the overlapping region of the two boxes, or a zero
// box when they do not overlap.
func (b BBox) Intersection(other BBox) BBox {
	if !b.Intersects(other) {
		return BBox{}
	}
	return BBox{
		Left:   math.Max(b.Left, other.Left),
		Top:    math.Max(b.Top, other.Top),
		Right:  math.Min(b.Right, other.Right),
		Bottom: math.Min(b.Bottom, other.Bottom),
	}
}

// IntersectionArea returns the area shared by the two boxes.
func (b BBox) IntersectionArea(other BBox) float64 {
	inter := b.Intersection(other)
	if inter.IsEmpty() {
		return 0
	}
	return inter.Area()
}

// Union returns the smallest box covering both boxes.
func (b BBox) Union(other BBox) BBox {
	if b.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return b
	}
	return BBox{
		Left:   math.Min(b.Left, other.Left),
		Top:    math.Min(b.Top, other.Top),
		Right:  math.Max(b.Right, other.Right),
		Bottom: math.Max(b.Bottom, other.Bottom),
	}
}

// OverlapRatio returns the intersection area divided by the smaller box's
// area, between 0 and 1.
func (b BBox) OverlapRatio(other BBox) float64 {
	minArea := math.Min(b.Area(), other.Area())
	if minArea <= 0 {
		return 0
	}
	return b.IntersectionArea(other) / minArea
}

// FracBox is a bounding box expressed as page fractions with the PDF
// origin at the bottom-left corner, the coordinate space the fallback
// extraction engine operates in.
type FracBox struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// ToPageFraction converts an absolute document box to page-fraction
// coordinates. The vertical axis is flipped: the document origin is
// top-left while the engine's origin is bottom-left.
func (b BBox) ToPageFraction(pageWidth, pageHeight float64) FracBox {
	return FracBox{
		Left:   b.Left / pageWidth,
		Top:    (pageHeight - b.Bottom) / pageHeight,
		Right:  b.Right / pageWidth,
		Bottom: (pageHeight - b.Top) / pageHeight,
	}
}

// FromPageFraction converts a page-fraction box back to absolute document
// coordinates. Inverse of BBox.ToPageFraction.
func FromPageFraction(f FracBox, pageWidth, pageHeight float64) BBox {
	return BBox{
		Left:   f.Left * pageWidth,
		Top:    pageHeight - f.Bottom*pageHeight,
		Right:  f.Right * pageWidth,
		Bottom: pageHeight - f.Top*pageHeight,
	}
}

// Polygon is an ordered list of vertices in absolute document coordinates.
type Polygon []Point

// PolygonFromBBox returns the four corners of a box in clockwise order.
func PolygonFromBBox(b BBox) Polygon {
	return Polygon{
		{X: b.Left, Y: b.Top},
		{X: b.Right, Y: b.Top},
		{X: b.Right, Y: b.Bottom},
		{X: b.Left, Y: b.Bottom},
	}
}

// BoundingBox returns the axis-aligned bounding box of the polygon.
func (p Polygon) BoundingBox() BBox {
	if len(p) == 0 {
		return BBox{}
	}
	box := BBox{Left: p[0].X, Top: p[0].Y, Right: p[0].X, Bottom: p[0].Y}
	for _, pt := range p[1:] {
		box.Left = math.Min(box.Left, pt.X)
		box.Top = math.Min(box.Top, pt.Y)
		box.Right = math.Max(box.Right, pt.X)
		box.Bottom = math.Max(box.Bottom, pt.Y)
	}
	return box
}

// Translate returns a copy of the polygon shifted by (dx, dy).
func (p Polygon) Translate(dx, dy float64) Polygon {
	out := make(Polygon, len(p))
	for i, pt := range p {
		out[i] = Point{X: pt.X + dx, Y: pt.Y + dy}
	}
	return out
}
