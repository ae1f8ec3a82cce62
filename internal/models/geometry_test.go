package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBBoxNormalizesFlippedEdges(t *testing.T) {
	b := NewBBox(100, 200, 10, 20)

	assert.Equal(t, BBox{Left: 10, Top: 20, Right: 100, Bottom: 200}, b)
}

func TestBBoxIntersection(t *testing.T) {
	a := NewBBox(0, 0, 100, 100)
	b := NewBBox(50, 50, 150, 150)

	inter := a.Intersection(b)
	assert.Equal(t, NewBBox(50, 50, 100, 100), inter)
	assert.Equal(t, 2500.0, a.IntersectionArea(b))

	far := NewBBox(200, 200, 300, 300)
	assert.True(t, a.Intersection(far).IsEmpty())
	assert.Equal(t, 0.0, a.IntersectionArea(far))
}

func TestBBoxUnion(t *testing.T) {
	a := NewBBox(50, 100, 200, 300)
	b := NewBBox(150, 200, 350, 250)

	assert.Equal(t, NewBBox(50, 100, 350, 300), a.Union(b))

	// Union with an empty box returns the other box unchanged.
	assert.Equal(t, a, a.Union(BBox{}))
	assert.Equal(t, a, BBox{}.Union(a))
}

func TestBBoxOverlapRatio(t *testing.T) {
	a := NewBBox(0, 0, 100, 100)
	b := NewBBox(0, 0, 50, 100)

	// b lies entirely inside a.
	assert.Equal(t, 1.0, a.OverlapRatio(b))
	assert.Equal(t, 0.0, a.OverlapRatio(NewBBox(200, 0, 300, 100)))
}

func TestPageFractionRoundTrip(t *testing.T) {
	pageW, pageH := 612.0, 792.0
	b := NewBBox(61.2, 79.2, 306, 712.8)

	frac := b.ToPageFraction(pageW, pageH)
	back := FromPageFraction(frac, pageW, pageH)

	assert.InDelta(t, b.Left, back.Left, 1e-9)
	assert.InDelta(t, b.Top, back.Top, 1e-9)
	assert.InDelta(t, b.Right, back.Right, 1e-9)
	assert.InDelta(t, b.Bottom, back.Bottom, 1e-9)
}

func TestToPageFractionFlipsVerticalAxis(t *testing.T) {
	// A box at the top of the document maps near 1.0 in PDF fractions.
	b := NewBBox(0, 0, 100, 100)
	frac := b.ToPageFraction(1000, 1000)

	assert.InDelta(t, 0.9, frac.Top, 1e-9)
	assert.InDelta(t, 1.0, frac.Bottom, 1e-9)
}

func TestPolygonBoundingBox(t *testing.T) {
	p := Polygon{{X: 10, Y: 30}, {X: 50, Y: 5}, {X: 20, Y: 40}}

	assert.Equal(t, BBox{Left: 10, Top: 5, Right: 50, Bottom: 40}, p.BoundingBox())
	assert.Equal(t, BBox{}, Polygon{}.BoundingBox())
}

func TestPolygonFromBBoxRoundTrip(t *testing.T) {
	b := NewBBox(10, 20, 30, 40)
	p := PolygonFromBBox(b)

	require.Len(t, p, 4)
	assert.Equal(t, b, p.BoundingBox())
}

func TestPolygonTranslate(t *testing.T) {
	p := Polygon{{X: 1, Y: 2}}.Translate(10, -2)

	assert.Equal(t, Polygon{{X: 11, Y: 0}}, p)
}
