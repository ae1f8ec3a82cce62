package models

import "sort"

// TextLine is one extracted text line with its bounding box, in the same
// coordinate space as the table cells it may be assigned to.
type TextLine struct {
	BBox BBox   `json:"bbox"`
	Text string `json:"text"`
}

// Page is one document page. Width/Height are in absolute document units
// (pixels at the render DPI). Tables are kept in reading order.
type Page struct {
	Index     int        `json:"index"`
	Width     float64    `json:"width"`
	Height    float64    `json:"height"`
	Tables    []*Table   `json:"tables"`
	TextLines []TextLine `json:"-"`
}

// AddTable appends a table block to the page.
func (p *Page) AddTable(t *Table) {
	t.PageIndex = p.Index
	p.Tables = append(p.Tables, t)
}

// RemoveTable removes the table with the given id from the page. Returns
// false if the table is not on this page.
func (p *Page) RemoveTable(id string) bool {
	for i, t := range p.Tables {
		if t.ID == id {
			p.Tables = append(p.Tables[:i], p.Tables[i+1:]...)
			return true
		}
	}
	return false
}

// Document is the in-memory document tree mutated by the table pipeline.
// A document is private to one conversion task; it is never shared across
// concurrently running conversions.
type Document struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Pages []*Page `json:"pages"`
}

// PageAt returns the page with the given index, or nil.
func (d *Document) PageAt(index int) *Page {
	for _, p := range d.Pages {
		if p.Index == index {
			return p
		}
	}
	return nil
}

// TablesInOrder returns every table in reading order: by page, then top to
// bottom, then left to right.
func (d *Document) TablesInOrder() []*Table {
	var tables []*Table
	for _, page := range d.Pages {
		onPage := make([]*Table, len(page.Tables))
		copy(onPage, page.Tables)
		sort.SliceStable(onPage, func(i, j int) bool {
			if onPage[i].BBox.Top != onPage[j].BBox.Top {
				return onPage[i].BBox.Top < onPage[j].BBox.Top
			}
			return onPage[i].BBox.Left < onPage[j].BBox.Left
		})
		tables = append(tables, onPage...)
	}
	return tables
}

// TableCount returns the number of live tables in the document.
func (d *Document) TableCount() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Tables)
	}
	return n
}
