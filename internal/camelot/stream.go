package camelot

import "sort"

// streamRows clusters words into text rows by baseline proximity.
// rowTol is the maximum baseline distance within one row.
func streamRows(words []Word, rowTol float64) [][]Word {
	if len(words) == 0 {
		return nil
	}
	if rowTol <= 0 {
		rowTol = 2
	}

	sorted := make([]Word, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	var rows [][]Word
	cur := []Word{sorted[0]}
	curY := sorted[0].Y

	for _, w := range sorted[1:] {
		if curY-w.Y <= rowTol {
			cur = append(cur, w)
			continue
		}
		rows = append(rows, sortRow(cur))
		cur = []Word{w}
		curY = w.Y
	}
	rows = append(rows, sortRow(cur))

	return rows
}

func sortRow(row []Word) []Word {
	sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
	return row
}

// streamBoundaries infers row and column boundaries from text alignment
// alone. Column separators are the gaps left uncovered when the words'
// horizontal intervals are projected onto the X axis; edgeTol controls
// how aggressively nearby intervals are fused into one column.
func streamBoundaries(words []Word, rowTol, edgeTol float64) (rowBounds, colBounds []float64) {
	rows := streamRows(words, rowTol)
	if len(rows) == 0 {
		return nil, nil
	}

	// Row boundaries: midpoints between consecutive baselines, plus the
	// outer top and bottom edges.
	tops := make([]float64, len(rows))
	bottoms := make([]float64, len(rows))
	for i, row := range rows {
		top, bottom := row[0].Top(), row[0].Y
		for _, w := range row[1:] {
			if w.Top() > top {
				top = w.Top()
			}
			if w.Y < bottom {
				bottom = w.Y
			}
		}
		tops[i] = top
		bottoms[i] = bottom
	}

	rowBounds = append(rowBounds, tops[0]+1)
	for i := 1; i < len(rows); i++ {
		rowBounds = append(rowBounds, (bottoms[i-1]+tops[i])/2)
	}
	rowBounds = append(rowBounds, bottoms[len(rows)-1]-1)

	// Column boundaries: merge occupied X intervals, then place
	// separators in the midpoints of the remaining gaps.
	type interval struct{ lo, hi float64 }
	var intervals []interval
	for _, w := range words {
		intervals = append(intervals, interval{lo: w.X, hi: w.Right()})
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].lo < intervals[j].lo })

	gapTol := edgeTol / 25
	if gapTol < 2 {
		gapTol = 2
	}

	var merged []interval
	cur := intervals[0]
	for _, iv := range intervals[1:] {
		if iv.lo-cur.hi <= gapTol {
			if iv.hi > cur.hi {
				cur.hi = iv.hi
			}
			continue
		}
		merged = append(merged, cur)
		cur = iv
	}
	merged = append(merged, cur)

	colBounds = append(colBounds, merged[0].lo-1)
	for i := 1; i < len(merged); i++ {
		colBounds = append(colBounds, (merged[i-1].hi+merged[i].lo)/2)
	}
	colBounds = append(colBounds, merged[len(merged)-1].hi+1)

	return rowBounds, colBounds
}
