package render

const epsilon = 0.001

type placement struct {
	Page int
	X, Y float64
}

// layout flows blocks across pages. A block that does not fit in the rest of
// the row wraps to the next row; a block that does not fit below the last row
// starts a new page.
func layout(doc Document) []placement {
	out := make([]placement, 0, len(doc.Blocks))
	if len(doc.Blocks) == 0 {
		return out
	}

	left, top := doc.Margin, doc.Margin
	right := doc.Page.Width - doc.Margin
	bottom := doc.Page.Height - doc.Margin

	page, x, y, rowHeight := 0, left, top, 0.0
	for _, block := range doc.Blocks {
		w, h := block.Size.Width, block.Size.Height

		if x > left+epsilon && x+w > right+epsilon {
			x = left
			y += rowHeight + doc.Gap
			rowHeight = 0
		}
		if y > top+epsilon && y+h > bottom+epsilon {
			page++
			x, y, rowHeight = left, top, 0
		}

		out = append(out, placement{Page: page, X: x, Y: y})
		x += w + doc.Gap
		if h > rowHeight {
			rowHeight = h
		}
	}
	return out
}
