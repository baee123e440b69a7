package term

import "strings"

// Grid is a 2D matrix of cells representing the visible terminal area.
// The cursor, margins, and character-set state live on the Emulator; the
// grid only knows how to move cells around. Origin (0,0) is top-left.
type Grid struct {
	cols  int
	rows  int
	cells [][]Cell
}

// NewGrid creates a grid filled with blank cells.
func NewGrid(cols, rows int) *Grid {
	g := &Grid{cols: cols, rows: rows}
	g.cells = make([][]Cell, rows)
	for y := range g.cells {
		g.cells[y] = blankRow(cols)
	}
	return g
}

func blankRow(cols int) []Cell {
	row := make([]Cell, cols)
	for x := range row {
		row[x] = EmptyCell()
	}
	return row
}

// Cols returns the grid width in cells.
func (g *Grid) Cols() int { return g.cols }

// Rows returns the grid height in cells.
func (g *Grid) Rows() int { return g.rows }

// Cell returns the cell at the given position, or a blank cell when out
// of bounds.
func (g *Grid) Cell(col, row int) Cell {
	if col < 0 || col >= g.cols || row < 0 || row >= g.rows {
		return EmptyCell()
	}
	return g.cells[row][col]
}

// SetCell stores a cell at the given position. Out-of-bounds writes are
// dropped.
func (g *Grid) SetCell(col, row int, cell Cell) {
	if col < 0 || col >= g.cols || row < 0 || row >= g.rows {
		return
	}
	g.cells[row][col] = cell
}

// Row returns the row slice. The caller must not hold the slice across
// grid mutations.
func (g *Grid) Row(row int) []Cell {
	return g.cells[row]
}

// CopyRow returns an independent copy of a row.
func (g *Grid) CopyRow(row int) []Cell {
	out := make([]Cell, g.cols)
	copy(out, g.cells[row])
	return out
}

// ScrollUp shifts rows [top, bottom) up by one, discarding the top row and
// inserting a blank row at the bottom. Returns the removed row.
func (g *Grid) ScrollUp(top, bottom int) []Cell {
	if top < 0 || bottom > g.rows || top >= bottom {
		return nil
	}
	removed := g.cells[top]
	copy(g.cells[top:bottom-1], g.cells[top+1:bottom])
	g.cells[bottom-1] = blankRow(g.cols)
	return removed
}

// ScrollDown shifts rows [top, bottom) down by one, discarding the bottom
// row and inserting a blank row at the top.
func (g *Grid) ScrollDown(top, bottom int) {
	if top < 0 || bottom > g.rows || top >= bottom {
		return
	}
	copy(g.cells[top+1:bottom], g.cells[top:bottom-1])
	g.cells[top] = blankRow(g.cols)
}

// ClearRow blanks an entire row.
func (g *Grid) ClearRow(row int) {
	if row < 0 || row >= g.rows {
		return
	}
	g.cells[row] = blankRow(g.cols)
}

// Clear blanks the entire grid.
func (g *Grid) Clear() {
	for y := range g.cells {
		g.cells[y] = blankRow(g.cols)
	}
}

// EraseToEOL blanks cells from col to the end of the row, inclusive.
func (g *Grid) EraseToEOL(row, col int) {
	if row < 0 || row >= g.rows {
		return
	}
	for x := max(col, 0); x < g.cols; x++ {
		g.cells[row][x] = EmptyCell()
	}
}

// EraseToBOL blanks cells from the start of the row to col, inclusive.
func (g *Grid) EraseToBOL(row, col int) {
	if row < 0 || row >= g.rows {
		return
	}
	for x := 0; x <= min(col, g.cols-1); x++ {
		g.cells[row][x] = EmptyCell()
	}
}

// InsertLines inserts count blank rows at row, pushing rows below down
// within [row, bottom).
func (g *Grid) InsertLines(row, count, bottom int) {
	for i := 0; i < count; i++ {
		if row >= 0 && row < bottom && bottom <= g.rows {
			copy(g.cells[row+1:bottom], g.cells[row:bottom-1])
			g.cells[row] = blankRow(g.cols)
		}
	}
}

// DeleteLines removes count rows at row, pulling rows below up within
// [row, bottom) and blanking the vacated bottom rows.
func (g *Grid) DeleteLines(row, count, bottom int) {
	for i := 0; i < count; i++ {
		if row >= 0 && row < bottom && bottom <= g.rows {
			copy(g.cells[row:bottom-1], g.cells[row+1:bottom])
			g.cells[bottom-1] = blankRow(g.cols)
		}
	}
}

// InsertChars inserts count blank cells at (col, row), shifting the rest of
// the row right; cells pushed past the right edge are lost.
func (g *Grid) InsertChars(row, col, count int) {
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		return
	}
	n := min(count, g.cols-col)
	line := g.cells[row]
	copy(line[col+n:], line[col:g.cols-n])
	for x := col; x < col+n; x++ {
		line[x] = EmptyCell()
	}
}

// DeleteChars removes count cells at (col, row), shifting the rest of the
// row left and blanking the vacated right edge.
func (g *Grid) DeleteChars(row, col, count int) {
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		return
	}
	n := min(count, g.cols-col)
	line := g.cells[row]
	copy(line[col:], line[col+n:])
	for x := g.cols - n; x < g.cols; x++ {
		line[x] = EmptyCell()
	}
}

// EraseChars blanks count cells starting at (col, row) without shifting.
func (g *Grid) EraseChars(row, col, count int) {
	if row < 0 || row >= g.rows {
		return
	}
	for x := col; x < min(col+count, g.cols); x++ {
		g.cells[row][x] = EmptyCell()
	}
}

// Resize adjusts the grid to the new dimensions. Rows are truncated from
// the bottom or padded with blanks; columns are truncated or padded on the
// right. Content is not reflowed.
func (g *Grid) Resize(cols, rows int) {
	for len(g.cells) > rows {
		g.cells = g.cells[:len(g.cells)-1]
	}
	for len(g.cells) < rows {
		g.cells = append(g.cells, blankRow(cols))
	}
	for y := range g.cells {
		row := g.cells[y]
		for len(row) > cols {
			row = row[:len(row)-1]
		}
		for len(row) < cols {
			row = append(row, EmptyCell())
		}
		g.cells[y] = row
	}
	g.cols = cols
	g.rows = rows
}

// RowText extracts the visible text of a row, skipping continuation cells
// and trimming trailing blanks.
func (g *Grid) RowText(row int) string {
	if row < 0 || row >= g.rows {
		return ""
	}
	return LineText(g.cells[row])
}

// LineText extracts the visible text of a row of cells.
func LineText(cells []Cell) string {
	var b strings.Builder
	for _, c := range cells {
		if c.Width == 0 {
			continue
		}
		if c.Rune == 0 {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(c.Rune)
	}
	return strings.TrimRight(b.String(), " ")
}
