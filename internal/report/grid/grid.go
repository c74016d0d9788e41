// Package grid is the row/cell matrix behind tabular reports.
//
// Every row always has the same number of cells. Row 0 conventionally holds the
// header cells. Edits that reference unknown ids or out-of-range columns, or that
// would shrink the grid below MinRows x MinCols, are no-ops.
package grid

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	MinRows = 2
	MinCols = 2

	DefaultDataRows = 5
	DefaultCols     = 5
)

// Position places an inserted row or column relative to its anchor.
type Position string

const (
	Before Position = "before"
	After  Position = "after"
)

// Cell is a single grid cell.
type Cell struct {
	ID       string `json:"id"`
	Value    string `json:"value"`
	IsHeader bool   `json:"isHeader"`
}

// Row is an ordered list of cells.
type Row struct {
	ID    string `json:"id"`
	Cells []Cell `json:"cells"`
}

// Grid is an ordered list of rows.
type Grid struct {
	Rows []Row `json:"rows"`
}

// New returns the default grid: one header row plus DefaultDataRows data rows,
// DefaultCols columns wide.
func New() *Grid {
	return NewSized(DefaultDataRows, DefaultCols)
}

// NewSized returns a grid with a header row labelled "Column N" and dataRows empty
// data rows. Sizes below the minimum shape are raised to it.
func NewSized(dataRows, cols int) *Grid {
	if dataRows < MinRows-1 {
		dataRows = MinRows - 1
	}
	if cols < MinCols {
		cols = MinCols
	}

	g := &Grid{Rows: make([]Row, 0, dataRows+1)}
	header := Row{ID: newID(), Cells: make([]Cell, cols)}
	for c := range header.Cells {
		header.Cells[c] = Cell{ID: newID(), Value: fmt.Sprintf("Column %d", c+1), IsHeader: true}
	}
	g.Rows = append(g.Rows, header)
	for r := 0; r < dataRows; r++ {
		g.Rows = append(g.Rows, newRow(cols, false))
	}
	return g
}

// Shape returns the row and column counts.
func (g *Grid) Shape() (rows, cols int) {
	return len(g.Rows), g.ColumnCount()
}

// ColumnCount returns the number of cells per row.
func (g *Grid) ColumnCount() int {
	if len(g.Rows) == 0 {
		return 0
	}
	return len(g.Rows[0].Cells)
}

// SetCellValue replaces one cell's value. Returns false if the cell does not exist.
func (g *Grid) SetCellValue(rowID, cellID, value string) bool {
	r := g.rowIndex(rowID)
	if r < 0 {
		return false
	}
	for c := range g.Rows[r].Cells {
		if g.Rows[r].Cells[c].ID == cellID {
			g.Rows[r].Cells[c].Value = value
			return true
		}
	}
	return false
}

// InsertRow adds an empty data row before or after the anchor row.
func (g *Grid) InsertRow(pos Position, anchorRowID string) bool {
	r := g.rowIndex(anchorRowID)
	if r < 0 || !pos.valid() {
		return false
	}
	at := r
	if pos == After {
		at = r + 1
	}

	row := newRow(g.ColumnCount(), false)
	g.Rows = append(g.Rows, Row{})
	copy(g.Rows[at+1:], g.Rows[at:])
	g.Rows[at] = row
	return true
}

// InsertColumn adds one empty cell to every row before or after column index.
// The new cell is a header cell in header rows.
func (g *Grid) InsertColumn(pos Position, index int) bool {
	if index < 0 || index >= g.ColumnCount() || !pos.valid() {
		return false
	}
	at := index
	if pos == After {
		at = index + 1
	}

	for r := range g.Rows {
		cell := Cell{ID: newID(), IsHeader: g.Rows[r].isHeader()}
		cells := append(g.Rows[r].Cells, Cell{})
		copy(cells[at+1:], cells[at:])
		cells[at] = cell
		g.Rows[r].Cells = cells
	}
	return true
}

// DeleteRow removes a row unless fewer than MinRows would remain.
func (g *Grid) DeleteRow(rowID string) bool {
	r := g.rowIndex(rowID)
	if r < 0 || len(g.Rows) <= MinRows {
		return false
	}
	g.Rows = append(g.Rows[:r], g.Rows[r+1:]...)
	return true
}

// DeleteColumn removes a column unless fewer than MinCols would remain.
func (g *Grid) DeleteColumn(index int) bool {
	cols := g.ColumnCount()
	if index < 0 || index >= cols || cols <= MinCols {
		return false
	}
	for r := range g.Rows {
		g.Rows[r].Cells = append(g.Rows[r].Cells[:index], g.Rows[r].Cells[index+1:]...)
	}
	return true
}

// CellAt returns the cell at (row, col).
func (g *Grid) CellAt(row, col int) (Cell, bool) {
	if row < 0 || row >= len(g.Rows) || col < 0 || col >= len(g.Rows[row].Cells) {
		return Cell{}, false
	}
	return g.Rows[row].Cells[col], true
}

func (g *Grid) rowIndex(rowID string) int {
	for i := range g.Rows {
		if g.Rows[i].ID == rowID {
			return i
		}
	}
	return -1
}

func (p Position) valid() bool {
	return p == Before || p == After
}

// isHeader reports whether the row holds header cells.
func (r Row) isHeader() bool {
	return len(r.Cells) > 0 && r.Cells[0].IsHeader
}

func newRow(cols int, header bool) Row {
	row := Row{ID: newID(), Cells: make([]Cell, cols)}
	for c := range row.Cells {
		row.Cells[c] = Cell{ID: newID(), IsHeader: header}
	}
	return row
}

func newID() string {
	return uuid.New().String()
}
