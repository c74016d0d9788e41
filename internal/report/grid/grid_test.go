package grid

import (
	"encoding/json"
	"reflect"
	"testing"
)

// fromValues builds a grid whose first row is the header row.
func fromValues(values [][]string) *Grid {
	g := &Grid{}
	for r, rowValues := range values {
		row := Row{ID: newID()}
		for _, v := range rowValues {
			row.Cells = append(row.Cells, Cell{ID: newID(), Value: v, IsHeader: r == 0})
		}
		g.Rows = append(g.Rows, row)
	}
	return g
}

func intPtr(v int) *int { return &v }

// values returns the cell values row by row.
func values(g *Grid) [][]string {
	out := make([][]string, len(g.Rows))
	for r, row := range g.Rows {
		out[r] = make([]string, len(row.Cells))
		for c, cell := range row.Cells {
			out[r][c] = cell.Value
		}
	}
	return out
}

func assertRectangular(t *testing.T, g *Grid) {
	t.Helper()
	cols := g.ColumnCount()
	for i, row := range g.Rows {
		if len(row.Cells) != cols {
			t.Fatalf("row %d has %d cells, want %d", i, len(row.Cells), cols)
		}
	}
}

func TestNew_DefaultShape(t *testing.T) {
	g := New()
	rows, cols := g.Shape()
	if rows != 6 || cols != 5 {
		t.Fatalf("expected 6x5 grid, got %dx%d", rows, cols)
	}
	for _, cell := range g.Rows[0].Cells {
		if !cell.IsHeader {
			t.Fatal("expected header row cells to be headers")
		}
	}
	for _, row := range g.Rows[1:] {
		for _, cell := range row.Cells {
			if cell.IsHeader || cell.Value != "" {
				t.Fatalf("expected empty data cell, got %+v", cell)
			}
		}
	}
	if g.Rows[0].Cells[4].Value != "Column 5" {
		t.Fatalf("unexpected header label %q", g.Rows[0].Cells[4].Value)
	}

	ids := map[string]bool{}
	for _, row := range g.Rows {
		ids[row.ID] = true
		for _, cell := range row.Cells {
			ids[cell.ID] = true
		}
	}
	if len(ids) != 6+30 {
		t.Fatalf("expected unique ids, got %d distinct", len(ids))
	}
}

func TestNewSized_ClampsToMinimum(t *testing.T) {
	rows, cols := NewSized(0, 1).Shape()
	if rows != MinRows || cols != MinCols {
		t.Fatalf("expected %dx%d, got %dx%d", MinRows, MinCols, rows, cols)
	}
}

func TestSetCellValue(t *testing.T) {
	g := fromValues([][]string{{"A", "B", "C"}, {"", "", ""}})
	data := g.Rows[1]

	if !g.SetCellValue(data.ID, data.Cells[1].ID, "X") {
		t.Fatal("expected cell update")
	}
	want := [][]string{{"A", "B", "C"}, {"", "X", ""}}
	if got := values(g); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if g.SetCellValue(data.ID, g.Rows[0].Cells[0].ID, "Y") {
		t.Fatal("cell from another row must not match")
	}
	if g.SetCellValue("missing", data.Cells[0].ID, "Y") {
		t.Fatal("unknown row must be a no-op")
	}
	if !reflect.DeepEqual(values(g), want) {
		t.Fatal("no-op updates changed the grid")
	}
}

func TestInsertRow(t *testing.T) {
	g := fromValues([][]string{{"A", "B"}, {"1", "2"}, {"3", "4"}})
	anchor := g.Rows[1].ID

	if !g.InsertRow(Before, anchor) {
		t.Fatal("expected insert before")
	}
	if !g.InsertRow(After, anchor) {
		t.Fatal("expected insert after")
	}
	want := [][]string{{"A", "B"}, {"", ""}, {"1", "2"}, {"", ""}, {"3", "4"}}
	if got := values(g); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for _, cell := range g.Rows[1].Cells {
		if cell.IsHeader {
			t.Fatal("inserted rows are data rows")
		}
	}
	assertRectangular(t, g)

	if g.InsertRow(After, "missing") {
		t.Fatal("unknown anchor must be a no-op")
	}
	if g.InsertRow(Position("middle"), anchor) {
		t.Fatal("unknown position must be a no-op")
	}
	if len(g.Rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(g.Rows))
	}
}

func TestInsertRow_AfterLast(t *testing.T) {
	g := fromValues([][]string{{"A", "B"}, {"1", "2"}})
	if !g.InsertRow(After, g.Rows[1].ID) {
		t.Fatal("expected insert after last row")
	}
	if got := values(g)[2]; !reflect.DeepEqual(got, []string{"", ""}) {
		t.Fatalf("expected empty appended row, got %v", got)
	}
}

func TestInsertColumn(t *testing.T) {
	g := fromValues([][]string{{"A", "B"}, {"1", "2"}})

	if !g.InsertColumn(Before, 0) {
		t.Fatal("expected insert before column 0")
	}
	if !g.InsertColumn(After, 2) {
		t.Fatal("expected insert after last column")
	}
	want := [][]string{{"", "A", "B", ""}, {"", "1", "2", ""}}
	if got := values(g); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if !g.Rows[0].Cells[0].IsHeader || !g.Rows[0].Cells[3].IsHeader {
		t.Fatal("new cells in the header row must be headers")
	}
	if g.Rows[1].Cells[0].IsHeader {
		t.Fatal("new cells in data rows must not be headers")
	}

	for _, idx := range []int{-1, 4} {
		if g.InsertColumn(After, idx) {
			t.Fatalf("column %d is out of range", idx)
		}
	}
	assertRectangular(t, g)
}

func TestDeleteRow_KeepsMinimum(t *testing.T) {
	g := fromValues([][]string{{"A", "B"}, {"1", "2"}, {"3", "4"}})

	if !g.DeleteRow(g.Rows[2].ID) {
		t.Fatal("expected delete")
	}
	for _, row := range append([]Row(nil), g.Rows...) {
		if g.DeleteRow(row.ID) {
			t.Fatal("delete below two rows must be rejected")
		}
	}
	if g.DeleteRow("missing") {
		t.Fatal("unknown row must be a no-op")
	}
	if len(g.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(g.Rows))
	}
}

func TestDeleteColumn_KeepsMinimum(t *testing.T) {
	g := fromValues([][]string{{"A", "B", "C"}, {"1", "2", "3"}})

	if !g.DeleteColumn(1) {
		t.Fatal("expected delete")
	}
	want := [][]string{{"A", "C"}, {"1", "3"}}
	if got := values(g); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if g.DeleteColumn(0) || g.DeleteColumn(1) {
		t.Fatal("delete below two columns must be rejected")
	}
	if g.DeleteColumn(5) {
		t.Fatal("out of range column must be a no-op")
	}
}

func TestDeletesNeverBreakMinimumShape(t *testing.T) {
	g := New()
	for i := 0; i < 20; i++ {
		g.DeleteRow(g.Rows[0].ID)
		g.DeleteColumn(0)
		rows, cols := g.Shape()
		if rows < MinRows || cols < MinCols {
			t.Fatalf("grid shrank to %dx%d", rows, cols)
		}
		assertRectangular(t, g)
	}
	rows, cols := g.Shape()
	if rows != MinRows || cols != MinCols {
		t.Fatalf("expected to settle at minimum shape, got %dx%d", rows, cols)
	}
}

func TestApply(t *testing.T) {
	g := fromValues([][]string{{"A", "B"}, {"1", "2"}})

	res, err := g.Apply(Op{Op: OpSetCell, RowID: g.Rows[1].ID, CellID: g.Rows[1].Cells[0].ID, Value: "x"})
	if err != nil || !res.Changed {
		t.Fatalf("set_cell: res=%+v err=%v", res, err)
	}
	res, _ = g.Apply(Op{Op: OpInsertColumn, Position: After, Column: intPtr(1)})
	if !res.Changed || g.ColumnCount() != 3 {
		t.Fatalf("insert_column: res=%+v cols=%d", res, g.ColumnCount())
	}
	res, _ = g.Apply(Op{Op: OpDeleteRow, RowID: g.Rows[1].ID})
	if res.Changed {
		t.Fatal("delete_row below minimum must not change the grid")
	}
	res, _ = g.Apply(Op{Op: OpMoveFocus, Direction: Down, Row: intPtr(0), Column: intPtr(2)})
	if res.Changed || res.FocusCellID != g.Rows[1].Cells[2].ID {
		t.Fatalf("move_focus: %+v", res)
	}

	if _, err := g.Apply(Op{Op: "merge_cells"}); err == nil {
		t.Fatal("expected unknown op error")
	}
}

func TestApply_MissingIndexIsNoOp(t *testing.T) {
	g := fromValues([][]string{{"A", "B", "C"}, {"1", "2", "3"}})
	before := values(g)

	for _, raw := range []string{
		`{"op":"delete_column"}`,
		`{"op":"insert_column","position":"after"}`,
		`{"op":"move_focus","direction":"down","column":1}`,
		`{"op":"move_focus","direction":"right","row":0}`,
	} {
		var op Op
		if err := json.Unmarshal([]byte(raw), &op); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		res, err := g.Apply(op)
		if err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if res.Changed || res.FocusCellID != "" {
			t.Fatalf("%s: expected no-op, got %+v", raw, res)
		}
	}
	if !reflect.DeepEqual(values(g), before) {
		t.Fatalf("grid changed: %v", values(g))
	}

	var op Op
	if err := json.Unmarshal([]byte(`{"op":"delete_column","column":0}`), &op); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res, _ := g.Apply(op); !res.Changed || g.Rows[0].Cells[0].Value != "B" {
		t.Fatalf("explicit column 0 must be deleted, got %+v %v", res, values(g))
	}
}

func TestApply_MoveFocusAcceptsKeyNames(t *testing.T) {
	g := fromValues([][]string{{"A", "B"}, {"1", "2"}})

	res, err := g.Apply(Op{Op: OpMoveFocus, Direction: "Tab", Row: intPtr(0), Column: intPtr(1)})
	if err != nil || res.FocusCellID != g.Rows[1].Cells[0].ID {
		t.Fatalf("Tab from last column: %+v err=%v", res, err)
	}
	res, _ = g.Apply(Op{Op: OpMoveFocus, Direction: "Enter", Row: intPtr(0), Column: intPtr(0)})
	if res.FocusCellID != g.Rows[1].Cells[0].ID {
		t.Fatalf("Enter: %+v", res)
	}
	res, _ = g.Apply(Op{Op: OpMoveFocus, Direction: "Escape", Row: intPtr(0), Column: intPtr(0)})
	if res.FocusCellID != "" {
		t.Fatalf("Escape must not move focus: %+v", res)
	}
}
