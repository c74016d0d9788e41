package grid

import (
	"errors"
	"fmt"
)

// ErrUnknownOp is returned by Apply for an unrecognised operation name.
var ErrUnknownOp = errors.New("unknown grid operation")

// Operation names accepted by Apply.
const (
	OpSetCell      = "set_cell"
	OpInsertRow    = "insert_row"
	OpInsertColumn = "insert_column"
	OpDeleteRow    = "delete_row"
	OpDeleteColumn = "delete_column"
	OpMoveFocus    = "move_focus"
)

// Op is a single edit command as sent by the report editor.
// Column and Row are pointers so an omitted index is a no-op rather than index 0.
// Direction also accepts DOM key names ("ArrowUp", "Tab", ...).
type Op struct {
	Op        string    `json:"op"`
	RowID     string    `json:"row_id,omitempty"`
	CellID    string    `json:"cell_id,omitempty"`
	Value     string    `json:"value,omitempty"`
	Position  Position  `json:"position,omitempty"`
	Column    *int      `json:"column,omitempty"`
	Direction Direction `json:"direction,omitempty"`
	Row       *int      `json:"row,omitempty"`
}

// Result reports what Apply did. Changed is false for rejected or no-op edits
// and always false for move_focus.
type Result struct {
	Changed     bool   `json:"changed"`
	FocusCellID string `json:"focus_cell_id,omitempty"`
}

// Apply runs op against the grid.
func (g *Grid) Apply(op Op) (Result, error) {
	switch op.Op {
	case OpSetCell:
		return Result{Changed: g.SetCellValue(op.RowID, op.CellID, op.Value)}, nil
	case OpInsertRow:
		return Result{Changed: g.InsertRow(op.Position, op.RowID)}, nil
	case OpInsertColumn:
		if op.Column == nil {
			return Result{}, nil
		}
		return Result{Changed: g.InsertColumn(op.Position, *op.Column)}, nil
	case OpDeleteRow:
		return Result{Changed: g.DeleteRow(op.RowID)}, nil
	case OpDeleteColumn:
		if op.Column == nil {
			return Result{}, nil
		}
		return Result{Changed: g.DeleteColumn(*op.Column)}, nil
	case OpMoveFocus:
		if op.Row == nil || op.Column == nil {
			return Result{}, nil
		}
		dir := op.Direction
		if d, ok := KeyDirection(string(dir)); ok {
			dir = d
		}
		id, _ := g.MoveFocus(dir, *op.Row, *op.Column)
		return Result{FocusCellID: id}, nil
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownOp, op.Op)
	}
}
