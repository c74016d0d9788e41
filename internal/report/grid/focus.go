package grid

// Direction is a keyboard focus move.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
	Enter Direction = "enter" // same as Down
	Tab   Direction = "tab"   // same as Right
)

var keyDirections = map[string]Direction{
	"ArrowUp":    Up,
	"ArrowDown":  Down,
	"ArrowLeft":  Left,
	"ArrowRight": Right,
	"Enter":      Enter,
	"Tab":        Tab,
}

// KeyDirection maps a DOM key name ("ArrowUp", "Tab", ...) to a Direction.
func KeyDirection(key string) (Direction, bool) {
	d, ok := keyDirections[key]
	return d, ok
}

// MoveFocus returns the id of the cell reached by moving from (fromRow, fromCol).
// Right and Tab wrap to the first column of the next row. ok is false when the
// move would leave the grid; the caller keeps focus where it is.
func (g *Grid) MoveFocus(dir Direction, fromRow, fromCol int) (string, bool) {
	if _, ok := g.CellAt(fromRow, fromCol); !ok {
		return "", false
	}

	row, col := fromRow, fromCol
	switch dir {
	case Up:
		row--
	case Down, Enter:
		row++
	case Left:
		col--
	case Right, Tab:
		col++
		if col >= g.ColumnCount() {
			row, col = row+1, 0
		}
	default:
		return "", false
	}

	cell, ok := g.CellAt(row, col)
	if !ok {
		return "", false
	}
	return cell.ID, true
}
