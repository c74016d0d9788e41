package grid

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
)

// ErrMalformedContent is returned when stored content is not a serialized grid.
var ErrMalformedContent = errors.New("malformed grid content")

// rowRecord distinguishes missing fields from empty ones while parsing.
type rowRecord struct {
	ID    *string `json:"id"`
	Cells *[]Cell `json:"cells"`
}

// Serialize encodes the grid as a JSON array of rows, preserving order.
func (g *Grid) Serialize() (string, error) {
	rows := g.Rows
	if rows == nil {
		rows = []Row{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Deserialize parses content produced by Serialize. The object form
// {"rows": [...]} served by the grid endpoint is accepted too. The rows must be a
// non-empty array of row records (id + cells) with equal cell counts, otherwise
// the error wraps ErrMalformedContent.
func Deserialize(content string) (*Grid, error) {
	records, err := decodeRecords([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedContent, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrMalformedContent)
	}

	g := &Grid{Rows: make([]Row, 0, len(records))}
	for i, rec := range records {
		if rec.ID == nil || rec.Cells == nil {
			return nil, fmt.Errorf("%w: row %d is missing id or cells", ErrMalformedContent, i)
		}
		if i > 0 && len(*rec.Cells) != len(g.Rows[0].Cells) {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d",
				ErrMalformedContent, i, len(*rec.Cells), len(g.Rows[0].Cells))
		}
		g.Rows = append(g.Rows, Row{ID: *rec.ID, Cells: *rec.Cells})
	}
	return g, nil
}

func decodeRecords(data []byte) ([]rowRecord, error) {
	var records []rowRecord
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			Rows []rowRecord `json:"rows"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, err
		}
		return wrapped.Rows, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ParseOrDefault deserializes content, falling back to New when it is malformed.
func ParseOrDefault(content string) *Grid {
	g, err := Deserialize(content)
	if err != nil {
		log.Printf("⚠️ Tabular content unreadable, using default grid: %v", err)
		return New()
	}
	return g
}
