package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Content keys used by the server inside a cell's content object.
const (
	TerrainKey  = "WorldCell"
	OccupantKey = "CritterCell"
)

// Content is what occupies a cell: Terrain, Occupant or Unknown.
type Content interface {
	contentKey() string
}

// Terrain is a world grid position carrying only a scalar intensity.
type Terrain struct {
	Intensity uint8
}

// Occupant is a grid position held by a game entity. Kind is always set;
// ID, Energy and Orientation are filled when the server sends them.
type Occupant struct {
	Kind        string
	ID          string
	Energy      int
	Orientation string
}

// Unknown is content under a key this client does not recognize.
// Renderers should skip it.
type Unknown struct {
	Key string
	Raw json.RawMessage
}

func (Terrain) contentKey() string  { return TerrainKey }
func (Occupant) contentKey() string { return OccupantKey }
func (u Unknown) contentKey() string { return u.Key }

// Cell is one positioned entry of a snapshot.
type Cell struct {
	X, Y    int
	Content Content
}

// Snapshot is a complete, ordered replacement of the client's view of the
// world grid. The zero value is an empty snapshot.
type Snapshot struct {
	cells []Cell
}

// NewSnapshot builds a snapshot from cells, copying the slice.
func NewSnapshot(cells []Cell) Snapshot {
	return Snapshot{cells: append([]Cell(nil), cells...)}
}

// Len returns the number of cells.
func (s Snapshot) Len() int { return len(s.cells) }

// At returns the i-th cell in arrival order.
func (s Snapshot) At(i int) Cell { return s.cells[i] }

// Cells returns a copy of the cells in arrival order.
func (s Snapshot) Cells() []Cell {
	return append([]Cell(nil), s.cells...)
}

// Bounds returns the inclusive bounding box of all cells; ok is false for an
// empty snapshot.
func (s Snapshot) Bounds() (minX, minY, maxX, maxY int, ok bool) {
	if len(s.cells) == 0 {
		return 0, 0, 0, 0, false
	}
	minX, minY = s.cells[0].X, s.cells[0].Y
	maxX, maxY = minX, minY
	for _, c := range s.cells[1:] {
		minX, maxX = min(minX, c.X), max(maxX, c.X)
		minY, maxY = min(minY, c.Y), max(maxY, c.Y)
	}
	return minX, minY, maxX, maxY, true
}

// DecodeSnapshot parses an inbound frame into a Snapshot. The envelope (an
// array of cell objects with integer x/y and a single-key content object) is
// checked strictly; unrecognized content keys decode to Unknown.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	if !utf8.Valid(data) {
		return Snapshot{}, ErrNotUTF8
	}
	if !json.Valid(data) {
		return Snapshot{}, ErrMalformedJSON
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return Snapshot{}, fmt.Errorf("%w: expected an array of cells", ErrMalformedSnapshot)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}

	cells := make([]Cell, 0, len(entries))
	for i, entry := range entries {
		cell, err := decodeCell(entry)
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: cell %d: %v", ErrMalformedSnapshot, i, err)
		}
		cells = append(cells, cell)
	}
	return Snapshot{cells: cells}, nil
}

func decodeCell(raw json.RawMessage) (Cell, error) {
	fields, err := decodeFields(raw)
	if err != nil {
		return Cell{}, err
	}

	var cell Cell
	if cell.X, err = requireInt(fields, "x"); err != nil {
		return Cell{}, err
	}
	if cell.Y, err = requireInt(fields, "y"); err != nil {
		return Cell{}, err
	}

	contentRaw, ok := fields["content"]
	if !ok {
		return Cell{}, errors.New("missing content")
	}
	content, err := decodeFields(contentRaw)
	if err != nil {
		return Cell{}, fmt.Errorf("content: %w", err)
	}
	if len(content) != 1 {
		return Cell{}, fmt.Errorf("content must have exactly one key, got %d", len(content))
	}

	for key, value := range content {
		switch key {
		case TerrainKey:
			n, err := decodeInt(value)
			if err != nil {
				return Cell{}, fmt.Errorf("%s: %w", TerrainKey, err)
			}
			if n < 0 || n > 255 {
				return Cell{}, fmt.Errorf("%s: intensity %d out of range 0-255", TerrainKey, n)
			}
			cell.Content = Terrain{Intensity: uint8(n)}
		case OccupantKey:
			occ, err := decodeOccupant(value)
			if err != nil {
				return Cell{}, fmt.Errorf("%s: %w", OccupantKey, err)
			}
			cell.Content = occ
		default:
			cell.Content = Unknown{Key: key, Raw: append(json.RawMessage(nil), value...)}
		}
	}
	return cell, nil
}

func decodeOccupant(raw json.RawMessage) (Occupant, error) {
	fields, err := decodeFields(raw)
	if err != nil {
		return Occupant{}, err
	}
	kindRaw, ok := fields["kind"]
	if !ok || isNull(kindRaw) {
		return Occupant{}, errors.New("missing kind")
	}
	var occ Occupant
	if err := json.Unmarshal(kindRaw, &occ.Kind); err != nil {
		return Occupant{}, errors.New("kind must be a string")
	}

	// Optional attributes that fail to decode are left unset.
	optionalField(fields, "id", &occ.ID)
	optionalField(fields, "energy", &occ.Energy)
	optionalField(fields, "orientation", &occ.Orientation)
	return occ, nil
}

// optionalField stores fields[key] in dst when present and of the right type.
// It reports whether dst was set; dst is untouched otherwise.
func optionalField[T any](fields map[string]json.RawMessage, key string, dst *T) bool {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return false
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	*dst = v
	return true
}

func decodeFields(raw json.RawMessage) (map[string]json.RawMessage, error) {
	if isNull(raw) {
		return nil, errors.New("expected an object, got null")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.New("expected an object")
	}
	return fields, nil
}

func requireInt(fields map[string]json.RawMessage, key string) (int, error) {
	raw, ok := fields[key]
	if !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	n, err := decodeInt(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func decodeInt(raw json.RawMessage) (int, error) {
	if isNull(raw) {
		return 0, errors.New("expected an integer, got null")
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, errors.New("expected an integer")
	}
	return n, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// MarshalJSON encodes the cell in the server's snapshot format.
func (c Cell) MarshalJSON() ([]byte, error) {
	var content map[string]any
	switch v := c.Content.(type) {
	case Terrain:
		content = map[string]any{TerrainKey: v.Intensity}
	case Occupant:
		content = map[string]any{OccupantKey: occupantWire{
			ID:          v.ID,
			Kind:        v.Kind,
			Energy:      v.Energy,
			Orientation: v.Orientation,
		}}
	case Unknown:
		raw := v.Raw
		if len(raw) == 0 {
			raw = json.RawMessage("null")
		}
		content = map[string]any{v.Key: raw}
	default:
		return nil, fmt.Errorf("cell (%d,%d) has no content", c.X, c.Y)
	}
	return json.Marshal(struct {
		X       int            `json:"x"`
		Y       int            `json:"y"`
		Content map[string]any `json:"content"`
	}{c.X, c.Y, content})
}

type occupantWire struct {
	ID          string `json:"id,omitempty"`
	Kind        string `json:"kind"`
	Energy      int    `json:"energy"`
	Orientation string `json:"orientation,omitempty"`
}

// EncodeSnapshot serializes cells in the server's snapshot format.
func EncodeSnapshot(cells []Cell) ([]byte, error) {
	if cells == nil {
		cells = []Cell{}
	}
	return json.Marshal(cells)
}
