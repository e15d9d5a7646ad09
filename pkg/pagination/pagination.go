package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

var errMalformedCursor = errors.New("malformed cursor")

// Params are the keyset pagination inputs accepted from handlers.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the (weight, id) key of the last row on a page.
type Cursor struct {
	Weight int       `json:"w"`
	ID     uuid.UUID `json:"id"`
}

// Window is a validated Params: a clamped limit and the decoded cursor, nil on the first page.
type Window struct {
	Limit int
	After *Cursor
}

// Open clamps the limit to [1, MaxLimit] and decodes the cursor.
func (p Params) Open() (Window, error) {
	limit := p.Limit
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	after, err := ParseCursor(p.Cursor)
	if err != nil {
		return Window{}, err
	}
	return Window{Limit: limit, After: after}, nil
}

// Fetch is the row count to query: one extra row reveals whether a next page exists.
func (w Window) Fetch() int {
	return w.Limit + 1
}

// Close trims rows fetched with Fetch to the page size and returns the cursor of the next
// page, or "" when rows was the last page.
func Close[T any](w Window, rows []T, key func(T) Cursor) ([]T, string) {
	if len(rows) <= w.Limit {
		return rows, ""
	}
	rows = rows[:w.Limit]
	return rows, EncodeCursor(key(rows[len(rows)-1]))
}

func EncodeCursor(c Cursor) string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// ParseCursor decodes an opaque cursor. Blank input means the first page.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedCursor, err)
	}
	var c Cursor
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedCursor, err)
	}
	if c.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing id", errMalformedCursor)
	}
	return &c, nil
}
