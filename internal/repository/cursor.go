package repository

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Cursor is the decoded form of an opaque pagination token: the sort
// field's value on the last row of the previous page, plus that row's id
// as a tiebreaker for rows that share a sort value.
type Cursor struct {
	Field string `json:"field"`
	Value string `json:"value"`
	ID    string `json:"id"`
}

// EncodeCursor builds an opaque, base64-encoded cursor for the given
// sort field and last-row identity.
func EncodeCursor(field, value string, id uuid.UUID) string {
	data, _ := json.Marshal(Cursor{Field: field, Value: value, ID: id.String()})
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeCursor parses an opaque cursor produced by EncodeCursor. An
// invalid cursor is a BAD_REQUEST, never a silent "start from scratch".
func DecodeCursor(cursor string) (Cursor, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid cursor encoding: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, fmt.Errorf("invalid cursor payload: %w", err)
	}
	if c.Field == "" || c.ID == "" {
		return Cursor{}, fmt.Errorf("invalid cursor: missing field or id")
	}
	return c, nil
}
