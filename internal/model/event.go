package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Op is the operation kind of an event.
type Op string

const (
	OpCreate Op = "c"
	OpUpdate Op = "u"
)

// Normalize maps accepted aliases onto the wire values.
func (o Op) Normalize() Op {
	switch o {
	case OpCreate, "create":
		return OpCreate
	case OpUpdate, "update":
		return OpUpdate
	default:
		return o
	}
}

// Known reports whether the op is create or update.
func (o Op) Known() bool {
	n := o.Normalize()
	return n == OpCreate || n == OpUpdate
}

// Event is one append-only log entry for a single entity.
type Event struct {
	ID   any            `json:"id"`
	Op   Op             `json:"op"`
	TS   *int64         `json:"ts,omitempty"`
	Data map[string]any `json:"data,omitempty"`
	Set  map[string]any `json:"set,omitempty"`

	// Source and Seq are assigned by the reader, not decoded from the payload.
	Source string `json:"-"`
	Seq    int    `json:"-"`
}

// Key returns the canonical entity key of the event.
func (e Event) Key() string {
	return EntityKey(e.ID)
}

// Timestamp returns ts in epoch milliseconds and whether the event carried one.
func (e Event) Timestamp() (int64, bool) {
	if e.TS == nil {
		return 0, false
	}
	return *e.TS, true
}

// Fields returns the field map the event carries for its op.
func (e Event) Fields() map[string]any {
	switch e.Op.Normalize() {
	case OpCreate:
		return e.Data
	case OpUpdate:
		return e.Set
	default:
		return nil
	}
}

// EntityKey renders an entity id as a map key. Numbers use their decimal text.
func EntityKey(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}
