package model

import (
	"math"
	"sort"
	"strconv"
)

// IDField is the field every record carries its entity id under.
const IDField = "id"

// Record is the materialized current state of one entity.
type Record map[string]any

// ID returns the record's entity id.
func (r Record) ID() any {
	return r[IDField]
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Keys returns the field names with "id" first and the rest sorted.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		if k == IDField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if _, ok := r[IDField]; ok {
		keys = append([]string{IDField}, keys...)
	}
	return keys
}

// Table maps entity keys to records for one entity type.
type Table map[string]Record

// SortedKeys returns the entity keys in id order. Numeric keys compare by value and come
// before non-numeric ones, which compare lexicographically.
func (t Table) SortedKeys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return lessKey(keys[i], keys[j])
	})
	return keys
}

func lessKey(a, b string) bool {
	x, numA := numericKey(a)
	y, numB := numericKey(b)
	switch {
	case numA && numB:
		if x != y {
			return x < y
		}
		return a < b
	case numA:
		return true
	case numB:
		return false
	default:
		return a < b
	}
}

func numericKey(key string) (float64, bool) {
	v, err := strconv.ParseFloat(key, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
