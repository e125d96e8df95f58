package replay

import (
	"sort"

	"ledgerScope/internal/model"
)

// Tracker describes which field changes become transactions and how they are labelled.
type Tracker struct {
	Field   string
	IDField string
	Label   string
}

// Index holds one stream's events with a create-event lookup built once.
type Index struct {
	entity  string
	events  []model.Event
	creates map[string]model.Event
}

// NewIndex validates events and indexes the first create seen for every id.
func NewIndex(entity string, events []model.Event) (*Index, error) {
	if err := Validate(events); err != nil {
		return nil, err
	}

	creates := make(map[string]model.Event)
	for _, ev := range events {
		if ev.Op.Normalize() != model.OpCreate {
			continue
		}
		key := ev.Key()
		if _, ok := creates[key]; ok {
			continue
		}
		creates[key] = ev
	}

	return &Index{entity: entity, events: events, creates: creates}, nil
}

// Len returns the number of indexed events.
func (idx *Index) Len() int {
	return len(idx.events)
}

// AssociatedID resolves the business identifier for an entity id.
// It falls back to the id itself when no create exists or the field is absent.
func (idx *Index) AssociatedID(id any, idField string) any {
	create, ok := idx.creates[model.EntityKey(id)]
	if !ok {
		return id
	}
	value, ok := create.Data[idField]
	if !ok || value == nil {
		return id
	}
	return value
}

// Extract emits one transaction per event that sets the tracked field, in scan order.
func (idx *Index) Extract(tr Tracker) []model.Transaction {
	txs := make([]model.Transaction, 0)
	for _, ev := range idx.events {
		value, ok := ev.Fields()[tr.Field]
		if !ok {
			continue
		}
		ts, _ := ev.Timestamp()
		txs = append(txs, model.Transaction{
			Timestamp:    ts,
			Kind:         tr.Label,
			AssociatedID: idx.AssociatedID(ev.ID, tr.IDField),
			Value:        value,
			Entity:       idx.entity,
			EventSource:  ev.Source,
		})
	}
	return txs
}

// Extract is a one-shot helper for a single tracked field.
func Extract(events []model.Event, field, idField, label string) ([]model.Transaction, error) {
	idx, err := NewIndex("", events)
	if err != nil {
		return nil, err
	}
	return idx.Extract(Tracker{Field: field, IDField: idField, Label: label}), nil
}

// SortTransactions orders transactions by timestamp, keeping scan order for ties.
func SortTransactions(txs []model.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp < txs[j].Timestamp
	})
}
