package replay

import (
	"fmt"
	"sort"

	"ledgerScope/internal/model"
)

// Order selects how events are sequenced before they are folded.
type Order int

const (
	// OrderTimestamp sorts by ts, which every event must then carry.
	// Events with equal ts keep their input order.
	OrderTimestamp Order = iota
	// OrderInput folds events in the order given.
	OrderInput
)

// ParseOrder maps a config value onto an Order.
func ParseOrder(value string) (Order, error) {
	switch value {
	case "", "ts", "timestamp":
		return OrderTimestamp, nil
	case "input":
		return OrderInput, nil
	default:
		return 0, fmt.Errorf("unknown order %q", value)
	}
}

// Options controls a reconstruction.
type Options struct {
	Order Order
	// StrictOps turns unrecognized ops into a fatal error instead of a diagnostic.
	StrictOps bool
	// Entity labels diagnostics with the stream name.
	Entity string
}

// Stats counts what happened to each event during a fold.
type Stats struct {
	Events   int
	Creates  int
	Replaced int
	Updates  int
	Orphaned int
	Ignored  int
}

// Result is the output of a reconstruction.
type Result struct {
	Table       model.Table
	Diagnostics []model.Diagnostic
	Stats       Stats
}

// Reconstruct folds events into the current record of every created entity.
func Reconstruct(events []model.Event, opts Options) (Result, error) {
	if err := Validate(events); err != nil {
		return Result{}, err
	}
	if opts.Order == OrderTimestamp {
		if err := requireTimestamps(events); err != nil {
			return Result{}, err
		}
	}

	res := Result{Table: make(model.Table)}
	for _, ev := range Sequence(events, opts.Order) {
		res.Stats.Events++
		key := ev.Key()

		switch ev.Op.Normalize() {
		case model.OpCreate:
			if _, ok := res.Table[key]; ok {
				res.Stats.Replaced++
			}
			res.Table[key] = newRecord(ev)
			res.Stats.Creates++
		case model.OpUpdate:
			rec, ok := res.Table[key]
			if !ok {
				res.Stats.Orphaned++
				res.Diagnostics = append(res.Diagnostics, model.Diagnostic{
					Kind:     model.DiagMissingEntity,
					Entity:   opts.Entity,
					EntityID: key,
					Source:   ev.Source,
					Message:  fmt.Sprintf("update event for non-existent id %s", key),
				})
				continue
			}
			for field, value := range ev.Set {
				rec[field] = value
			}
			res.Stats.Updates++
		default:
			if opts.StrictOps {
				return Result{}, &MalformedEventError{Source: ev.Source, Seq: ev.Seq, Field: "op", Err: fmt.Errorf("%w: %q", ErrUnrecognizedOperation, ev.Op)}
			}
			res.Stats.Ignored++
			res.Diagnostics = append(res.Diagnostics, model.Diagnostic{
				Kind:     model.DiagUnrecognizedOperation,
				Entity:   opts.Entity,
				EntityID: key,
				Source:   ev.Source,
				Message:  fmt.Sprintf("unrecognized op %q", ev.Op),
			})
		}
	}

	return res, nil
}

// Validate checks the fields the engine cannot work without.
func Validate(events []model.Event) error {
	for i, ev := range events {
		if ev.ID == nil {
			return &MalformedEventError{Source: ev.Source, Seq: i, Field: "id", Err: ErrMalformedEvent}
		}
		if ev.Op == "" {
			return &MalformedEventError{Source: ev.Source, Seq: i, Field: "op", Err: ErrMalformedEvent}
		}
	}
	return nil
}

// requireTimestamps rejects events that cannot be placed in ts order.
func requireTimestamps(events []model.Event) error {
	for i, ev := range events {
		if ev.TS == nil {
			return &MalformedEventError{Source: ev.Source, Seq: i, Field: "ts", Err: ErrMalformedEvent}
		}
	}
	return nil
}

// Sequence returns a copy of events in fold order. The input is not modified.
// Reconstruct checks ts presence before calling it with OrderTimestamp.
func Sequence(events []model.Event, order Order) []model.Event {
	out := make([]model.Event, len(events))
	copy(out, events)
	if order == OrderTimestamp {
		sort.SliceStable(out, func(i, j int) bool {
			a, _ := out[i].Timestamp()
			b, _ := out[j].Timestamp()
			return a < b
		})
	}
	return out
}

func newRecord(ev model.Event) model.Record {
	rec := make(model.Record, len(ev.Data)+1)
	for field, value := range ev.Data {
		rec[field] = value
	}
	rec[model.IDField] = ev.ID
	return rec
}
