package report

import (
	"ledgerScope/internal/model"
)

// Join keys and suffixes of the denormalized view.
const (
	CardKey    = "card_id"
	SavingsKey = "savings_account_id"
)

// Frame is an ordered set of rows sharing a column list.
type Frame struct {
	Name    string           `json:"name" yaml:"name"`
	Columns []string         `json:"columns" yaml:"columns"`
	Rows    []map[string]any `json:"rows" yaml:"rows"`
}

// FromTable lays a record table out as rows sorted by entity key.
// Columns are "id" followed by the sorted union of every other field.
func FromTable(name string, table model.Table) Frame {
	frame := Frame{Name: name, Rows: make([]map[string]any, 0, len(table))}

	union := model.Record{}
	for _, key := range table.SortedKeys() {
		rec := table[key]
		for field := range rec {
			union[field] = nil
		}
		frame.Rows = append(frame.Rows, map[string]any(rec.Clone()))
	}
	frame.Columns = union.Keys()
	return frame
}

// Join left-joins right onto left where both rows carry an equal, non-nil on column.
// Columns present on both sides other than on get the suffixes. Unmatched left rows
// keep nil right columns.
func Join(name string, left, right Frame, on, leftSuffix, rightSuffix string) Frame {
	rightCols := make(map[string]struct{}, len(right.Columns))
	for _, col := range right.Columns {
		rightCols[col] = struct{}{}
	}
	leftCols := make(map[string]struct{}, len(left.Columns))
	for _, col := range left.Columns {
		leftCols[col] = struct{}{}
	}

	leftName := func(col string) string {
		if _, clash := rightCols[col]; clash && col != on {
			return col + leftSuffix
		}
		return col
	}
	rightName := func(col string) string {
		if _, clash := leftCols[col]; clash {
			return col + rightSuffix
		}
		return col
	}

	out := Frame{Name: name, Rows: make([]map[string]any, 0, len(left.Rows))}
	for _, col := range left.Columns {
		out.Columns = append(out.Columns, leftName(col))
	}
	for _, col := range right.Columns {
		if col == on {
			continue
		}
		out.Columns = append(out.Columns, rightName(col))
	}

	byKey := make(map[string][]map[string]any)
	for _, row := range right.Rows {
		key, ok := joinKey(row, on)
		if !ok {
			continue
		}
		byKey[key] = append(byKey[key], row)
	}

	for _, lrow := range left.Rows {
		base := make(map[string]any, len(out.Columns))
		for _, col := range left.Columns {
			base[leftName(col)] = lrow[col]
		}

		var matches []map[string]any
		if key, ok := joinKey(lrow, on); ok {
			matches = byKey[key]
		}
		if len(matches) == 0 {
			out.Rows = append(out.Rows, base)
			continue
		}
		for _, rrow := range matches {
			row := make(map[string]any, len(out.Columns))
			for k, v := range base {
				row[k] = v
			}
			for _, col := range right.Columns {
				if col == on {
					continue
				}
				row[rightName(col)] = rrow[col]
			}
			out.Rows = append(out.Rows, row)
		}
	}

	return out
}

// Denormalize joins accounts to cards on card_id and then to savings accounts on savings_account_id.
func Denormalize(accounts, cards, savings model.Table) Frame {
	merged := Join("merged", FromTable(model.EntityAccounts, accounts), FromTable(model.EntityCards, cards), CardKey, "_account", "_card")
	return Join("denormalized", merged, FromTable(model.EntitySavingsAccounts, savings), SavingsKey, "", "_savings")
}

func joinKey(row map[string]any, on string) (string, bool) {
	value, ok := row[on]
	if !ok || value == nil {
		return "", false
	}
	return model.EntityKey(value), true
}
