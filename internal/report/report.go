package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"ledgerScope/internal/model"
)

// Sections selects which parts of the report are built.
type Sections struct {
	Tables       bool
	Joined       bool
	Transactions bool
}

// AllSections builds the full report.
var AllSections = Sections{Tables: true, Joined: true, Transactions: true}

// Input is everything a report is built from.
type Input struct {
	RunID        string
	Entities     []string
	Tables       map[string]model.Table
	Transactions []model.Transaction
	Diagnostics  []model.Diagnostic
	Location     *time.Location
	Sections     Sections
}

// Report is the rendered-ready view of one replay run.
type Report struct {
	RunID        string             `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Tables       []Frame            `json:"tables,omitempty" yaml:"tables,omitempty"`
	Joined       *Frame             `json:"joined,omitempty" yaml:"joined,omitempty"`
	Transactions []Entry            `json:"transactions,omitempty" yaml:"transactions,omitempty"`
	Diagnostics  []model.Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`

	sections Sections
}

// Build assembles the report sections from reconstructed tables and extracted transactions.
func Build(in Input) Report {
	entities := in.Entities
	if len(entities) == 0 {
		entities = model.DefaultEntities
	}

	rep := Report{
		RunID:       in.RunID,
		Diagnostics: in.Diagnostics,
		sections:    in.Sections,
	}

	if in.Sections.Tables {
		for _, name := range entities {
			rep.Tables = append(rep.Tables, FromTable(name, in.Tables[name]))
		}
	}
	if in.Sections.Joined {
		joined := Denormalize(
			in.Tables[model.EntityAccounts],
			in.Tables[model.EntityCards],
			in.Tables[model.EntitySavingsAccounts],
		)
		rep.Joined = &joined
	}
	if in.Sections.Transactions {
		rep.Transactions = Timeline(in.Transactions, in.Location)
	}

	return rep
}

// Write renders the report in the given format.
func Write(w io.Writer, rep Report, format Format) error {
	switch format {
	case FormatJSON:
		return encodeJSON(w, rep)
	case FormatYAML:
		return encodeYAML(w, rep.plain())
	case FormatTable, "":
		return writeTable(w, rep)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeTable(w io.Writer, rep Report) error {
	separator := "\n" + strings.Repeat("=", 50) + "\n\n"

	for _, frame := range rep.Tables {
		if _, err := fmt.Fprintf(w, "--- %s Table ---\n", Title(frame.Name)); err != nil {
			return err
		}
		if err := writeFrame(w, frame); err != nil {
			return err
		}
		if _, err := io.WriteString(w, separator); err != nil {
			return err
		}
	}

	if rep.Joined != nil {
		if _, err := io.WriteString(w, "--- Denormalized Joined Table ---\n"); err != nil {
			return err
		}
		if err := writeFrame(w, *rep.Joined); err != nil {
			return err
		}
		if _, err := io.WriteString(w, separator); err != nil {
			return err
		}
	}

	if !rep.sections.Transactions {
		return nil
	}
	if len(rep.Transactions) == 0 {
		_, err := io.WriteString(w, "No transactions found based on the definition.\n")
		return err
	}
	if _, err := fmt.Fprintf(w, "Found a total of %d transactions.\n--- Transaction Details ---\n", len(rep.Transactions)); err != nil {
		return err
	}
	return writeEntries(w, rep.Transactions)
}

func (r Report) plain() Report {
	out := r
	out.Tables = make([]Frame, len(r.Tables))
	for i, frame := range r.Tables {
		out.Tables[i] = frame.plain()
	}
	if r.Joined != nil {
		joined := r.Joined.plain()
		out.Joined = &joined
	}
	out.Transactions = make([]Entry, len(r.Transactions))
	for i, entry := range r.Transactions {
		entry.AssociatedID = plainValue(entry.AssociatedID)
		entry.Value = plainValue(entry.Value)
		out.Transactions[i] = entry
	}
	return out
}

func (f Frame) plain() Frame {
	out := f
	out.Rows = make([]map[string]any, len(f.Rows))
	for i, row := range f.Rows {
		out.Rows[i] = plainValue(row).(map[string]any)
	}
	return out
}
