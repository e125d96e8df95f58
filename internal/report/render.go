package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Format selects the output encoding of a report.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

const timeLayout = "2006-01-02 15:04:05.000-07:00"

// ParseFormat validates a format name.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q", value)
	}
}

var titler = cases.Title(language.English)

// Title turns a stream name such as savings_accounts into "Savings Accounts".
func Title(name string) string {
	return titler.String(strings.ReplaceAll(name, "_", " "))
}

func writeFrame(w io.Writer, frame Frame) error {
	if len(frame.Rows) == 0 {
		_, err := fmt.Fprintf(w, "Empty table\nColumns: [%s]\n", strings.Join(frame.Columns, ", "))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\t%s\n", strings.Join(frame.Columns, "\t"))
	for i, row := range frame.Rows {
		cells := make([]string, 0, len(frame.Columns))
		for _, col := range frame.Columns {
			cells = append(cells, formatCell(row[col]))
		}
		fmt.Fprintf(tw, "%d\t%s\n", i, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func writeEntries(w io.Writer, entries []Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tTimestamp\tTransaction_Type\tAssociated_ID\tValue")
	for i, entry := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			i,
			entry.Time.Format(timeLayout),
			entry.Kind,
			formatCell(entry.AssociatedID),
			formatCell(entry.Value),
		)
	}
	return tw.Flush()
}

func formatCell(value any) string {
	switch v := value.(type) {
	case nil:
		return "NaN"
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.Format(timeLayout)
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// plainValue swaps json.Number for int64 or float64 so YAML emits numbers, not strings.
func plainValue(value any) any {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = plainValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = plainValue(item)
		}
		return out
	default:
		return v
	}
}

func encodeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func encodeYAML(w io.Writer, value any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(value); err != nil {
		return err
	}
	return enc.Close()
}
