package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// Column names every KPI record carries or may carry.
const (
	ColumnYearMonth          = "year_month"
	ColumnValue              = "value"
	ColumnKPIName            = "kpi_name"
	ColumnIngestionTimestamp = "ingestion_timestamp"
)

// Output layouts for temporal cells.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05.000000"
)

// Kind tags the content of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindDate
	KindTimestamp
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindTimestamp:
		return "timestamp"
	case KindRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// Value is a single cell of a KPI record.
type Value struct {
	kind Kind
	str  string
	num  *apd.Decimal
	b    bool
	t    time.Time
	raw  json.RawMessage
}

func Null() Value { return Value{kind: KindNull} }

func String(s string) Value { return Value{kind: KindString, str: s} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Date holds a calendar date; any time-of-day component is kept.
func Date(t time.Time) Value { return Value{kind: KindDate, t: t} }

func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, t: t.UTC()} }

// Number parses a JSON number literal into an exact decimal.
func Number(literal string) (Value, error) {
	d, _, err := apd.NewFromString(literal)
	if err != nil {
		return Value{}, fmt.Errorf("invalid number %q: %w", literal, err)
	}
	return Value{kind: KindNumber, num: d}, nil
}

// Raw keeps a nested JSON structure as compact text.
func Raw(msg json.RawMessage) Value {
	var buf bytes.Buffer
	if err := json.Compact(&buf, msg); err != nil {
		return Value{kind: KindRaw, raw: append(json.RawMessage(nil), msg...)}
	}
	return Value{kind: KindRaw, raw: buf.Bytes()}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string content and whether v is a string.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Time returns the temporal content and whether v is a date or timestamp.
func (v Value) Time() (time.Time, bool) {
	return v.t, v.kind == KindDate || v.kind == KindTimestamp
}

// String renders the value the way it appears in the CSV artifact.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num.Text('f')
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	case KindDate:
		if v.t.Hour() == 0 && v.t.Minute() == 0 && v.t.Second() == 0 && v.t.Nanosecond() == 0 {
			return v.t.Format(DateLayout)
		}
		return v.t.Format("2006-01-02 15:04:05")
	case KindTimestamp:
		return v.t.Format(TimestampLayout)
	case KindRaw:
		return string(v.raw)
	default:
		return ""
	}
}

// Row is one KPI record: an ordered set of named cells.
type Row struct {
	columns []string
	cells   map[string]Value
}

func NewRow() Row {
	return Row{cells: make(map[string]Value)}
}

// Set assigns a cell. An existing column keeps its position.
func (r *Row) Set(column string, v Value) {
	if r.cells == nil {
		r.cells = make(map[string]Value)
	}
	if _, ok := r.cells[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.cells[column] = v
}

func (r Row) Get(column string) (Value, bool) {
	v, ok := r.cells[column]
	return v, ok
}

func (r Row) Columns() []string {
	return append([]string(nil), r.columns...)
}

func (r Row) Len() int { return len(r.columns) }

// Table is the ordered concatenation of rows from every endpoint. Its
// column set is the union of row columns in first-seen order.
type Table struct {
	columns []string
	seen    map[string]struct{}
	rows    []Row
}

func NewTable() *Table {
	return &Table{seen: make(map[string]struct{})}
}

// Append adds rows at the end of the table.
func (t *Table) Append(rows ...Row) {
	for _, row := range rows {
		for _, c := range row.columns {
			if _, ok := t.seen[c]; ok {
				continue
			}
			t.seen[c] = struct{}{}
			t.columns = append(t.columns, c)
		}
		t.rows = append(t.rows, row)
	}
}

func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

func (t *Table) Rows() []Row { return t.rows }

func (t *Table) Len() int { return len(t.rows) }

// Records returns the header followed by one string slice per row.
// Cells a row does not carry are empty.
func (t *Table) Records() [][]string {
	records := make([][]string, 0, len(t.rows)+1)
	records = append(records, t.Columns())
	for _, row := range t.rows {
		record := make([]string, len(t.columns))
		for i, c := range t.columns {
			if v, ok := row.cells[c]; ok {
				record[i] = v.String()
			}
		}
		records = append(records, record)
	}
	return records
}
