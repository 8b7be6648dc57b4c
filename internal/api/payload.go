package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gladneycenter/bps-kpi-ingest/internal/models"
)

// Payload is the decoded data field of a KPI response. It is one of
// NoData, RowList, PeriodValueMap or Unrecognized.
type Payload interface {
	isPayload()
}

// NoData means the data field was absent, null or an empty collection.
type NoData struct{}

// RowList is a non-empty array of objects; each object becomes one row.
type RowList struct {
	Rows []models.Row
}

// PeriodValue is one entry of a PeriodValueMap, in source order.
type PeriodValue struct {
	Period string
	Value  models.Value
}

// PeriodValueMap is a non-empty object keyed by period.
type PeriodValueMap struct {
	Entries []PeriodValue
}

// Unrecognized is any other shape. Shape names what was observed.
type Unrecognized struct {
	Shape string
}

func (NoData) isPayload()         {}
func (RowList) isPayload()        {}
func (PeriodValueMap) isPayload() {}
func (Unrecognized) isPayload()   {}

// DecodeResponse reads a KPI response body and classifies its data field.
// Object key order is preserved throughout.
func DecodeResponse(r io.Reader) (Payload, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", ErrSchema, err)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: response is not a JSON object: %v", ErrSchema, err)
	}
	if envelope == nil {
		return nil, fmt.Errorf("%w: response is not a JSON object: null", ErrSchema)
	}

	data, ok := envelope["data"]
	if !ok {
		return NoData{}, nil
	}
	return decodeData(data)
}

func decodeData(data json.RawMessage) (Payload, error) {
	switch shapeOf(data) {
	case "null":
		return NoData{}, nil

	case "array":
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("%w: decode data array: %v", ErrSchema, err)
		}
		if len(items) == 0 {
			return NoData{}, nil
		}
		rows := make([]models.Row, 0, len(items))
		for _, item := range items {
			if shape := shapeOf(item); shape != "object" {
				return Unrecognized{Shape: "array of " + shape}, nil
			}
			row, err := decodeRow(item)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
		return RowList{Rows: rows}, nil

	case "object":
		fields, err := decodeObject(data)
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			return NoData{}, nil
		}
		entries := make([]PeriodValue, 0, len(fields))
		for _, f := range fields {
			v, err := decodeValue(f.value)
			if err != nil {
				return nil, err
			}
			entries = append(entries, PeriodValue{Period: f.key, Value: v})
		}
		return PeriodValueMap{Entries: entries}, nil

	default:
		return Unrecognized{Shape: shapeOf(data)}, nil
	}
}

type field struct {
	key   string
	value json.RawMessage
}

// decodeObject walks an object token by token so keys keep source order.
func decodeObject(data json.RawMessage) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: decode object: %v", ErrSchema, err)
	}

	var fields []field
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: decode object key: %v", ErrSchema, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: object key %v is not a string", ErrSchema, tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("%w: decode value of %q: %v", ErrSchema, key, err)
		}
		// Duplicate keys: last value wins, first position is kept.
		if i, dup := index[key]; dup {
			fields[i].value = value
			continue
		}
		index[key] = len(fields)
		fields = append(fields, field{key: key, value: value})
	}
	return fields, nil
}

func decodeRow(data json.RawMessage) (models.Row, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return models.Row{}, err
	}
	row := models.NewRow()
	for _, f := range fields {
		v, err := decodeValue(f.value)
		if err != nil {
			return models.Row{}, err
		}
		row.Set(f.key, v)
	}
	return row, nil
}

func decodeValue(data json.RawMessage) (models.Value, error) {
	switch shapeOf(data) {
	case "null":
		return models.Null(), nil
	case "string":
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return models.Value{}, fmt.Errorf("%w: decode string: %v", ErrSchema, err)
		}
		return models.String(s), nil
	case "boolean":
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return models.Value{}, fmt.Errorf("%w: decode boolean: %v", ErrSchema, err)
		}
		return models.Bool(b), nil
	case "number":
		v, err := models.Number(string(bytes.TrimSpace(data)))
		if err != nil {
			return models.Value{}, fmt.Errorf("%w: %v", ErrSchema, err)
		}
		return v, nil
	default:
		return models.Raw(data), nil
	}
}

// shapeOf names the JSON type of data from its first significant byte.
func shapeOf(data json.RawMessage) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return "empty"
	}
	switch trimmed[0] {
	case 'n':
		return "null"
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	default:
		return "number"
	}
}
