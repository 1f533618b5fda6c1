package fs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/aretw0/tagvault/pkg/core"
)

// encodeRecords renders a collection as an indented JSON array.
func encodeRecords(records []core.Record) ([]byte, error) {
	if records == nil {
		records = []core.Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeRecords parses a JSON array of objects. Numbers are kept as
// json.Number so large integers (timestamps) survive a round trip.
func decodeRecords(data []byte) ([]core.Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []core.Record{}, nil
	}
	var records []core.Record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	if records == nil {
		records = []core.Record{}
	}
	return records, nil
}

// normalize converts an arbitrary value into the shape produced by
// decodeRecords, so stored values and query values compare equal.
// The result never aliases v.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeRecord(r core.Record) (core.Record, error) {
	v, err := normalize(r)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return core.Record{}, nil
	}
	return core.Record(m), nil
}

// cloneRecord deep-copies a normalized record.
func cloneRecord(r core.Record) core.Record {
	out := make(core.Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = cloneValue(val)
		}
		return s
	default:
		return v
	}
}

func valuesEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
