package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/yellowduckie/duckline/internal/catalog"
	"github.com/yellowduckie/duckline/internal/model"
)

type pointsDoc struct {
	Data struct {
		Points []map[string]json.RawMessage `json:"points"`
	} `json:"data"`
}

// DecodePoints reads a point-series document of the shape
//
//	{"data": {"points": [{"timestamp": "1704067200", "dominance": [54.1, 45.9]}, ...]}}
//
// and flattens each point into a raw record holding the date field plus
// every field named in extracts, reduced to a single string per its
// extraction mode. A field that does not fit its mode (an array where a
// scalar was expected, an empty array) is left empty so the row parser's
// missing-value policy applies.
func DecodePoints(r io.Reader, dateField string, extracts map[string]catalog.Extract) ([]model.RawRecord, error) {
	var doc pointsDoc
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding points: %w", err)
	}

	out := make([]model.RawRecord, 0, len(doc.Data.Points))
	for _, pt := range doc.Data.Points {
		rec := model.RawRecord{dateField: scalarString(pt[dateField])}
		for field, mode := range extracts {
			raw := pt[field]
			switch mode {
			case catalog.ExtractIndex0:
				rec[field] = firstElement(raw)
			default:
				rec[field] = scalarString(raw)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// scalarString renders a JSON string or number as text. Anything else
// (null, arrays, objects, absent) yields "".
func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '[', '{', 'n', 't', 'f':
		return ""
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return ""
		}
		return n.String()
	}
}

func firstElement(raw json.RawMessage) string {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil || len(arr) == 0 {
		return ""
	}
	return scalarString(arr[0])
}
