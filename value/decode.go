package value

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	gojson "github.com/goccy/go-json"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrMalformed is returned when a payload cannot be parsed as rows.
var ErrMalformed = errors.New("malformed row payload")

// DecodeJSONRows parses a JSON array of objects, or a single object, into rows.
//
// Numbers keep their integer-ness: 3 becomes KindInt, 3.0 and 1e2 become
// KindFloat. Integers beyond int64 are parsed as floats.
func DecodeJSONRows(data []byte) ([]Row, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return rowsFrom(NormalizeJSON(raw))
}

// DecodeMsgpackRows parses a MessagePack array of maps, or a single map, into rows.
func DecodeMsgpackRows(data []byte) ([]Row, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var raw any
	if err := msgpack.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return rowsFrom(raw)
}

// EncodeMsgpackRows is the inverse of DecodeMsgpackRows.
func EncodeMsgpackRows(rows []Row) ([]byte, error) {
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		m := make(map[string]any, len(r))
		for k, v := range r {
			m[k] = v.Interface()
		}
		out[i] = m
	}
	return msgpack.Marshal(out)
}

func rowsFrom(raw any) ([]Row, error) {
	switch t := raw.(type) {
	case map[string]any:
		r, err := FromMap(t)
		if err != nil {
			return nil, err
		}
		return []Row{r}, nil
	case []any:
		rows := make([]Row, len(t))
		for i, e := range t {
			m, ok := e.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: row %d is %T, want object", ErrMalformed, i, e)
			}
			r, err := FromMap(m)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			rows[i] = r
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("%w: top level is %T, want array or object", ErrMalformed, raw)
	}
}

// NormalizeJSON replaces json.Number leaves (from a decoder in UseNumber
// mode) with int64 or float64, recursing into slices and maps.
func NormalizeJSON(x any) any {
	switch t := x.(type) {
	case gojson.Number:
		s := t.String()
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		f, _ := strconv.ParseFloat(s, 64)
		return f
	case []any:
		for i := range t {
			t[i] = NormalizeJSON(t[i])
		}
		return t
	case map[string]any:
		for k, v := range t {
			t[k] = NormalizeJSON(v)
		}
		return t
	default:
		return x
	}
}
