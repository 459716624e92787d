package chartink

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StockColumn is the column every row carries the group name under.
const StockColumn = "Stock"

type Field struct {
	Name  string
	Value Value
}

// Row is one entity (usually a stock) returned by a query.
type Row struct {
	Stock string
	// Fields are in the order they first appeared in the response.
	Fields []Field
}

// Get returns the value of a column, StockColumn included.
func (r Row) Get(name string) (Value, bool) {
	if name == StockColumn {
		return Text(r.Stock), true
	}
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

func (r *Row) set(name string, value Value) {
	for i, f := range r.Fields {
		if f.Name == name {
			r.Fields[i].Value = value
			return
		}
	}
	r.Fields = append(r.Fields, Field{Name: name, Value: value})
}

// ResultSet is the shaped output of one query.
type ResultSet struct {
	// Columns is the union of all row field names in order of first
	// appearance, StockColumn is not included.
	Columns []string
	Rows    []Row
}

func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

type rawField struct {
	key   string
	value json.RawMessage
}

// orderedFields is a json object decoded with its key order preserved.
type orderedFields []rawField

func (f *orderedFields) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected result object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected field name, got %v", tok)
		}
		var value json.RawMessage
		err = dec.Decode(&value)
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		*f = append(*f, rawField{key: key, value: value})
	}
	_, err = dec.Token()
	return err
}

type widgetGroup struct {
	Name    string          `json:"name"`
	Results []orderedFields `json:"results"`
}

type widgetResponse struct {
	// nil when the response has no groupData key at all
	GroupData *[]widgetGroup `json:"groupData"`
}

// scalarValue converts a decoded json scalar into a Value.
func scalarValue(decoded any) Value {
	switch v := decoded.(type) {
	case nil:
		return NotAvailable
	case float64:
		return Number(v)
	case string:
		return Text(v)
	case bool:
		return Text(fmt.Sprint(v))
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return Text(fmt.Sprint(v))
		}
		return Text(string(encoded))
	}
}

// fieldValue takes the last element of a series, or the value itself if it
// is not a series. An empty series is NotAvailable.
func fieldValue(raw json.RawMessage) (Value, error) {
	var decoded any
	err := json.Unmarshal(raw, &decoded)
	if err != nil {
		return Value{}, err
	}
	series, ok := decoded.([]any)
	if !ok {
		return scalarValue(decoded), nil
	}
	if len(series) == 0 {
		return NotAvailable, nil
	}
	return scalarValue(series[len(series)-1]), nil
}

// Shape turns a raw widget response into a ResultSet.
//
// A response without a groupData key has no data, (nil, nil) is returned.
// A response that is not shaped like {"groupData": [{"name": ..., "results": [{...}]}]}
// returns a *MalformedResponseError.
func Shape(body []byte) (*ResultSet, error) {
	var res widgetResponse
	err := json.Unmarshal(body, &res)
	if err != nil {
		return nil, &MalformedResponseError{Err: err}
	}
	if res.GroupData == nil {
		return nil, nil
	}

	out := &ResultSet{Rows: make([]Row, 0, len(*res.GroupData))}
	seen := map[string]struct{}{}

	for gi, group := range *res.GroupData {
		row := Row{Stock: group.Name}
		for _, result := range group.Results {
			for _, field := range result {
				value, err := fieldValue(field.value)
				if err != nil {
					return nil, &MalformedResponseError{
						Err: fmt.Errorf("group %d field %q: %w", gi, field.key, err),
					}
				}
				name := TitleCase(field.key)
				if name == StockColumn {
					// a field named like the stock column replaces the group name
					row.Stock = value.String()
					continue
				}
				row.set(name, value)

				if _, ok := seen[name]; !ok {
					seen[name] = struct{}{}
					out.Columns = append(out.Columns, name)
				}
			}
		}
		out.Rows = append(out.Rows, row)
	}

	return out, nil
}
