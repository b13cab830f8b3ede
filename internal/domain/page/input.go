package page

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// InputField is one user-entered value from the category form. Value is a
// string, a list, or whatever JSON scalar the client sent.
type InputField struct {
	Key   string
	Value any
}

// Inputs keeps the form fields in the order the client sent them; the first
// field names the project.
type Inputs []InputField

func (in *Inputs) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("input data must be a JSON object")
	}
	out := Inputs{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := kt.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return err
		}
		out = append(out, InputField{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*in = out
	return nil
}

func (in Inputs) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range in {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ProjectTitle is the first field when it is a string, else "<category> project".
func (in Inputs) ProjectTitle(category string) string {
	if len(in) > 0 {
		if s, ok := in[0].Value.(string); ok {
			return s
		}
	}
	return category + " project"
}

// FormatValue renders a field value for a prompt. Lists are comma-joined.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case json.Number:
		return t.String()
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			if item == nil {
				continue
			}
			parts[i] = FormatValue(item)
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(t, ", ")
	case map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
