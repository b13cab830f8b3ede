package docparse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dydqjadlsp/detailpage/internal/domain/page"
)

var ErrNoObject = errors.New("no json object in text")

// ParseError reports model output that could not be turned into a page.
type ParseError struct {
	Reason     string
	Violations []string
	Err        error
}

func (e *ParseError) Error() string {
	msg := "parse page: " + e.Reason
	if len(e.Violations) > 0 {
		msg += ": " + strings.Join(e.Violations, "; ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// Extract returns the span from the first '{' to the last '}' in text. Prose
// or code fences around the object are ignored.
func Extract(text string) ([]byte, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, &ParseError{Reason: "no json object found", Err: ErrNoObject}
	}
	return []byte(text[start : end+1]), nil
}

// Parse turns raw model text into a repaired page document.
func Parse(text string) (page.Document, error) {
	obj, err := Extract(text)
	if err != nil {
		return page.Document{}, err
	}
	return Decode(obj)
}

// Decode validates and repairs a single JSON object. Items of the block
// array that are not objects are dropped, a missing or non-string type
// becomes "Unknown", block ids are backfilled as "<type>-<index>" and the
// root always carries a title.
func Decode(obj []byte) (page.Document, error) {
	if !json.Valid(obj) {
		var probe any
		err := json.Unmarshal(obj, &probe)
		return page.Document{}, &ParseError{Reason: "invalid json", Err: err}
	}
	model, _, err := schemas()
	if err != nil {
		return page.Document{}, fmt.Errorf("compile model schema: %w", err)
	}
	v, err := violations(model, obj)
	if err != nil {
		return page.Document{}, &ParseError{Reason: "schema check failed", Err: err}
	}
	if len(v) > 0 {
		return page.Document{}, &ParseError{Reason: "unexpected document shape", Violations: v}
	}

	var raw struct {
		Content json.RawMessage `json:"content"`
		Blocks  json.RawMessage `json:"blocks"`
		Root    *struct {
			Props map[string]any `json:"props"`
		} `json:"root"`
		Theme map[string]any `json:"theme"`
	}
	dec := json.NewDecoder(bytes.NewReader(obj))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return page.Document{}, &ParseError{Reason: "invalid json", Err: err}
	}

	list := raw.Content
	if isNull(list) {
		list = raw.Blocks
	}
	if isNull(list) {
		return page.Document{}, &ParseError{Reason: "missing content array"}
	}
	var items []any
	dec = json.NewDecoder(bytes.NewReader(list))
	dec.UseNumber()
	if err := dec.Decode(&items); err != nil {
		return page.Document{}, &ParseError{Reason: "invalid content array", Err: err}
	}

	doc := page.Document{Content: AssignIDs(coerceBlocks(items)), Theme: raw.Theme}
	props := map[string]any{}
	if raw.Root != nil && raw.Root.Props != nil {
		props = raw.Root.Props
	}
	if t, _ := props["title"].(string); strings.TrimSpace(t) == "" {
		props["title"] = page.DefaultRootTitle
	}
	doc.Root = page.Root{Props: props}
	return doc, nil
}

func coerceBlocks(items []any) []page.Block {
	out := make([]page.Block, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		typ, _ := m["type"].(string)
		typ = strings.TrimSpace(typ)
		if typ == "" {
			typ = page.KindUnknown.String()
		}
		props, _ := m["props"].(map[string]any)
		out = append(out, page.Block{Type: typ, Props: page.Props(props)})
	}
	return out
}

func isNull(m json.RawMessage) bool {
	s := bytes.TrimSpace(m)
	return len(s) == 0 || bytes.Equal(s, []byte("null"))
}

// AssignIDs gives every block a non-empty id unique within the slice. Ids
// the model supplied are kept unless they repeat; missing or repeated ids
// become "<type>-<index>", suffixed when that is already taken.
func AssignIDs(blocks []page.Block) []page.Block {
	out := make([]page.Block, len(blocks))
	taken := make(map[string]bool, len(blocks))
	needs := make([]bool, len(blocks))

	for i, b := range blocks {
		if b.Props == nil {
			b.Props = page.Props{}
		}
		out[i] = b
		id := strings.TrimSpace(b.ID())
		if id == "" || taken[id] {
			needs[i] = true
			continue
		}
		taken[id] = true
	}

	for i, b := range out {
		if !needs[i] {
			continue
		}
		base := strings.ToLower(strings.TrimSpace(b.Type)) + "-" + strconv.Itoa(i)
		id := base
		for n := 2; taken[id]; n++ {
			id = base + "-" + strconv.Itoa(n)
		}
		taken[id] = true
		out[i] = b.WithProp(page.PropID, id)
	}
	return out
}
