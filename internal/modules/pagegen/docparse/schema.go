package docparse

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// modelOutputSchema only pins the container shapes. Individual blocks are
// coerced in code so one sloppy block cannot sink a whole page, and presence
// of the block array is checked in code so the alias key can be accepted.
const modelOutputSchema = `{
  "type": "object",
  "properties": {
    "content": {"type": ["array", "null"]},
    "blocks":  {"type": ["array", "null"]},
    "root":    {"type": ["object", "null"]},
    "theme":   {"type": ["object", "null"]}
  }
}`

// documentSchema is what a stored page must look like.
const documentSchema = `{
  "type": "object",
  "required": ["content"],
  "properties": {
    "content": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type", "props"],
        "properties": {
          "type":  {"type": "string", "minLength": 1},
          "props": {"type": "object"}
        }
      }
    },
    "root": {
      "type": "object",
      "properties": {"props": {"type": "object"}}
    },
    "theme": {"type": "object"}
  }
}`

var (
	schemaOnce  sync.Once
	modelSchema *gojsonschema.Schema
	docSchema   *gojsonschema.Schema
	schemaErr   error
)

func schemas() (*gojsonschema.Schema, *gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		modelSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(modelOutputSchema))
		if schemaErr != nil {
			return
		}
		docSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
	})
	return modelSchema, docSchema, schemaErr
}

func violations(s *gojsonschema.Schema, raw []byte) ([]string, error) {
	res, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, err
	}
	if res.Valid() {
		return nil, nil
	}
	out := make([]string, len(res.Errors()))
	for i, desc := range res.Errors() {
		out[i] = desc.String()
	}
	return out, nil
}

// ValidateDocument checks a stored page against the document schema and
// returns one message per violation. A nil slice means the page is valid.
func ValidateDocument(raw []byte) ([]string, error) {
	_, doc, err := schemas()
	if err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}
	return violations(doc, raw)
}
