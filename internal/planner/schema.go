package planner

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// outlineSchema constrains the planner's LLM output before any of it is
// trusted: chapter and section counts, required fields, and word targets.
const outlineSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["chapters"],
  "properties": {
    "title": {"type": "string"},
    "chapters": {
      "type": "array",
      "minItems": 1,
      "maxItems": 10,
      "items": {
        "type": "object",
        "required": ["title", "sections"],
        "properties": {
          "title": {"type": "string", "minLength": 1},
          "perspective": {"type": "string"},
          "sections": {
            "type": "array",
            "minItems": 1,
            "maxItems": 8,
            "items": {
              "type": "object",
              "required": ["title"],
              "properties": {
                "title": {"type": "string", "minLength": 1},
                "guidance": {"type": "string"},
                "target_words": {"type": "integer", "minimum": 0}
              }
            }
          }
        }
      }
    }
  }
}`

var compiledOutlineSchema = jsonschema.MustCompileString("outline.schema.json", outlineSchema)

// outline is the wire shape of the planner's LLM response.
type outline struct {
	Title    string           `json:"title"`
	Chapters []outlineChapter `json:"chapters"`
}

type outlineChapter struct {
	Title       string           `json:"title"`
	Perspective string           `json:"perspective"`
	Sections    []outlineSection `json:"sections"`
}

type outlineSection struct {
	Title       string `json:"title"`
	Guidance    string `json:"guidance"`
	TargetWords int    `json:"target_words"`
}

// parseOutline validates raw JSON against the outline schema and decodes it.
func parseOutline(raw string) (*outline, error) {
	var generic any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return nil, fmt.Errorf("outline is not valid JSON: %w", err)
	}
	if err := compiledOutlineSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("outline failed schema validation: %w", err)
	}

	var o outline
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	if err := dec.Decode(&o); err != nil {
		return nil, fmt.Errorf("decode outline: %w", err)
	}
	return &o, nil
}
