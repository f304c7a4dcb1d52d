package tqs

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/p-n-ai/pai-tos/internal/qtype"
)

// family groups question types that share a response shape.
type family int

const (
	familyShort family = iota
	familyChoice
	familyConstructed
)

func familyOf(questionType string) family {
	switch questionType {
	case qtype.MCQ:
		return familyChoice
	case qtype.Essay, qtype.ProblemSolving, qtype.Drawing:
		return familyConstructed
	default:
		return familyShort
	}
}

const rubricSchema = `{
	"type": "object",
	"required": ["criteria"],
	"properties": {
		"criteria": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["descriptor", "points"],
				"properties": {
					"descriptor": {"type": "string"},
					"points": {"type": "number"}
				}
			}
		},
		"total_points": {"type": "number"}
	}
}`

var itemSchemas = map[family]string{
	familyChoice: `{
		"type": "object",
		"required": ["question_text", "choices", "correct_answer"],
		"properties": {
			"question_text": {"type": "string", "minLength": 1},
			"choices": {"type": "array", "minItems": 2, "maxItems": 6, "items": {"type": "string"}},
			"correct_answer": {"type": "string", "minLength": 1}
		}
	}`,
	familyShort: `{
		"type": "object",
		"required": ["question_text", "answer_key"],
		"properties": {
			"question_text": {"type": "string", "minLength": 1},
			"answer_key": {"type": "string"},
			"rubric": {"oneOf": [{"type": "null"}, ` + rubricSchema + `]}
		}
	}`,
	familyConstructed: `{
		"type": "object",
		"required": ["question_text", "sample_answer", "rubric"],
		"properties": {
			"question_text": {"type": "string", "minLength": 1},
			"sample_answer": {"type": "string"},
			"rubric": ` + rubricSchema + `
		}
	}`,
}

var compiledSchemas = sync.OnceValues(func() (map[family]*gojsonschema.Schema, error) {
	out := make(map[family]*gojsonschema.Schema, len(itemSchemas))
	for f, item := range itemSchemas {
		doc := `{
			"type": "object",
			"required": ["questions"],
			"properties": {"questions": {"type": "array", "items": ` + item + `}}
		}`
		s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
		if err != nil {
			return nil, fmt.Errorf("compiling schema for family %d: %w", f, err)
		}
		out[f] = s
	}
	return out, nil
})

// validatePayload checks a response document against the schema for
// questionType.
func validatePayload(questionType, doc string) error {
	schemas, err := compiledSchemas()
	if err != nil {
		return err
	}
	result, err := schemas[familyOf(questionType)].Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return fmt.Errorf("validating response: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidResponse, strings.Join(msgs, "; "))
}
