package generator

import (
	"sync"

	"github.com/invopop/jsonschema"
	"google.golang.org/genai"
)

// OutputSchema is the contracted output shape, reflected once from Artifact.
// Fields without omitempty are required.
var OutputSchema = sync.OnceValue(func() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := r.Reflect(&Artifact{})
	// Providers reject the meta keywords, only the shape matters.
	s.Version = ""
	s.ID = ""
	s.Title = "RecruitmentArtifact"
	s.Description = "A job description plus a behavioral interview guide."
	return s
})

// GenAISchema converts a reflected JSON schema into Gemini's schema dialect.
func GenAISchema(s *jsonschema.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{Description: s.Description}
	switch s.Type {
	case "object":
		out.Type = genai.TypeObject
		if s.Properties != nil {
			out.Properties = make(map[string]*genai.Schema, s.Properties.Len())
			for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
				out.Properties[pair.Key] = GenAISchema(pair.Value)
				out.PropertyOrdering = append(out.PropertyOrdering, pair.Key)
			}
		}
		if len(s.Required) > 0 {
			out.Required = append([]string(nil), s.Required...)
		}
	case "array":
		out.Type = genai.TypeArray
		out.Items = GenAISchema(s.Items)
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	default:
		out.Type = genai.TypeString
	}
	return out
}
