package manifest

import "fmt"

// Tool is one external capability the agent may call.
type Tool struct {
	ID        string `json:"id"`
	Endpoint  string `json:"endpoint"`
	RiskLevel string `json:"risk_level"`
}

// Step is one workflow node. Code, when present, embeds executable
// logic directly in the manifest.
type Step struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Tool string `json:"tool,omitempty"`
	Code string `json:"code,omitempty"`
}

// Edge is a directed workflow transition; Condition is an expression
// evaluated at runtime by the (out of scope) executor.
type Edge struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Condition string `json:"condition,omitempty"`
}

// Integrity declares the manifest's expected source-tree fingerprint.
type Integrity struct {
	SourceRoot   string `json:"source_root"`
	SourceDigest string `json:"source_digest"`
}

// Model is the normalized agent manifest.
type Model struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Tools     []Tool    `json:"tools,omitempty"`
	Steps     []Step    `json:"steps,omitempty"`
	Edges     []Edge    `json:"edges,omitempty"`
	Integrity Integrity `json:"integrity"`
}

// schema is the explicit field description of a raw agent manifest.
var schema = &Schema{Fields: map[string]FieldSpec{
	"name":    {Type: TypeString, Required: true},
	"version": {Type: TypeString},
	"source": {Type: TypeMap, Fields: &Schema{Fields: map[string]FieldSpec{
		"root":   {Type: TypeString, Required: true},
		"digest": {Type: TypeString},
	}}},
	"tools": {Type: TypeList, Elem: &Schema{Fields: map[string]FieldSpec{
		"id":         {Type: TypeString, Required: true},
		"endpoint":   {Type: TypeString, Required: true},
		"risk_level": {Type: TypeString},
	}}},
	"workflow": {Type: TypeMap, Fields: &Schema{Fields: map[string]FieldSpec{
		"steps": {Type: TypeList, Elem: &Schema{Fields: map[string]FieldSpec{
			"id":   {Type: TypeString, Required: true},
			"type": {Type: TypeString, Required: true},
			"tool": {Type: TypeString},
			"code": {Type: TypeString},
		}}},
		"edges": {Type: TypeList, Elem: &Schema{Fields: map[string]FieldSpec{
			"from":      {Type: TypeString, Required: true},
			"to":        {Type: TypeString, Required: true},
			"condition": {Type: TypeString},
		}}},
	}}},
}}

// Normalize validates a resolved manifest document against the schema
// and maps it into the typed model. The returned error, if any, is a
// *SchemaError carrying every offending field path.
func Normalize(doc any) (*Model, error) {
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, &SchemaError{Errors: []FieldError{{Path: "(root)", Message: fmt.Sprintf("manifest must be a mapping, got %T", doc)}}}
	}

	if errs := schema.Validate(root); len(errs) > 0 {
		return nil, &SchemaError{Errors: errs}
	}

	m := &Model{
		Name:    str(root, "name"),
		Version: str(root, "version"),
	}

	if source, ok := root["source"].(map[string]any); ok {
		m.Integrity.SourceRoot = str(source, "root")
		m.Integrity.SourceDigest = str(source, "digest")
	}

	if tools, ok := root["tools"].([]any); ok {
		for _, item := range tools {
			tm := item.(map[string]any)
			m.Tools = append(m.Tools, Tool{
				ID:        str(tm, "id"),
				Endpoint:  str(tm, "endpoint"),
				RiskLevel: str(tm, "risk_level"),
			})
		}
	}

	if wf, ok := root["workflow"].(map[string]any); ok {
		if steps, ok := wf["steps"].([]any); ok {
			for _, item := range steps {
				sm := item.(map[string]any)
				m.Steps = append(m.Steps, Step{
					ID:   str(sm, "id"),
					Type: str(sm, "type"),
					Tool: str(sm, "tool"),
					Code: str(sm, "code"),
				})
			}
		}
		if edges, ok := wf["edges"].([]any); ok {
			for _, item := range edges {
				em := item.(map[string]any)
				m.Edges = append(m.Edges, Edge{
					From:      str(em, "from"),
					To:        str(em, "to"),
					Condition: str(em, "condition"),
				})
			}
		}
	}

	return m, nil
}

// str reads an optional string field from a validated mapping.
func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
