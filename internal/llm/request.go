package llm

// Blob is inline binary content (image, audio) sent to or returned by the backend.
type Blob struct {
	MIMEType string
	Data     []byte
}

// Part is one content part of a request: text or inline data.
type Part struct {
	Text string
	Blob *Blob
}

// TextPart returns a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// BlobPart returns an inline data part.
func BlobPart(mimeType string, data []byte) Part {
	return Part{Blob: &Blob{MIMEType: mimeType, Data: data}}
}

// Request is a single generation call.
type Request struct {
	Tier  ModelTier
	Parts []Part
	// Schema, when set, asks for a JSON reply shaped like it.
	Schema      *Schema
	Temperature float32
	// Image requests an image reply; AspectRatio is "1:1" or "9:16".
	Image       bool
	AspectRatio string
}

// Response is the backend reply.
type Response struct {
	Text   string
	Images []Blob
}

// SchemaType enumerates the JSON value types a Schema can declare.
type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
	TypeString  SchemaType = "string"
	TypeInteger SchemaType = "integer"
	TypeNumber  SchemaType = "number"
	TypeBoolean SchemaType = "boolean"
)

// Schema describes the structured reply a generator expects.
type Schema struct {
	Type        SchemaType
	Description string
	Properties  map[string]*Schema
	Required    []string
	Items       *Schema
	Enum        []string
}

// Object builds an object schema requiring every listed property.
func Object(props map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: TypeObject, Properties: props, Required: required}
}

// ArrayOf builds an array schema.
func ArrayOf(items *Schema) *Schema {
	return &Schema{Type: TypeArray, Items: items}
}

// String builds a string schema with a description.
func String(description string) *Schema {
	return &Schema{Type: TypeString, Description: description}
}

// Enum builds a string schema restricted to values.
func Enum(values ...string) *Schema {
	return &Schema{Type: TypeString, Enum: values}
}

// Integer builds an integer schema with a description.
func Integer(description string) *Schema {
	return &Schema{Type: TypeInteger, Description: description}
}

// JSONSchema renders the schema as a JSON Schema document.
func (s *Schema) JSONSchema() map[string]any {
	if s == nil {
		return map[string]any{}
	}
	out := map[string]any{"type": string(s.Type)}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		enum := make([]any, len(s.Enum))
		for i, v := range s.Enum {
			enum[i] = v
		}
		out["enum"] = enum
	}
	if s.Items != nil {
		out["items"] = s.Items.JSONSchema()
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			props[name] = prop.JSONSchema()
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		required := make([]any, len(s.Required))
		for i, v := range s.Required {
			required[i] = v
		}
		out["required"] = required
	}
	return out
}
