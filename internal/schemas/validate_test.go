package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func auditSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"riskLevel":   map[string]any{"type": "string", "enum": []any{"safe", "warning", "danger"}},
			"issues":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"suggestions": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []any{"riskLevel", "issues", "suggestions"},
	}
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name      string
		document  string
		wantError bool
		wantField string
	}{
		{
			name:     "valid",
			document: `{"riskLevel":"safe","issues":[],"suggestions":[]}`,
		},
		{
			name:      "missing field",
			document:  `{"riskLevel":"safe","issues":[]}`,
			wantError: true,
			wantField: "(root)",
		},
		{
			name:      "enum violation",
			document:  `{"riskLevel":"critical","issues":[],"suggestions":[]}`,
			wantError: true,
			wantField: "riskLevel",
		},
		{
			name:      "wrong item type",
			document:  `{"riskLevel":"warning","issues":[1],"suggestions":[]}`,
			wantError: true,
			wantField: "issues.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument("audit", auditSchema(), []byte(tt.document))
			if !tt.wantError {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "error should be ValidationError type")
			require.NotEmpty(t, verr.Errors)
			assert.Equal(t, tt.wantField, verr.Errors[0].Field)
		})
	}
}

func TestValidateDocument_MalformedDocument(t *testing.T) {
	err := ValidateDocument("audit", auditSchema(), []byte("{ not json"))
	require.Error(t, err)

	var loadErr *SchemaLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "audit", loadErr.Name)
}

func TestValidateJSONString(t *testing.T) {
	schema := `{"type":"object","required":["id"],"properties":{"id":{"type":"string"}}}`

	assert.NoError(t, ValidateJSONString(schema, `{"id":"17915"}`))
	assert.Error(t, ValidateJSONString(schema, `{"id":17915}`))
	assert.Error(t, ValidateJSONString("{ bad", `{}`))
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Errors: []FieldError{{Field: "caption", Message: "is required"}}}
	assert.Contains(t, err.Error(), "1. caption: is required")
}
