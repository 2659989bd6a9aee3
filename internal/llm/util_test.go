package llm

import (
	"testing"
)

func TestCleanJSONBlock_MarkdownCodeBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json code block",
			input:    "```json\n{\"caption\": \"Cuide dos seus pés\"}\n```",
			expected: `{"caption": "Cuide dos seus pés"}`,
		},
		{
			name:     "generic code block",
			input:    "```\n{\"risk\": \"low\"}\n```",
			expected: `{"risk": "low"}`,
		},
		{
			name:     "code block with language",
			input:    "```javascript\n{\"risk\": \"low\"}\n```",
			expected: `{"risk": "low"}`,
		},
		{
			name:     "plain JSON",
			input:    `{"risk": "low"}`,
			expected: `{"risk": "low"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanJSONBlock(tt.input)
			if result != tt.expected {
				t.Errorf("CleanJSONBlock() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestCleanJSONBlock_PreambleText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "preamble before object",
			input:    "Segue o post solicitado:\n{\"headline\": \"Pé diabético\"}",
			expected: `{"headline": "Pé diabético"}`,
		},
		{
			name:     "preamble before array",
			input:    "Hashtags:\n[\"#podologia\", \"#saude\"]",
			expected: `["#podologia", "#saude"]`,
		},
		{
			name:     "trailing chatter",
			input:    "{\"risk\": \"medium\"}\n\nPosso ajudar em algo mais?",
			expected: `{"risk": "medium"}`,
		},
		{
			name:     "escaped quotes",
			input:    "Result: {\"quote\": \"Ela disse \\\"obrigada\\\"\"}",
			expected: `{"quote": "Ela disse \"obrigada\""}`,
		},
		{
			name:     "fenced with preamble inside",
			input:    "```json\nOutput: {\"a\": {\"b\": 1}}\n```",
			expected: `{"a": {"b": 1}}`,
		},
		{
			name:     "no json at all",
			input:    "sem conteúdo",
			expected: "sem conteúdo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanJSONBlock(tt.input)
			if result != tt.expected {
				t.Errorf("CleanJSONBlock() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", `{"k": "v"}`, `{"k": "v"}`},
		{"with array", `{"slides": [1, 2]}`, `{"slides": [1, 2]}`},
		{"trailing text", `{"k": "v"} etc`, `{"k": "v"}`},
		{"braces in string", `{"t": "Olá {nome}!"}`, `{"t": "Olá {nome}!"}`},
		{"unbalanced", `{"k": "v"`, ""},
		{"empty", "", ""},
		{"not an object", "nope", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSONObject(tt.input); got != tt.expected {
				t.Errorf("extractJSONObject() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", `["a", "b"]`, `["a", "b"]`},
		{"nested", `[[1], [2]]`, `[[1], [2]]`},
		{"objects", `[{"id": 1}]`, `[{"id": 1}]`},
		{"trailing text", `[1] extra`, `[1]`},
		{"empty", "", ""},
		{"not an array", "nope", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSONArray(tt.input); got != tt.expected {
				t.Errorf("extractJSONArray() = %q, want %q", got, tt.expected)
			}
		})
	}
}
