package generation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHashtags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"adds prefix", []string{"podologia", "#saude"}, []string{"#podologia", "#saude"}},
		{"drops duplicates case-insensitively", []string{"#Saude", "saude", "##saude"}, []string{"#Saude"}},
		{"strips inner spaces", []string{"pé diabético"}, []string{"#pédiabético"}},
		{"skips blanks", []string{"", "#", "  "}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHashtags(tt.in))
		})
	}
}

func TestNormalizeHashtags_CapsAtFifteen(t *testing.T) {
	var tags []string
	for i := 0; i < 30; i++ {
		tags = append(tags, fmt.Sprintf("tag%d", i))
	}
	got := NormalizeHashtags(tags)
	assert.Len(t, got, MaxHashtags)
	assert.Equal(t, "#tag14", got[14])
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Fascite Plantar: o que é?": "fascite-plantar-o-que-e",
		"  Pé diabético — cuidados ": "pe-diabetico-cuidados",
		"Joanete (hálux valgo)":      "joanete-halux-valgo",
		"Ação & reação 2026":         "acao-reacao-2026",
		"":                           "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestRenderMarkdown(t *testing.T) {
	html, err := RenderMarkdown("# Título\n\n- um\n- dois")
	assert.NoError(t, err)
	assert.Contains(t, html, "<h1>Título</h1>")
	assert.Contains(t, html, "<li>um</li>")
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 4, CountWords("## Dor no calcanhar\n\n- *manhã*"))
	assert.Equal(t, 0, CountWords("# -- **"))
}
