package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/clinic-studio/internal/types"
)

func TestCheckForbiddenPhrases_NoRules(t *testing.T) {
	violations := CheckForbiddenPhrases("cura garantida", nil)
	assert.Empty(t, violations)
}

func TestCheckForbiddenPhrases_Found(t *testing.T) {
	text := "Tratamento de fungos\nCura garantida em 30 dias\nAgende com desconto"

	violations := CheckForbiddenPhrases(text, DefaultRules())
	require.Len(t, violations, 2)

	assert.Equal(t, "cura garantida", violations[0].Phrase)
	assert.Equal(t, types.RiskDanger, violations[0].Risk)
	assert.Equal(t, 2, violations[0].Line)

	assert.Equal(t, "desconto", violations[1].Phrase)
	assert.Equal(t, types.RiskWarning, violations[1].Risk)
	assert.Equal(t, 3, violations[1].Line)
}

func TestCheckForbiddenPhrases_CaseAndAccentInsensitive(t *testing.T) {
	violations := CheckForbiddenPhrases("Método ÚNICO na cidade, PROMOCAO hoje", DefaultRules())
	require.Len(t, violations, 1)
	// One violation per line: the first matching rule wins.
	assert.Equal(t, "promoção", violations[0].Phrase)
}

func TestCheckForbiddenPhrases_WholeWords(t *testing.T) {
	violations := CheckForbiddenPhrases("Os descontos não se aplicam; o melhoramento é gradual", DefaultRules())
	assert.Empty(t, violations)
}

func TestCheckForbiddenPhrases_CollapsesWhitespace(t *testing.T) {
	violations := CheckForbiddenPhrases("fotos de antes   e\tdepois", DefaultRules())
	require.Len(t, violations, 1)
	assert.Equal(t, "antes e depois", violations[0].Phrase)
}

func TestAudit(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   types.RiskLevel
		issues int
	}{
		{name: "safe", text: "A fascite plantar pode ser tratada com acompanhamento.", want: types.RiskSafe},
		{name: "warning", text: "Atendimento sem dor", want: types.RiskWarning, issues: 1},
		{name: "danger wins", text: "Sem dor\nResultado garantido", want: types.RiskDanger, issues: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Audit(tt.text, DefaultRules())
			require.NotNil(t, result)
			assert.Equal(t, tt.want, result.RiskLevel)
			assert.Len(t, result.Issues, tt.issues)
			assert.Len(t, result.Suggestions, tt.issues)
		})
	}
}

func TestAudit_Blank(t *testing.T) {
	assert.Nil(t, Audit("  \n ", DefaultRules()))
}

func TestAudit_DedupesSuggestions(t *testing.T) {
	result := Audit("desconto\npromoção", DefaultRules())
	require.NotNil(t, result)
	assert.Len(t, result.Issues, 2)
	assert.Len(t, result.Suggestions, 1)
}
