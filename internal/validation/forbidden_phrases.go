// Package validation checks text against the health advertising phrase rules
// without calling the model.
package validation

import (
	"bufio"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jonathan/clinic-studio/internal/types"
)

// Rule is one forbidden phrase of the advertising code.
type Rule struct {
	Phrase     string
	Risk       types.RiskLevel
	Issue      string
	Suggestion string
}

// Violation is a rule matched on one line of text.
type Violation struct {
	Phrase     string          `json:"phrase"`
	Risk       types.RiskLevel `json:"risk"`
	Line       int             `json:"line"`
	Issue      string          `json:"issue"`
	Suggestion string          `json:"suggestion,omitempty"`
}

// DefaultRules covers result guarantees, cure claims, sensationalism,
// before/after imagery, price promotion and self-promotion superlatives.
func DefaultRules() []Rule {
	return []Rule{
		{Phrase: "cura garantida", Risk: types.RiskDanger, Issue: "Promessa de cura", Suggestion: "Descreva o tratamento sem garantir resultado"},
		{Phrase: "resultado garantido", Risk: types.RiskDanger, Issue: "Garantia de resultado", Suggestion: "Use 'pode ajudar' ou 'contribui para'"},
		{Phrase: "100% eficaz", Risk: types.RiskDanger, Issue: "Garantia de eficácia", Suggestion: "Cite evidências em vez de percentuais absolutos"},
		{Phrase: "elimina de vez", Risk: types.RiskDanger, Issue: "Promessa de cura definitiva", Suggestion: "Fale em controle e acompanhamento"},
		{Phrase: "milagroso", Risk: types.RiskDanger, Issue: "Linguagem sensacionalista", Suggestion: "Use linguagem técnica e sóbria"},
		{Phrase: "antes e depois", Risk: types.RiskDanger, Issue: "Divulgação de antes e depois", Suggestion: "Remova comparações de resultado de pacientes"},
		{Phrase: "sem dor", Risk: types.RiskWarning, Issue: "Promessa de ausência de dor", Suggestion: "Use 'com conforto' ou 'minimamente desconfortável'"},
		{Phrase: "desconto", Risk: types.RiskWarning, Issue: "Promoção de preço", Suggestion: "Retire valores e condições comerciais do post"},
		{Phrase: "promoção", Risk: types.RiskWarning, Issue: "Promoção de preço", Suggestion: "Retire valores e condições comerciais do post"},
		{Phrase: "o melhor", Risk: types.RiskWarning, Issue: "Autopromoção com superlativo", Suggestion: "Destaque a experiência sem comparação"},
		{Phrase: "único", Risk: types.RiskWarning, Issue: "Exclusividade não comprovada", Suggestion: "Evite afirmar exclusividade de técnica"},
	}
}

var fold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeForMatching lowercases text, folds accents and collapses whitespace.
func normalizeForMatching(text string) string {
	folded, _, err := transform.String(fold, strings.ToLower(text))
	if err != nil {
		folded = strings.ToLower(text)
	}
	return " " + strings.Join(strings.Fields(folded), " ") + " "
}

// CheckForbiddenPhrases reports the first matching rule of every line.
// Matching ignores case and accents and only matches whole words.
func CheckForbiddenPhrases(text string, rules []Rule) []Violation {
	if len(rules) == 0 {
		return []Violation{}
	}

	phrases := make([]string, len(rules))
	for i, r := range rules {
		if p := strings.TrimSpace(normalizeForMatching(r.Phrase)); p != "" {
			phrases[i] = p
		}
	}

	violations := []Violation{}
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := normalizeForMatching(scanner.Text())
		for i, rule := range rules {
			if phrases[i] == "" || !containsWord(line, phrases[i]) {
				continue
			}
			violations = append(violations, Violation{
				Phrase:     rule.Phrase,
				Risk:       rule.Risk,
				Line:       lineNum,
				Issue:      rule.Issue,
				Suggestion: rule.Suggestion,
			})
			break
		}
	}
	return violations
}

// containsWord matches phrase in a normalized line on word boundaries.
func containsWord(line, phrase string) bool {
	for start := 0; ; {
		i := strings.Index(line[start:], phrase)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(phrase)
		if !isWordByte(line[i-1]) && (end >= len(line) || !isWordByte(line[end])) {
			return true
		}
		start = i + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// Audit classifies text with the phrase rules alone. Blank text yields nil.
func Audit(text string, rules []Rule) *types.ComplianceAuditResult {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	result := &types.ComplianceAuditResult{
		RiskLevel:   types.RiskSafe,
		Issues:      []string{},
		Suggestions: []string{},
	}
	seen := map[string]bool{}
	for _, v := range CheckForbiddenPhrases(text, rules) {
		if rank(v.Risk) > rank(result.RiskLevel) {
			result.RiskLevel = v.Risk
		}
		result.Issues = append(result.Issues, v.Issue+": \""+v.Phrase+"\"")
		if v.Suggestion != "" && !seen[v.Suggestion] {
			seen[v.Suggestion] = true
			result.Suggestions = append(result.Suggestions, v.Suggestion)
		}
	}
	return result
}

func rank(level types.RiskLevel) int {
	switch level {
	case types.RiskWarning:
		return 1
	case types.RiskDanger:
		return 2
	}
	return 0
}
