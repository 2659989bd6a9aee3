package persona

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePersona() Persona {
	return Persona{
		Name:        "Dra. Ana Souza",
		Specialty:   "Ortopedia",
		License:     "CRM-SP 123456",
		DefaultTone: "empathetic",
		StyleBio:    "Explica com calma e exemplos do dia a dia.",
	}
}

func TestRender_Deterministic(t *testing.T) {
	p := samplePersona()
	assert.Equal(t, Render(p), Render(p))
}

func TestRender_EveryFieldMatters(t *testing.T) {
	base := Render(samplePersona())

	mutations := map[string]func(*Persona){
		"name":      func(p *Persona) { p.Name = "Dr. Bruno Lima" },
		"specialty": func(p *Persona) { p.Specialty = "Dermatologia" },
		"license":   func(p *Persona) { p.License = "CRM-RJ 654321" },
		"tone":      func(p *Persona) { p.DefaultTone = "casual" },
		"bio":       func(p *Persona) { p.StyleBio = "Direto ao ponto." },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			p := samplePersona()
			mutate(&p)
			assert.NotEqual(t, base, Render(p))
		})
	}
}

func TestRender_IncludesRules(t *testing.T) {
	out := Render(samplePersona())
	assert.Contains(t, out, "CRM-SP 123456")
	for _, rule := range Rules {
		assert.Contains(t, out, rule)
	}
}

func TestHolder_ReplacesWholesale(t *testing.T) {
	h := NewHolder(samplePersona())

	h.Set(Persona{Name: "Dr. Bruno Lima", Specialty: "Dermatologia", License: "CRM-RJ 1"})

	got := h.Current()
	assert.Equal(t, "Dr. Bruno Lima", got.Name)
	assert.Empty(t, got.StyleBio, "no merge with the previous persona")
	assert.Equal(t, Render(got), h.Block())
}

func TestHolder_CurrentIsACopy(t *testing.T) {
	h := NewHolder(samplePersona())
	p := h.Current()
	p.Name = "mutated"
	assert.Equal(t, "Dra. Ana Souza", h.Current().Name)
}

func TestHolder_ZeroValueFallsBackToDefault(t *testing.T) {
	var h Holder
	assert.Equal(t, Default(), h.Current())
}

func TestHolder_ConcurrentReadersSeeWholeValues(t *testing.T) {
	a := samplePersona()
	b := Persona{Name: "B", Specialty: "B", License: "B"}
	h := NewHolder(a)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				h.Set(a)
				h.Set(b)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				got := h.Current()
				if got != a && got != b {
					t.Errorf("torn read: %+v", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestPersona_Validate(t *testing.T) {
	p := samplePersona()
	require.NoError(t, p.Validate())

	p.License = ""
	assert.Error(t, p.Validate())
}
