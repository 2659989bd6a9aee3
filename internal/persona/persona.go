// Package persona holds the acting author profile and renders the compliance
// block injected into every generation request.
package persona

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
)

// RecordKey is the store record holding the active persona.
const RecordKey = "persona"

// Persona describes the professional the content is published under.
type Persona struct {
	Name        string `json:"name" validate:"required"`
	Specialty   string `json:"specialty" validate:"required"`
	License     string `json:"license" validate:"required"`
	DefaultTone string `json:"default_tone,omitempty"`
	StyleBio    string `json:"style_bio,omitempty"`
}

// Validate validates the Persona using the validator.
func (p *Persona) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// Default is the persona used until one is configured.
func Default() Persona {
	return Persona{
		Name:        "Dra. Responsável Técnica",
		Specialty:   "Podologia Clínica",
		License:     "CRM 000000",
		DefaultTone: "professional",
	}
}

// Rules is the fixed advertising ruleset every request must follow.
var Rules = []string{
	"Never use sensationalist language, fear appeals or promises of guaranteed results.",
	"Never mention prices, discounts, promotions or payment conditions.",
	"Never claim exclusivity or superiority over other professionals or clinics.",
	"Always identify the author by name and professional license when presenting clinical information.",
	"Do not show before/after comparisons or identifiable patients.",
}

// Render produces the persona and compliance block. The output depends only on p.
func Render(p Persona) string {
	var sb strings.Builder
	sb.WriteString("AUTHOR PROFILE\n")
	fmt.Fprintf(&sb, "Name: %s\n", p.Name)
	fmt.Fprintf(&sb, "Specialty: %s\n", p.Specialty)
	fmt.Fprintf(&sb, "License: %s\n", p.License)
	fmt.Fprintf(&sb, "Default tone: %s\n", p.DefaultTone)
	fmt.Fprintf(&sb, "Style: %s\n", p.StyleBio)
	sb.WriteString("\nCOMPLIANCE RULES\n")
	for i, rule := range Rules {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, rule)
	}
	return sb.String()
}

// Holder is the shared handle to the active persona. Set replaces the whole
// value; readers never observe a partially updated persona.
type Holder struct {
	current atomic.Pointer[Persona]
}

// NewHolder returns a holder seeded with p.
func NewHolder(p Persona) *Holder {
	h := &Holder{}
	h.Set(p)
	return h
}

// Set replaces the active persona. Last write wins.
func (h *Holder) Set(p Persona) {
	h.current.Store(&p)
}

// Current returns a copy of the active persona.
func (h *Holder) Current() Persona {
	if p := h.current.Load(); p != nil {
		return *p
	}
	return Default()
}

// Block renders the active persona.
func (h *Holder) Block() string {
	return Render(h.Current())
}
