// Package prompts holds the generation instructions. Prompt files are JSON
// objects of key to template, embedded at compile time.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// StudioFile holds the instructions of every content generator.
const StudioFile = "studio.json"

// Set is one parsed prompt file.
type Set map[string]string

// loaded caches parsed files by name.
var loaded sync.Map

// Load parses an embedded prompt file once and returns the cached set.
func Load(filename string) (Set, error) {
	if set, ok := loaded.Load(filename); ok {
		return set.(Set), nil
	}

	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}
	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	actual, _ := loaded.LoadOrStore(filename, set)
	return actual.(Set), nil
}

// Get returns the template stored under key.
func (s Set) Get(key string) (string, error) {
	prompt, ok := s[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found", key)
	}
	return prompt, nil
}

// Keys lists the prompt keys in sorted order.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Get retrieves a prompt by filename and key.
func Get(filename, key string) (string, error) {
	set, err := Load(filename)
	if err != nil {
		return "", err
	}
	prompt, err := set.Get(key)
	if err != nil {
		return "", fmt.Errorf("%s: %w", filename, err)
	}
	return prompt, nil
}

// MustGet is Get for prompts that ship with the binary. It panics on a
// missing file or key.
func MustGet(filename, key string) string {
	prompt, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return prompt
}

var placeholder = regexp.MustCompile(`\{\{\.([A-Za-z][A-Za-z0-9]*)\}\}`)

// Format replaces {{.Key}} placeholders with values from data in one pass,
// so values are never expanded themselves. Placeholders without a value
// are left in place.
func Format(template string, data map[string]string) string {
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		if value, ok := data[m[3:len(m)-2]]; ok {
			return value
		}
		return m
	})
}

// Placeholders lists the distinct placeholder names of a template in order
// of first use.
func Placeholders(template string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// ClearCache drops parsed files.
func ClearCache() {
	loaded.Range(func(key, _ any) bool {
		loaded.Delete(key)
		return true
	})
}
