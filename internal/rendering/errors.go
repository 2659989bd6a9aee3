// Package rendering exports artifacts as standalone HTML pages and PNG
// screenshots rendered by headless Chrome.
package rendering

import "fmt"

// TemplateError is a failure to parse or execute an embedded page template.
type TemplateError struct {
	Page    string
	Message string
	Cause   error
}

func (e *TemplateError) Error() string {
	msg := e.Message
	if e.Page != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Page)
	}
	if e.Cause != nil {
		return fmt.Sprintf("template error: %s: %v", msg, e.Cause)
	}
	return "template error: " + msg
}

func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// RenderError means an artifact could not be turned into a page or image.
// Unsupported kinds carry no cause.
type RenderError struct {
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("render error: %s: %v", e.Message, e.Cause)
	}
	return "render error: " + e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}
