// Package llmtest provides a scriptable llm.Client for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/jonathan/clinic-studio/internal/llm"
)

// MockClient implements llm.Client with function fields and records every request.
type MockClient struct {
	GenerateFunc func(ctx context.Context, req *llm.Request) (*llm.Response, error)
	GetModelFunc func(tier llm.ModelTier) string
	CloseFunc    func() error

	mu       sync.Mutex
	requests []*llm.Request
}

// Generate records req and delegates to GenerateFunc.
func (m *MockClient) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return &llm.Response{}, nil
}

func (m *MockClient) GetModel(tier llm.ModelTier) string {
	if m.GetModelFunc != nil {
		return m.GetModelFunc(tier)
	}
	return "mock-model"
}

func (m *MockClient) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Requests returns the requests seen so far.
func (m *MockClient) Requests() []*llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*llm.Request(nil), m.requests...)
}

// ImageRequests returns only the image requests seen so far.
func (m *MockClient) ImageRequests() []*llm.Request {
	var out []*llm.Request
	for _, r := range m.Requests() {
		if r.Image {
			out = append(out, r)
		}
	}
	return out
}

// TextRequests returns only the non-image requests seen so far.
func (m *MockClient) TextRequests() []*llm.Request {
	var out []*llm.Request
	for _, r := range m.Requests() {
		if !r.Image {
			out = append(out, r)
		}
	}
	return out
}

// Text returns a response carrying text.
func Text(s string) *llm.Response {
	return &llm.Response{Text: s}
}

// PNG returns a response carrying one inline image.
func PNG(data []byte) *llm.Response {
	return &llm.Response{Images: []llm.Blob{{MIMEType: "image/png", Data: data}}}
}

// PromptText joins the text parts of a request.
func PromptText(req *llm.Request) string {
	var s string
	for _, p := range req.Parts {
		if p.Blob == nil {
			s += p.Text + "\n"
		}
	}
	return s
}

// Blobs returns the inline parts of a request.
func Blobs(req *llm.Request) []llm.Blob {
	var out []llm.Blob
	for _, p := range req.Parts {
		if p.Blob != nil {
			out = append(out, *p.Blob)
		}
	}
	return out
}
