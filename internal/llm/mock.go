package llm

import "context"

// MockClient returns canned responses in order. Intended for tests.
type MockClient struct {
	Responses []string
	Err       error
	Calls     []MockCall

	next int
}

// MockCall records one GenerateResponse invocation.
type MockCall struct {
	Prompt        string
	SystemMessage string
	Temperature   float64
}

var _ Client = (*MockClient)(nil)

func (m *MockClient) GenerateResponse(_ context.Context, prompt, systemMessage string, temperature float64) (*Result, error) {
	m.Calls = append(m.Calls, MockCall{Prompt: prompt, SystemMessage: systemMessage, Temperature: temperature})
	if m.Err != nil {
		return nil, m.Err
	}
	content := ""
	if m.next < len(m.Responses) {
		content = m.Responses[m.next]
		m.next++
	}
	return &Result{Content: content}, nil
}
