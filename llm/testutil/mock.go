// Package testutil provides test doubles for the llm package.
package testutil

import (
	"context"
	"sync"

	"github.com/draftforge/draftforge/llm"
)

// MockClient is a thread-safe mock completion client.
//
// Behavior precedence per call: CompleteFunc if set, then Err if set,
// then the next entry in Responses, then an empty default response.
//
//	// Scripted responses
//	mock := &testutil.MockClient{
//	    Responses: []*llm.Response{
//	        {Content: `{"passed": true, "violations": []}`, Model: "test-model"},
//	    },
//	}
//
//	// Per-request behavior (e.g. fail only the second call)
//	mock := &testutil.MockClient{
//	    CompleteFunc: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
//	        ...
//	    },
//	}
type MockClient struct {
	mu            sync.Mutex
	requests      []llm.Request
	callCount     int
	responseIndex int

	// CompleteFunc, when set, fully controls each call.
	CompleteFunc func(ctx context.Context, req llm.Request) (*llm.Response, error)

	// Responses are returned in sequence when CompleteFunc is nil.
	Responses []*llm.Response

	// Err, when set, is returned for every call (after CompleteFunc).
	Err error
}

// Complete implements llm.CompletionClient.
func (m *MockClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.callCount++
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	if m.responseIndex < len(m.Responses) {
		resp := m.Responses[m.responseIndex]
		m.responseIndex++
		return resp, nil
	}

	return &llm.Response{Content: "", Model: "test-model"}, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Requests returns a copy of all captured requests.
func (m *MockClient) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent request, or a zero Request if
// Complete was never called.
func (m *MockClient) LastRequest() llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return llm.Request{}
	}
	return m.requests[len(m.requests)-1]
}
