// Package llmtest provides a scripted llm.Model for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"
)

// Call records one Invoke.
type Call struct {
	System string
	User   string
}

// Reply is what a route returns for one call.
type Reply struct {
	Text string
	Err  error
}

// Model routes each call to the first registered route whose marker
// appears in the system prompt. Routes with several replies hand them
// out in order and repeat the last one.
type Model struct {
	mu       sync.Mutex
	routes   []*route
	fallback Reply
	calls    []Call
}

type route struct {
	marker  string
	replies []Reply
	next    int
	calls   int
}

func New() *Model {
	return &Model{}
}

// On registers replies for prompts containing marker.
func (m *Model) On(marker string, replies ...Reply) *Model {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append(m.routes, &route{marker: marker, replies: replies})
	return m
}

// Default sets the reply for calls no route matches.
func (m *Model) Default(r Reply) *Model {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = r
	return m
}

func (m *Model) Invoke(_ context.Context, system, user string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{System: system, User: user})
	for _, r := range m.routes {
		if !strings.Contains(system, r.marker) {
			continue
		}
		r.calls++
		if len(r.replies) == 0 {
			return "", nil
		}
		reply := r.replies[r.next]
		if r.next < len(r.replies)-1 {
			r.next++
		}
		return reply.Text, reply.Err
	}
	return m.fallback.Text, m.fallback.Err
}

// Calls returns a copy of every recorded call.
func (m *Model) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallCount returns how many calls matched marker's route.
func (m *Model) CallCount(marker string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.routes {
		if r.marker == marker {
			return r.calls
		}
	}
	return 0
}

// Text is shorthand for a successful reply.
func Text(s string) Reply { return Reply{Text: s} }

// Fail is shorthand for an error reply.
func Fail(err error) Reply { return Reply{Err: err} }
