// Package aitest provides a scripted generator for tests.
package aitest

import (
	"context"
	"errors"
	"sync"

	"github.com/zhouzirui/daybook/internal/service/ai"
)

// ErrUnavailable is a generic failure for scripted replies.
var ErrUnavailable = errors.New("model unavailable")

// Reply is one scripted answer.
type Reply struct {
	Text string
	Err  error
}

// Fake records every request and answers from a script.
type Fake struct {
	mu      sync.Mutex
	calls   []ai.Request
	respond func(req ai.Request, n int) Reply
}

var _ ai.Generator = (*Fake)(nil)

// New answers each request with fn.
func New(fn func(req ai.Request) (string, error)) *Fake {
	return &Fake{respond: func(req ai.Request, _ int) Reply {
		text, err := fn(req)
		return Reply{Text: text, Err: err}
	}}
}

// Static always answers text.
func Static(text string) *Fake {
	return Sequence(Reply{Text: text})
}

// Failing always answers err.
func Failing(err error) *Fake {
	return Sequence(Reply{Err: err})
}

// Sequence answers replies in order and repeats the last one afterwards.
func Sequence(replies ...Reply) *Fake {
	if len(replies) == 0 {
		replies = []Reply{{Err: ErrUnavailable}}
	}
	return &Fake{respond: func(_ ai.Request, n int) Reply {
		if n >= len(replies) {
			return replies[len(replies)-1]
		}
		return replies[n]
	}}
}

// Generate implements ai.Generator.
func (f *Fake) Generate(ctx context.Context, req ai.Request) (string, error) {
	f.mu.Lock()
	n := len(f.calls)
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	reply := f.respond(req, n)
	return reply.Text, reply.Err
}

// Calls returns a copy of the recorded requests.
func (f *Fake) Calls() []ai.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ai.Request(nil), f.calls...)
}

// CallCount returns how many requests were made.
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// LastCall returns the most recent request, if any.
func (f *Fake) LastCall() (ai.Request, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ai.Request{}, false
	}
	return f.calls[len(f.calls)-1], true
}
