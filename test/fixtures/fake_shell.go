// Package fixtures provides test helpers shared by unit and integration
// tests.
package fixtures

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/eliteGoblin/wsl-toast/internal/domain"
)

// ShellResponse is a scripted reply for one host shell invocation.
type ShellResponse struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// FakeShell is a scripted domain.HostShell. Responses are matched by
// substring against the submitted script; unmatched scripts get an empty
// success so probes that only check exit codes keep working.
type FakeShell struct {
	mu        sync.Mutex
	available bool
	responses map[string]ShellResponse
	// Calls records every script submitted, in order.
	Calls []string
}

// NewFakeShell creates an available fake shell with no scripted responses.
func NewFakeShell() *FakeShell {
	return &FakeShell{
		available: true,
		responses: map[string]ShellResponse{},
	}
}

// SetAvailable toggles whether the shell claims to exist at all.
func (f *FakeShell) SetAvailable(available bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.available = available
}

// Respond scripts a response for any command containing match.
func (f *FakeShell) Respond(match string, resp ShellResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[match] = resp
}

// Available implements domain.HostShell.
func (f *FakeShell) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

// Run implements domain.HostShell.
func (f *FakeShell) Run(ctx context.Context, script string, timeout time.Duration) (*domain.ShellResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, script)

	for match, resp := range f.responses {
		if strings.Contains(script, match) {
			if resp.Err != nil {
				return nil, resp.Err
			}
			return &domain.ShellResult{
				Stdout:   resp.Stdout,
				Stderr:   resp.Stderr,
				ExitCode: resp.ExitCode,
			}, nil
		}
	}
	return &domain.ShellResult{}, nil
}

// CallCount returns how many submitted scripts contained match.
func (f *FakeShell) CallCount(match string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.Calls {
		if strings.Contains(call, match) {
			n++
		}
	}
	return n
}

// Ensure FakeShell implements domain.HostShell.
var _ domain.HostShell = (*FakeShell)(nil)
