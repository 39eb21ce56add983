// Package shelltest provides a recording shell.Runner for tests.
package shelltest

import (
	"context"
	"sync"

	"github.com/oarkflow/apkreleaser/internal/shell"
)

// Fake records every command. Handler, when set, decides the result of Run
// and Output; Outputs supplies canned stdout keyed by Command.String().
type Fake struct {
	Handler func(cmd shell.Command) error
	Outputs map[string]string

	mu    sync.Mutex
	calls []shell.Command
}

// Run implements shell.Runner.
func (f *Fake) Run(ctx context.Context, cmd shell.Command) error {
	f.record(cmd)
	if f.Handler != nil {
		return f.Handler(cmd)
	}
	return nil
}

// Output implements shell.Runner.
func (f *Fake) Output(ctx context.Context, cmd shell.Command) (string, error) {
	f.record(cmd)
	if f.Handler != nil {
		if err := f.Handler(cmd); err != nil {
			return "", err
		}
	}
	return f.Outputs[cmd.String()], nil
}

// Calls returns the recorded commands in order.
func (f *Fake) Calls() []shell.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]shell.Command(nil), f.calls...)
}

func (f *Fake) record(cmd shell.Command) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)
}
