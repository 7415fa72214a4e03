package remoteshell

import (
	"context"
	"fmt"
)

// Call records one Transport invocation for test assertions.
type Call struct {
	Op      string // run|pull|push
	Target  string
	Command string // run only
	Local   string // pull dest / push src
	Remote  string // pull/push remote path
}

// FakeTransport is an in-memory Transport for unit tests. Behavior is
// supplied per operation via function fields; unset fields succeed with
// empty output.
type FakeTransport struct {
	RunFunc  func(target, command string) (string, error)
	PullFunc func(target, remotePath, destDir string) error
	PushFunc func(srcDir, target, remotePath string) error

	Calls []Call
}

func NewFake() *FakeTransport {
	return &FakeTransport{}
}

func (f *FakeTransport) Run(_ context.Context, target, command string) (string, error) {
	f.Calls = append(f.Calls, Call{Op: "run", Target: target, Command: command})
	if f.RunFunc == nil {
		return "", nil
	}
	return f.RunFunc(target, command)
}

func (f *FakeTransport) Pull(_ context.Context, target, remotePath, destDir string) error {
	f.Calls = append(f.Calls, Call{Op: "pull", Target: target, Remote: remotePath, Local: destDir})
	if f.PullFunc == nil {
		return nil
	}
	return f.PullFunc(target, remotePath, destDir)
}

func (f *FakeTransport) Push(_ context.Context, srcDir, target, remotePath string) error {
	f.Calls = append(f.Calls, Call{Op: "push", Target: target, Remote: remotePath, Local: srcDir})
	if f.PushFunc == nil {
		return nil
	}
	return f.PushFunc(srcDir, target, remotePath)
}

// CallsOf returns the recorded calls for one operation.
func (f *FakeTransport) CallsOf(op string) []Call {
	var out []Call
	for _, c := range f.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// UnreachableError mimics a connectivity failure from the real transport.
type UnreachableError struct{ Target string }

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("host unreachable: %s", e.Target)
}
