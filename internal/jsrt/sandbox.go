// Package jsrt is the JS Sandbox: a single-threaded JS evaluator serving
// the Signature Decipherer's two solvers. All work submitted to a Sandbox
// — evaluating source and calling a named function — runs on one dedicated
// goroutine regardless of which caller submitted it, matching the spec's
// "single dedicated OS thread, MPSC job queue" contract. goja's runtime is
// not safe for concurrent use, so this single-worker-goroutine design is
// also what correctness requires, not just what the spec asks for.
package jsrt

import (
	"context"
	"fmt"

	"github.com/dop251/goja"

	"github.com/ytget/ytdlpp/errs"
)

// job is one unit of work dispatched to the sandbox's worker goroutine.
// Exactly one of eval/call is set.
type job struct {
	eval   string
	call   string
	args   []string
	result chan<- jobResult
}

type jobResult struct {
	value string
	err   error
}

// Sandbox is a per-Extractor (not process-global) JS evaluator. Submissions
// queue on jobs and are drained strictly in submission order by run().
type Sandbox struct {
	jobs   chan job
	done   chan struct{}
	closed chan struct{}
}

// New starts the sandbox's worker goroutine and returns immediately.
func New() *Sandbox {
	s := &Sandbox{
		jobs:   make(chan job, 32),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Sandbox) run() {
	defer close(s.closed)
	vm := goja.New()
	installBrowserStubs(vm)

	for {
		select {
		case <-s.done:
			return
		case j, ok := <-s.jobs:
			if !ok {
				return
			}
			j.result <- s.handle(vm, j)
		}
	}
}

func (s *Sandbox) handle(vm *goja.Runtime, j job) jobResult {
	if j.eval != "" {
		v, err := vm.RunString(j.eval)
		if err != nil {
			return jobResult{err: errs.Wrap(errs.KindInvalidArgument, "sandbox eval failed", err)}
		}
		if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
			return jobResult{value: ""}
		}
		return jobResult{value: v.String()}
	}

	fnVal := vm.Get(j.call)
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return jobResult{err: errs.New(errs.KindInvalidArgument, fmt.Sprintf("no global function %q", j.call))}
	}
	callArgs := make([]goja.Value, len(j.args))
	for i, a := range j.args {
		callArgs[i] = vm.ToValue(a)
	}
	res, err := fn(goja.Undefined(), callArgs...)
	if err != nil {
		return jobResult{err: errs.Wrap(errs.KindInvalidArgument, "sandbox call failed", err)}
	}
	return jobResult{value: res.String()}
}

// Eval runs source on the sandbox's worker goroutine and returns its
// stringified result.
func (s *Sandbox) Eval(ctx context.Context, source string) (string, error) {
	return s.submit(ctx, job{eval: source})
}

// Call invokes a named global function with string arguments, returning its
// stringified result. Used by both solvers to invoke the decipher/n-param
// functions they installed via Eval.
func (s *Sandbox) Call(ctx context.Context, fnName string, args ...string) (string, error) {
	return s.submit(ctx, job{call: fnName, args: args})
}

func (s *Sandbox) submit(ctx context.Context, j job) (string, error) {
	resultCh := make(chan jobResult, 1)
	j.result = resultCh

	select {
	case <-s.closed:
		return "", errs.ErrSandboxClosed
	default:
	}

	select {
	case s.jobs <- j:
	case <-ctx.Done():
		return "", errs.Wrap(errs.KindCancelled, "submit cancelled", ctx.Err())
	case <-s.closed:
		return "", errs.ErrSandboxClosed
	}

	select {
	case r := <-resultCh:
		return r.value, r.err
	case <-ctx.Done():
		return "", errs.Wrap(errs.KindCancelled, "sandbox call cancelled", ctx.Err())
	}
}

// Shutdown unconditionally stops the worker; any in-flight evaluation
// finishes (goja has no true preemption point within RunString — this is
// the pragmatic Go rendering of "interrupted at the next interruptible
// point"), and no further submissions are accepted.
func (s *Sandbox) Shutdown() {
	select {
	case <-s.closed:
		return
	default:
	}
	close(s.done)
	<-s.closed
}

// installBrowserStubs provides no-op document/window/navigator/localStorage
// globals so that typical player-script prologue code which touches
// ambient browser APIs doesn't throw on load.
func installBrowserStubs(vm *goja.Runtime) {
	stub := vm.NewObject()
	catchAll := func(call goja.FunctionCall) goja.Value { return goja.Undefined() }

	for _, name := range []string{"createElement", "getElementById", "querySelector", "addEventListener"} {
		stub.Set(name, catchAll)
	}
	vm.Set("document", stub)

	window := vm.NewObject()
	window.Set("addEventListener", catchAll)
	vm.Set("window", window)
	vm.Set("self", window)
	vm.Set("globalThis", vm.GlobalObject())
	vm.Set("global", vm.GlobalObject())

	navigator := vm.NewObject()
	navigator.Set("userAgent", "Mozilla/5.0")
	vm.Set("navigator", navigator)

	localStorage := vm.NewObject()
	localStorage.Set("getItem", func(call goja.FunctionCall) goja.Value { return goja.Null() })
	localStorage.Set("setItem", catchAll)
	vm.Set("localStorage", localStorage)

	vm.Set("console", map[string]interface{}{
		"log": func(call goja.FunctionCall) goja.Value { return goja.Undefined() },
	})
}
