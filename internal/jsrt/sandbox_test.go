package jsrt

import (
	"context"
	"testing"
	"time"
)

func TestSandboxEvalAndCall(t *testing.T) {
	s := New()
	defer s.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := s.Eval(ctx, `function double(x) { return String(Number(x) * 2); }`); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	got, err := s.Call(ctx, "double", "21")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != "42" {
		t.Fatalf("got %q, want %q", got, "42")
	}
}

func TestSandboxBrowserStubsDoNotThrow(t *testing.T) {
	s := New()
	defer s.Shutdown()
	ctx := context.Background()

	_, err := s.Eval(ctx, `document.createElement("div"); window.addEventListener("x", function(){}); navigator.userAgent; localStorage.getItem("k");`)
	if err != nil {
		t.Fatalf("expected prologue-style code touching stub globals to not throw: %v", err)
	}
}

func TestSandboxCallMissingFunction(t *testing.T) {
	s := New()
	defer s.Shutdown()
	ctx := context.Background()

	if _, err := s.Call(ctx, "doesNotExist", "x"); err == nil {
		t.Fatal("expected error calling a function that was never defined")
	}
}

func TestSandboxShutdownRejectsFurtherSubmissions(t *testing.T) {
	s := New()
	s.Shutdown()

	ctx := context.Background()
	if _, err := s.Eval(ctx, `1`); err == nil {
		t.Fatal("expected error submitting to a shut-down sandbox")
	}
}

func TestSandboxSerializesConcurrentCalls(t *testing.T) {
	s := New()
	defer s.Shutdown()
	ctx := context.Background()

	if _, err := s.Eval(ctx, `var counter = 0; function bump() { counter += 1; return String(counter); }`); err != nil {
		t.Fatalf("Eval: %v", err)
	}

	const n = 20
	results := make(chan string, n)
	for i := 0; i < n; i++ {
		go func() {
			v, err := s.Call(ctx, "bump")
			if err != nil {
				t.Error(err)
			}
			results <- v
		}()
	}
	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		seen[<-results] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct serialized results, got %d", n, len(seen))
	}
}
