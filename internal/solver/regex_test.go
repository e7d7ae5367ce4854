package solver

import (
	"context"
	"testing"

	"github.com/ytget/ytdlpp/internal/jsrt"
)

const fakePlayerSource = `(function(global){
var Xy={
  aa:function(a){a.reverse();},
  bb:function(a,b){a.splice(0,b);}
};
var dsig=function(a){a=a.split("");Xy.aa(a);Xy.bb(a,2);return a.join("");};
var nfun=function(b){var c=b.split("");c.splice(0,1);return c;};
global.decipher=dsig;
global.ntransform=nfun;
})(this);`

func TestRegexSolverExtractsSigFunction(t *testing.T) {
	s := NewRegexSolver(nil)
	snippet, name := s.extractSigFunction(fakePlayerSource)
	if name != "dsig" {
		t.Fatalf("got name %q, want dsig", name)
	}
	if snippet == "" {
		t.Fatal("expected non-empty snippet")
	}
	if !contains(snippet, "Xy") {
		t.Errorf("expected helper object Xy to be inlined, got: %s", snippet)
	}
}

func TestRegexSolverExtractsNFunction(t *testing.T) {
	s := NewRegexSolver(nil)
	snippet, name := s.extractNFunction(fakePlayerSource)
	if snippet == "" {
		t.Fatal("expected to find an n-function candidate")
	}
	if name == "" {
		t.Error("expected a generated name")
	}
}

func TestRegexSolverLoadAndSolveEndToEnd(t *testing.T) {
	sb := jsrt.New()
	defer sb.Shutdown()
	s := NewRegexSolver(sb)

	ok, err := s.LoadPlayer(context.Background(), fakePlayerSource, "player1")
	if err != nil {
		t.Fatalf("LoadPlayer: %v", err)
	}
	if !ok {
		t.Fatal("expected LoadPlayer to report a usable handle")
	}

	if _, ok := s.DecipherSignature(context.Background(), "player1", "abcdef"); !ok {
		t.Error("expected DecipherSignature to succeed")
	}
	if _, ok := s.TransformN(context.Background(), "player1", "abcdef"); !ok {
		t.Error("expected TransformN to succeed")
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
