package solver

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/robertkrimen/otto"

	"github.com/ytget/ytdlpp/internal/jsrt"
)

// RegexSolver is the Go rendering of the spec's Solver-Regex: it
// structurally parses the player IIFE with the brace/quote/regex-aware
// scanner in lex.go, identifies the signature and n-transform functions by
// pattern, and loads only those statements (plus, for the signature
// function, whatever single-letter helper object it dispatches through)
// into the sandbox. goja (via the shared jsrt.Sandbox) is tried first; a
// player script that goja's stricter ES5 grammar rejects falls back to a
// per-player otto.Otto VM, which tolerates a looser dialect.
type RegexSolver struct {
	sandbox *jsrt.Sandbox

	mu     sync.Mutex
	loaded map[string]regexHandle // keyed by player_id
	otto   map[string]*otto.Otto  // keyed by player_id, only set on fallback
}

type regexHandle struct {
	sigFn   string
	nFn     string
	viaOtto bool
}

func NewRegexSolver(sandbox *jsrt.Sandbox) *RegexSolver {
	return &RegexSolver{
		sandbox: sandbox,
		loaded:  make(map[string]regexHandle),
		otto:    make(map[string]*otto.Otto),
	}
}

var nFunctionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`function\s*\(\s*([a-zA-Z0-9$_]+)\s*\)\s*\{[^{}]{0,600}?\.split\(`),
	regexp.MustCompile(`function\s*\(\s*([a-zA-Z0-9$_]+)\s*\)\s*\{[^{}]{0,600}?=\s*[a-zA-Z0-9$_]+\.split\(`),
	regexp.MustCompile(`function\s*\(\s*([a-zA-Z0-9$_]+)\s*\)\s*\{[\s\S]{0,1000}?\.split\(""\)`),
}

// LoadPlayer runs the structural parse and, for whatever it manages to
// locate, installs a self-contained snippet (function plus helper object,
// for the signature side) into the sandbox under deterministic names keyed
// by playerID.
func (s *RegexSolver) LoadPlayer(ctx context.Context, source, playerID string) (bool, error) {
	s.mu.Lock()
	if h, ok := s.loaded[playerID]; ok && playerID != "" {
		s.mu.Unlock()
		return h.sigFn != "" || h.nFn != "", nil
	}
	s.mu.Unlock()

	// Step 1-3 (IIFE body extraction, statement split, control-flow
	// filter) validate that the source has the expected shape; the
	// filtered statement list itself isn't used further here because
	// steps 4-5 locate functions directly against the full source (their
	// brace-matched extraction already yields a self-contained
	// definition), but running the split surfaces malformed players as a
	// load failure rather than a confusing downstream eval error.
	if body, ok := findOuterIIFEBody(source); ok {
		stmts := splitTopLevelStatements(body)
		kept := 0
		for _, st := range stmts {
			if !controlFlowStatement(st) {
				kept++
			}
		}
		if kept == 0 {
			return false, fmt.Errorf("regex solver: no usable statements in player IIFE")
		}
	}

	sigSnippet, sigName, sigStart, sigEnd := s.extractSigFunctionRange(source)
	nSource := source
	if sigStart >= 0 {
		// Blank out the signature function's own byte range before
		// searching for the n-transform function: both tend to pipe their
		// argument through a .split("") call, and without this exclusion
		// the n-function patterns can rematch the signature function
		// itself.
		nSource = source[:sigStart] + strings.Repeat(" ", sigEnd-sigStart) + source[sigEnd:]
	}
	nSnippet, nName := s.extractNFunction(nSource)

	suffix := sanitizeIdent(playerID)
	var install strings.Builder
	h := regexHandle{}

	if sigSnippet != "" {
		renamed := sigName + "_" + suffix
		install.WriteString(renameTopLevelFunction(sigSnippet, sigName, renamed))
		install.WriteString(";")
		h.sigFn = renamed
	}
	if nSnippet != "" {
		renamed := nName + "_" + suffix
		install.WriteString(renameTopLevelFunction(nSnippet, nName, renamed))
		install.WriteString(";")
		h.nFn = renamed
	}

	if install.Len() == 0 {
		return false, fmt.Errorf("regex solver: located neither signature nor n-transform function")
	}

	if _, err := s.sandbox.Eval(ctx, install.String()); err != nil {
		// goja rejected the snippet outright (a script using a construct
		// outside its ES5 grammar); retry under otto before giving up.
		vm := otto.New()
		if _, ottoErr := vm.Run(install.String()); ottoErr != nil {
			return false, fmt.Errorf("regex solver: goja failed (%v), otto fallback also failed: %w", err, ottoErr)
		}
		h.viaOtto = true
		s.mu.Lock()
		s.otto[playerID] = vm
		s.loaded[playerID] = h
		s.mu.Unlock()
		return true, nil
	}

	s.mu.Lock()
	s.loaded[playerID] = h
	s.mu.Unlock()
	return true, nil
}

// extractSigFunction finds the `name=function(a){...a=a.split("")...}`
// definition and, if its body dispatches through a single-letter helper
// object (e.g. `Ab.Yz(a,3)`), prepends that object's own definition so the
// snippet is self-contained.
func (s *RegexSolver) extractSigFunction(source string) (snippet, name string) {
	snippet, name, _, _ = s.extractSigFunctionRange(source)
	return snippet, name
}

// extractSigFunctionRange is extractSigFunction plus the [start,end) byte
// range of the located function keyword through its closing brace, so
// callers can mask it out of further searches. start is -1 if nothing was
// found.
func (s *RegexSolver) extractSigFunctionRange(source string) (snippet, name string, start, end int) {
	marker := `a=a.split("`
	idx := strings.Index(source, marker)
	if idx < 0 {
		marker = `a=a.split('`
		idx = strings.Index(source, marker)
	}
	if idx < 0 {
		return "", "", -1, -1
	}

	head := strings.LastIndex(source[:idx], "function")
	if head < 0 {
		return "", "", -1, -1
	}
	declStart := strings.LastIndexByte(source[:head], ';')
	decl := source[declStart+1 : head]
	eq := strings.LastIndex(decl, "=")
	if eq < 0 {
		return "", "", -1, -1
	}
	name = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(decl[:eq]), "var "))
	if !isIdentifier(name) {
		return "", "", -1, -1
	}

	braceOpen := strings.IndexByte(source[head:], '{')
	if braceOpen < 0 {
		return "", "", -1, -1
	}
	braceOpen += head
	braceClose := findMatchingBrace(source, braceOpen)
	if braceClose < 0 {
		return "", "", -1, -1
	}
	fnBody := source[head : braceClose+1]

	helperDecl := s.helperObjectDecl(source, fnBody)
	snippet = "var " + name + " = " + fnBody
	if helperDecl != "" {
		snippet = helperDecl + ";" + snippet
	}
	return snippet, name, head, braceClose + 1
}

// helperObjectDecl looks for a dispatch like `XX.yy(` inside fnBody and,
// if found, locates `var XX={...};` earlier in source and returns it.
func (s *RegexSolver) helperObjectDecl(source, fnBody string) string {
	re := regexp.MustCompile(`\b([a-zA-Z$_][a-zA-Z0-9$_]{0,3})\.[a-zA-Z$_][a-zA-Z0-9$_]*\(`)
	m := re.FindStringSubmatch(fnBody)
	if m == nil {
		return ""
	}
	helperName := m[1]
	objMarker := helperName + "={"
	idx := strings.Index(source, objMarker)
	if idx < 0 {
		return ""
	}
	braceOpen := idx + len(helperName) + 1
	braceClose := findMatchingBrace(source, braceOpen)
	if braceClose < 0 {
		return ""
	}
	return "var " + source[idx:braceClose+1]
}

// extractNFunction tries nFunctionPatterns in order, first match wins.
func (s *RegexSolver) extractNFunction(source string) (snippet, name string) {
	for _, pat := range nFunctionPatterns {
		loc := pat.FindStringIndex(source)
		if loc == nil {
			continue
		}
		head := loc[0]
		braceOpen := strings.IndexByte(source[head:], '{')
		if braceOpen < 0 {
			continue
		}
		braceOpen += head
		braceClose := findMatchingBrace(source, braceOpen)
		if braceClose < 0 {
			continue
		}
		fnSrc := source[head : braceClose+1]
		genName := "__ytdlpp_regex_nfn"
		return "var " + genName + " = " + fnSrc, genName
	}
	return "", ""
}

var identRe = regexp.MustCompile(`^[a-zA-Z$_][a-zA-Z0-9$_]*$`)

func isIdentifier(s string) bool { return identRe.MatchString(s) }

func sanitizeIdent(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "anon"
	}
	return b.String()
}

// renameTopLevelFunction replaces the leading `var NAME = ` in snippet
// (produced by extractSigFunction/extractNFunction) with a per-player
// unique name, so that loading multiple players into the same sandbox
// never collides.
func renameTopLevelFunction(snippet, from, to string) string {
	marker := "var " + from + " = "
	idx := strings.LastIndex(snippet, marker)
	if idx < 0 {
		return snippet
	}
	return snippet[:idx] + "var " + to + " = " + snippet[idx+len(marker):]
}

func (s *RegexSolver) solve(ctx context.Context, playerID, kind, input string) (string, bool) {
	s.mu.Lock()
	h, ok := s.loaded[playerID]
	vm := s.otto[playerID]
	s.mu.Unlock()
	if !ok {
		return "", false
	}
	fnName := h.sigFn
	if kind == "n" {
		fnName = h.nFn
	}
	if fnName == "" {
		return "", false
	}

	if h.viaOtto {
		if vm == nil {
			return "", false
		}
		val, err := vm.Call(fnName, nil, input)
		if err != nil {
			return "", false
		}
		return val.String(), true
	}

	out, err := s.sandbox.Call(ctx, fnName, input)
	if err != nil {
		return "", false
	}
	return out, true
}

func (s *RegexSolver) DecipherSignature(ctx context.Context, playerID, sig string) (string, bool) {
	return s.solve(ctx, playerID, "sig", sig)
}

func (s *RegexSolver) TransformN(ctx context.Context, playerID, n string) (string, bool) {
	return s.solve(ctx, playerID, "n", n)
}
