package solver

import "strings"

// This file implements the minimal quote/regex-literal-aware JS scanning
// Solver-Regex needs to structurally locate the player IIFE and split it
// into top-level statements without a full parser: brace/paren/bracket
// depth tracking that skips over string and regex literal contents so a
// stray '{' or ';' inside a literal never perturbs the count.

// regexPrecedingChars is the set of non-space characters after which a '/'
// begins a regex literal rather than a division operator.
const regexPrecedingChars = "(=,[!:&|?{};"

func isJSSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

func isRegexStart(src []byte, slashIdx int) bool {
	j := slashIdx - 1
	for j >= 0 && isJSSpace(src[j]) {
		j--
	}
	if j < 0 {
		return true
	}
	return strings.IndexByte(regexPrecedingChars, src[j]) >= 0
}

// skipLiteral, given src[i] is the opening character of a string or regex
// literal (or a line/block comment start), returns the index just past its
// end. If src[i] isn't a literal start it returns i unchanged.
func skipLiteral(src []byte, i int) int {
	n := len(src)
	switch {
	case src[i] == '\'' || src[i] == '"':
		quote := src[i]
		j := i + 1
		for j < n {
			if src[j] == '\\' {
				j += 2
				continue
			}
			if src[j] == quote {
				return j + 1
			}
			j++
		}
		return n
	case src[i] == '`':
		j := i + 1
		for j < n {
			if src[j] == '\\' {
				j += 2
				continue
			}
			if src[j] == '`' {
				return j + 1
			}
			j++
		}
		return n
	case src[i] == '/' && i+1 < n && src[i+1] == '/':
		j := i
		for j < n && src[j] != '\n' {
			j++
		}
		return j
	case src[i] == '/' && i+1 < n && src[i+1] == '*':
		j := i + 2
		for j+1 < n && !(src[j] == '*' && src[j+1] == '/') {
			j++
		}
		return j + 2
	case src[i] == '/' && isRegexStart(src, i):
		j := i + 1
		inClass := false
		for j < n {
			switch src[j] {
			case '\\':
				j += 2
				continue
			case '[':
				inClass = true
			case ']':
				inClass = false
			case '/':
				if !inClass {
					return j + 1
				}
			case '\n':
				return j // malformed; bail without consuming the newline
			}
			j++
		}
		return n
	default:
		return i
	}
}

// findMatchingBrace returns the index of the '}' matching src[open]=='{',
// skipping over string/regex/comment literals while counting depth.
func findMatchingBrace(src string, open int) int {
	return findMatchingDelim(src, open, '{', '}')
}

func findMatchingParen(src string, open int) int {
	return findMatchingDelim(src, open, '(', ')')
}

func findMatchingDelim(src string, open int, openC, closeC byte) int {
	b := []byte(src)
	depth := 0
	for i := open; i < len(b); i++ {
		if next := skipLiteral(b, i); next != i {
			i = next - 1
			continue
		}
		switch b[i] {
		case openC:
			depth++
		case closeC:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevelStatements splits body on ';' at paren/brace/bracket depth 0,
// skipping literals. Empty statements are omitted.
func splitTopLevelStatements(body string) []string {
	b := []byte(body)
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(b); i++ {
		if next := skipLiteral(b, i); next != i {
			i = next - 1
			continue
		}
		switch b[i] {
		case '{', '(', '[':
			depth++
		case '}', ')', ']':
			depth--
		case ';':
			if depth == 0 {
				if s := strings.TrimSpace(body[start:i]); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(body[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// controlFlowStatement reports whether stmt is a control-flow statement
// whose keyword spec.md says to filter out of the loaded remainder ("for"
// is deliberately excluded — it may contain definitions).
func controlFlowStatement(stmt string) bool {
	s := strings.TrimSpace(stmt)
	for _, kw := range []string{"try", "if", "return", "throw", "while", "do", "switch", "break", "continue"} {
		if s == kw || strings.HasPrefix(s, kw+" ") || strings.HasPrefix(s, kw+"(") || strings.HasPrefix(s, kw+"{") {
			return true
		}
	}
	return false
}

// findOuterIIFEBody locates the body of the outermost `(function(...){ ...
// })(...)` wrapper and returns it unparenthesized.
func findOuterIIFEBody(source string) (string, bool) {
	b := []byte(source)
	idx := indexOutsideLiterals(b, "function")
	if idx < 0 {
		return "", false
	}

	parenOpen := -1
	for i := idx; i < len(b); i++ {
		if next := skipLiteral(b, i); next != i {
			i = next - 1
			continue
		}
		if b[i] == '(' {
			parenOpen = i
			break
		}
		if b[i] == '{' {
			break // malformed — no parameter list found before a body
		}
	}
	if parenOpen < 0 {
		return "", false
	}
	parenClose := findMatchingParen(source, parenOpen)
	if parenClose < 0 {
		return "", false
	}

	braceOpen := -1
	for i := parenClose + 1; i < len(b); i++ {
		if next := skipLiteral(b, i); next != i {
			i = next - 1
			continue
		}
		if b[i] == '{' {
			braceOpen = i
			break
		}
		if !isJSSpace(b[i]) {
			return "", false
		}
	}
	if braceOpen < 0 {
		return "", false
	}
	braceClose := findMatchingBrace(source, braceOpen)
	if braceClose < 0 {
		return "", false
	}
	return source[braceOpen+1 : braceClose], true
}

// indexOutsideLiterals returns the first index of needle in src that is not
// inside a string, template, regex, or comment literal.
func indexOutsideLiterals(src []byte, needle string) int {
	n := []byte(needle)
	for i := 0; i < len(src); i++ {
		if next := skipLiteral(src, i); next != i {
			i = next - 1
			continue
		}
		if i+len(n) <= len(src) && string(src[i:i+len(n)]) == needle {
			return i
		}
	}
	return -1
}
