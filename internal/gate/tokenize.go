package gate

import (
	"errors"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

var errEmptyCommand = errors.New("empty command")

// splitWords splits raw into words using POSIX shell quoting rules without
// performing any expansion. Only a single simple command made of literal,
// single-quoted and double-quoted text is accepted; anything the shell would
// interpret (expansions, substitutions, redirects, assignments, lists) is a
// syntax error here. So is a comment: the shell would silently drop the
// words after an unquoted #.
func splitWords(raw string) ([]string, error) {
	parser := syntax.NewParser(syntax.Variant(syntax.LangPOSIX), syntax.KeepComments(true))
	file, err := parser.Parse(strings.NewReader(raw), "")
	if err != nil {
		return nil, err
	}
	if hasComment(file) {
		return nil, errors.New("unquoted # starts a comment; quote it to pass it as an argument")
	}
	switch len(file.Stmts) {
	case 0:
		return nil, errEmptyCommand
	case 1:
	default:
		return nil, errors.New("multiple commands")
	}

	stmt := file.Stmts[0]
	if stmt.Negated || stmt.Background || stmt.Coprocess || len(stmt.Redirs) > 0 {
		return nil, errors.New("unsupported shell operator")
	}
	call, ok := stmt.Cmd.(*syntax.CallExpr)
	if !ok {
		return nil, errors.New("not a simple command")
	}
	if len(call.Assigns) > 0 {
		return nil, errors.New("variable assignments are not allowed")
	}
	if len(call.Args) == 0 {
		return nil, errEmptyCommand
	}

	words := make([]string, 0, len(call.Args))
	for _, w := range call.Args {
		s, err := literalWord(w)
		if err != nil {
			return nil, err
		}
		words = append(words, s)
	}
	return words, nil
}

func hasComment(file *syntax.File) bool {
	found := false
	syntax.Walk(file, func(node syntax.Node) bool {
		if _, ok := node.(*syntax.Comment); ok {
			found = true
		}
		return !found
	})
	return found
}

// literalWord concatenates the parts of a word, resolving quoting.
func literalWord(w *syntax.Word) (string, error) {
	var b strings.Builder
	for _, part := range w.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			s, err := unescapeBare(p.Value)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		case *syntax.SglQuoted:
			if p.Dollar {
				return "", errors.New("ANSI-C quoting is not allowed")
			}
			b.WriteString(p.Value)
		case *syntax.DblQuoted:
			if p.Dollar {
				return "", errors.New("locale quoting is not allowed")
			}
			for _, inner := range p.Parts {
				lit, ok := inner.(*syntax.Lit)
				if !ok {
					return "", fmt.Errorf("expansion inside double quotes is not allowed")
				}
				b.WriteString(unescapeDouble(lit.Value))
			}
		default:
			return "", fmt.Errorf("shell expansion is not allowed")
		}
	}
	return b.String(), nil
}

// unescapeBare removes backslash escapes from unquoted text. A backslash
// with nothing after it escapes nothing and is an error.
func unescapeBare(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			if i+1 == len(s) {
				return "", errors.New("no character after trailing backslash")
			}
			i++
			if s[i] == '\n' {
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String(), nil
}

// unescapeDouble removes the backslashes that are special inside double
// quotes; all other backslashes are literal.
func unescapeDouble(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '$', '`', '"', '\\':
				i++
			case '\n':
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
