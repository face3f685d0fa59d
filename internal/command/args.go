package command

import (
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"
)

// splitArgs tokenizes free-form extra arguments with shell quoting rules.
// Quotes and escapes are removed, while parameter expansions and command
// substitutions are printed back verbatim so the result never depends on the
// environment. Input that is not a plain list of words falls back to
// whitespace splitting.
func splitArgs(args string) []string {
	if strings.TrimSpace(args) == "" {
		return nil
	}

	var tokens []string
	for w, err := range syntax.NewParser().WordsSeq(strings.NewReader(args)) {
		if err != nil {
			return strings.Fields(args)
		}
		tok, err := wordText(w)
		if err != nil {
			return strings.Fields(args)
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// segment is one piece of a word. Literal pieces carry their unquoted text;
// expansions carry the node to print back.
type segment struct {
	text string
	node syntax.WordPart
}

func wordText(w *syntax.Word) (string, error) {
	segs, err := segments(w.Parts, false)
	if err != nil {
		return "", err
	}

	printer := syntax.NewPrinter()
	var sb strings.Builder
	for i, seg := range segs {
		if seg.node == nil {
			sb.WriteString(seg.text)
			continue
		}
		node := seg.node
		// $A followed by B must not turn into $AB.
		if pe, ok := node.(*syntax.ParamExp); ok && pe.Short && i+1 < len(segs) && startsWithNameChar(segs[i+1]) {
			braced := *pe
			braced.Short = false
			node = &braced
		}
		if err := printer.Print(&sb, node); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

func segments(parts []syntax.WordPart, quoted bool) ([]segment, error) {
	var segs []segment
	for _, part := range parts {
		switch part := part.(type) {
		case *syntax.Lit:
			segs = append(segs, segment{text: unescape(part.Value, quoted)})
		case *syntax.SglQuoted:
			if !part.Dollar {
				segs = append(segs, segment{text: part.Value})
				continue
			}
			// $'...' carries C-style escapes.
			text, err := expand.Literal(&expand.Config{}, &syntax.Word{Parts: []syntax.WordPart{part}})
			if err != nil {
				return nil, err
			}
			segs = append(segs, segment{text: text})
		case *syntax.DblQuoted:
			inner, err := segments(part.Parts, true)
			if err != nil {
				return nil, err
			}
			segs = append(segs, inner...)
		default:
			segs = append(segs, segment{node: part})
		}
	}
	return segs, nil
}

// unescape removes backslash escapes from literal text. Inside double quotes
// only the characters the shell treats specially lose their backslash.
func unescape(s string, quoted bool) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			sb.WriteByte(c)
			continue
		}
		next := s[i+1]
		switch {
		case next == '\n':
			i++
		case !quoted, strings.IndexByte("$`\"\\", next) >= 0:
			sb.WriteByte(next)
			i++
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func startsWithNameChar(seg segment) bool {
	if seg.node != nil || seg.text == "" {
		return false
	}
	c := seg.text[0]
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
