// Package parser converts an accumulating assistant buffer into an ordered
// sequence of core.Segment values.
//
// The parser is a pure function of the full buffer: it is called again from
// scratch whenever new text arrives and yields the same result for the same
// input. Tool invocations use an XML-like tag grammar:
//
//	<read_file>
//	<path>main.go</path>
//	</read_file>
//
// Tool tags are exact, case-sensitive matches against the enumerated tool
// set. Parameters are single-level `<key>value</key>` pairs inside a tool
// span; values are trimmed and the last occurrence of a key wins.
package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hupe1980/agentloop/core"
)

// Parser turns buffers into segments using a Lexer.
type Parser struct {
	lexer *Lexer
}

// New returns a Parser for the given tool names (core.ToolNames when empty).
func New(tools ...core.ToolName) *Parser {
	return &Parser{lexer: NewLexer(tools...)}
}

var defaultParser = New()

// Parse parses a buffer that may still grow. The trailing text, including
// any tool span whose closing tag has not arrived yet, is returned as a
// single partial TextSegment.
func Parse(buf string) []core.Segment { return defaultParser.Parse(buf) }

// ParseFinal parses a buffer that will not grow any more. No segment is
// partial and dangling opening tags are treated as literal text.
func ParseFinal(buf string) []core.Segment { return defaultParser.ParseFinal(buf) }

// Parse implements the package-level Parse for p's tool set.
func (p *Parser) Parse(buf string) []core.Segment { return p.parse(buf, false) }

// ParseFinal implements the package-level ParseFinal for p's tool set.
func (p *Parser) ParseFinal(buf string) []core.Segment { return p.parse(buf, true) }

func (p *Parser) parse(buf string, final bool) []core.Segment {
	toks := p.lexer.Tokenize(buf)

	var segs []core.Segment
	textStart := 0

	for i := 0; i < len(toks); i++ {
		open := toks[i]
		if open.Kind != TokenOpen {
			continue
		}

		closeIdx := findClose(toks, i+1, open.Name)
		if closeIdx < 0 {
			if final {
				// the dangling tag stays in the text run
				continue
			}
			break
		}
		closeTok := toks[closeIdx]

		if text := strings.TrimSpace(buf[textStart:open.Start]); text != "" {
			segs = append(segs, core.TextSegment{Content: text})
		}
		segs = append(segs, core.ToolSegment{
			Name:       open.Name,
			Parameters: ParseParameters(buf[open.End:closeTok.Start]),
		})

		textStart = closeTok.End
		i = closeIdx
	}

	if text := strings.TrimSpace(buf[textStart:]); text != "" {
		segs = append(segs, core.TextSegment{Content: text, Partial: !final})
	}

	if len(segs) == 0 {
		if text := strings.TrimSpace(buf); text != "" {
			segs = append(segs, core.TextSegment{Content: text, Partial: !final})
		}
	}

	return segs
}

// findClose returns the index of the first close token for name at or
// after from, or -1.
func findClose(toks []Token, from int, name core.ToolName) int {
	for j := from; j < len(toks); j++ {
		if toks[j].Kind == TokenClose && toks[j].Name == name {
			return j
		}
	}
	return -1
}

// ParseParameters extracts `<key>value</key>` pairs from the inner text of
// a tool span. Keys consist of letters, digits and underscores. Nested tags
// are not interpreted; a value runs up to the first matching closing tag.
func ParseParameters(inner string) map[string]string {
	params := map[string]string{}

	for i := 0; i < len(inner); {
		if inner[i] != '<' {
			i++
			continue
		}

		key, n := scanKey(inner[i+1:])
		if n == 0 || i+1+n >= len(inner) || inner[i+1+n] != '>' {
			i++
			continue
		}

		valueStart := i + 1 + n + 1
		closing := "</" + key + ">"
		end := strings.Index(inner[valueStart:], closing)
		if end < 0 {
			i++
			continue
		}

		params[key] = strings.TrimSpace(inner[valueStart : valueStart+end])
		i = valueStart + end + len(closing)
	}

	return params
}

// scanKey returns the longest word-character prefix of s and its byte length.
func scanKey(s string) (string, int) {
	n := 0
	for n < len(s) {
		r, size := utf8.DecodeRuneInString(s[n:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		n += size
	}
	return s[:n], n
}
