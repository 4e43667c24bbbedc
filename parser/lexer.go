package parser

import (
	"strings"

	"github.com/hupe1980/agentloop/core"
)

// TokenKind enumerates the lexer's token alphabet.
type TokenKind int

const (
	// TokenText is a run of literal text, including unrecognised tags.
	TokenText TokenKind = iota
	// TokenOpen is an exact `<name>` tag for a known tool.
	TokenOpen
	// TokenClose is an exact `</name>` tag for a known tool.
	TokenClose
)

// String returns the token kind name.
func (k TokenKind) String() string {
	switch k {
	case TokenText:
		return "text"
	case TokenOpen:
		return "open"
	case TokenClose:
		return "close"
	default:
		return "unknown"
	}
}

// Token is one lexeme of the buffer. Start and End are byte offsets into
// the source so the parser can slice raw text without re-joining tokens.
type Token struct {
	Kind  TokenKind
	Name  core.ToolName // set for TokenOpen and TokenClose
	Start int
	End   int
}

// Lexer splits a buffer into tool tags and text runs. Only tags naming a
// tool of the configured set are recognised; everything else is text.
type Lexer struct {
	tools []core.ToolName
}

// NewLexer returns a lexer recognising the given tool names. With no names
// it recognises core.ToolNames.
func NewLexer(tools ...core.ToolName) *Lexer {
	if len(tools) == 0 {
		tools = core.ToolNames
	}
	return &Lexer{tools: tools}
}

// Tokenize scans src left to right in a single pass. Adjacent text is
// merged into one token.
func (l *Lexer) Tokenize(src string) []Token {
	var toks []Token
	textStart := -1

	flushText := func(end int) {
		if textStart >= 0 && end > textStart {
			toks = append(toks, Token{Kind: TokenText, Start: textStart, End: end})
		}
		textStart = -1
	}

	for i := 0; i < len(src); {
		if src[i] == '<' {
			if kind, name, n, ok := l.matchTag(src[i:]); ok {
				flushText(i)
				toks = append(toks, Token{Kind: kind, Name: name, Start: i, End: i + n})
				i += n
				continue
			}
		}
		if textStart < 0 {
			textStart = i
		}
		i++
	}
	flushText(len(src))

	return toks
}

// matchTag reports whether s starts with an exact open or close tag of a
// known tool and returns the tag length.
func (l *Lexer) matchTag(s string) (TokenKind, core.ToolName, int, bool) {
	kind := TokenOpen
	rest := s[1:]
	if strings.HasPrefix(rest, "/") {
		kind = TokenClose
		rest = rest[1:]
	}
	for _, name := range l.tools {
		if strings.HasPrefix(rest, string(name)+">") {
			return kind, name, len(s) - len(rest) + len(name) + 1, true
		}
	}
	return TokenText, "", 0, false
}
