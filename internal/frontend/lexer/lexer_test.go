package lexer

import (
	"testing"

	"github.com/dr8co/bashpp/internal/frontend/token"
)

func TestNextTokenClassHeader(t *testing.T) {
	src := `@class Animal : Base {`
	l := New(src)

	want := []struct {
		typ token.Type
		lit string
	}{
		{token.AT, "@"},
		{token.IDENT, "class"},
		{token.IDENT, "Animal"},
		{token.COLON, ":"},
		{token.IDENT, "Base"},
		{token.LBRACE, "{"},
		{token.EOF, ""},
	}

	for i, w := range want {
		tok := l.NextToken()
		if tok.Type != w.typ || tok.Literal != w.lit {
			t.Fatalf("token %d: got {%s %q}, want {%s %q}", i, tok.Type, tok.Literal, w.typ, w.lit)
		}
	}
}

func TestNextTokenSkipsCommentsAndShebang(t *testing.T) {
	src := "#!/usr/bin/env bpp\n# a comment\n@include \"foo.bpp\";"
	l := New(src)

	tok := l.NextToken()
	if tok.Type != token.AT {
		t.Fatalf("expected '@' after comments, got %s %q", tok.Type, tok.Literal)
	}
}

func TestNextTokenString(t *testing.T) {
	l := New(`"hello world"`)
	tok := l.NextToken()
	if tok.Type != token.STRING || tok.Literal != "hello world" {
		t.Fatalf("got {%s %q}", tok.Type, tok.Literal)
	}
}

func TestPosTracksByteOffsetOfBrace(t *testing.T) {
	src := `@class X {body}`
	l := New(src)
	for {
		tok := l.NextToken()
		if tok.Type == token.LBRACE {
			if src[tok.Pos] != '{' {
				t.Fatalf("Pos %d does not point at '{': %q", tok.Pos, src[tok.Pos])
			}
			return
		}
		if tok.Type == token.EOF {
			t.Fatal("reached EOF before finding '{'")
		}
	}
}

func TestSeekToResumesMidSource(t *testing.T) {
	src := `@class X {}`
	l := New(src)
	l.NextToken() // @
	l.NextToken() // class
	l.NextToken() // X

	idx := len("@class X ")
	l.SeekTo(idx)
	tok := l.NextToken()
	if tok.Type != token.LBRACE {
		t.Fatalf("expected '{' after SeekTo, got %s %q", tok.Type, tok.Literal)
	}
}
