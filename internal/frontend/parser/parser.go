// Package parser implements the demo front end's recursive-descent
// parser, in the same overall shape as the teacher's Pratt parser
// (registerPrefix-style dispatch collapses here to a type switch on
// the leading keyword, since Bash++ statement syntax is Bash itself
// plus a small set of @-prefixed forms rather than an expression
// grammar needing precedence climbing).
//
// Declarations (@class, @method, @include, data members) are
// tokenized by internal/frontend/lexer. Statement bodies are handled
// by a line-oriented scan directly over the source text, since the
// bulk of a Bash++ file is verbatim Bash that this demo front end
// does not attempt to parse exhaustively (spec.md's Non-goals name
// the shipped front end as a demo, not a production grammar).
package parser

import (
	"fmt"
	"strings"

	"github.com/dr8co/bashpp/internal/ast"
	"github.com/dr8co/bashpp/internal/frontend/lexer"
	"github.com/dr8co/bashpp/internal/frontend/token"
	"github.com/dr8co/bashpp/internal/position"
)

// Parser holds one lexer over one source file plus accumulated
// errors, mirroring the teacher parser's Parser{l, errors}.
type Parser struct {
	file string
	lex  *lexer.Lexer
	cur  token.Token
	peek token.Token

	errors []string
}

// New creates a Parser for file over src.
func New(file, src string) *Parser {
	p := &Parser{file: file, lex: lexer.New(src)}
	p.nextToken()
	p.nextToken()
	return p
}

// Errors returns every parse error recorded so far.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) nextToken() {
	p.cur = p.peek
	p.peek = p.lex.NextToken()
}

func (p *Parser) pos() position.Position {
	return position.Position{File: p.file, Line: p.cur.Line, Column: p.cur.Col}
}

func (p *Parser) span(start position.Position) position.Span {
	return position.Span{Start: start, End: p.pos()}
}

func (p *Parser) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf("%s:%d: %s", p.file, p.cur.Line, fmt.Sprintf(format, args...)))
}

// ParseProgram parses the whole source file into a Program node.
func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{}
	for p.cur.Type != token.EOF {
		stmt := p.parseTopLevelStatement()
		if stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
	}
	return prog
}

func (p *Parser) parseTopLevelStatement() ast.Statement {
	if p.cur.Type == token.AT {
		switch p.peek.Literal {
		case "class":
			return p.parseClassDefinition()
		case "include", "include_once":
			return p.parseInclude()
		}
	}
	return p.parseLineStatement()
}

// ---- class definitions ----

func (p *Parser) parseClassDefinition() *ast.ClassDefinition {
	start := p.pos()
	p.nextToken() // consume "class" identifier, cur now holds it
	p.nextToken() // past "class"

	cd := &ast.ClassDefinition{}
	if p.cur.Type != token.IDENT {
		p.errorf("expected class name after @class")
		return cd
	}
	cd.Name = p.cur.Literal
	p.nextToken()

	if p.cur.Type == token.COLON {
		p.nextToken()
		for {
			if p.cur.Type != token.IDENT {
				break
			}
			cd.Parents = append(cd.Parents, p.cur.Literal)
			p.nextToken()
			if p.cur.Type == token.COMMA {
				p.nextToken()
				continue
			}
			break
		}
	}

	if p.cur.Type != token.LBRACE {
		p.errorf("expected '{' to open class body for '%s'", cd.Name)
		cd.Sp = p.span(start)
		return cd
	}

	body := p.captureBracedBody()
	cd.Body = parseClassBody(p.file, body)
	cd.Sp = p.span(start)
	return cd
}

// captureBracedBody consumes the current '{' token and returns the
// raw text up to (not including) its matching '}', resuming the
// lexer immediately after that brace. Matching is a naive depth count
// over '{'/'}' characters (see package doc: this demo front end does
// not track quotes/parameter-expansion context, so a literal brace
// inside a quoted string would mislead it).
func (p *Parser) captureBracedBody() string {
	src := p.lex.Source()
	// p.cur is the LBRACE token itself; its Pos is the '{' character's
	// own offset (tokens carry where lookahead already ran past it, so
	// this is computed from the token's recorded Pos, not the lexer's
	// current — by now far ahead — cursor).
	bodyStart := p.cur.Pos + 1

	depth := 1
	i := bodyStart
	for i < len(src) {
		switch src[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				body := src[bodyStart:i]
				p.lex.SeekTo(i + 1)
				p.nextToken()
				p.nextToken()
				return body
			}
		}
		i++
	}
	p.errorf("unterminated '{' — reached end of file")
	p.lex.SeekTo(len(src))
	p.nextToken()
	p.nextToken()
	return src[bodyStart:]
}

// parseClassBody parses the contents of a class body (the text
// between its braces) into declarations, using a fresh declaration
// parser recursively.
func parseClassBody(file, body string) []ast.Statement {
	p := New(file, body)
	var stmts []ast.Statement

	vis := ast.Public
	virtual := false

	for p.cur.Type != token.EOF {
		if p.cur.Type == token.AT {
			switch p.peek.Literal {
			case "public":
				vis = ast.Public
				p.nextToken()
				p.nextToken()
				continue
			case "protected":
				vis = ast.Protected
				p.nextToken()
				p.nextToken()
				continue
			case "private":
				vis = ast.Private
				p.nextToken()
				p.nextToken()
				continue
			case "virtual":
				virtual = true
				p.nextToken()
				p.nextToken()
				continue
			case "method":
				m := p.parseMethod(vis, virtual, ast.OrdinaryMethod)
				stmts = append(stmts, m)
				virtual = false
				continue
			case "constructor":
				m := p.parseMethod(vis, false, ast.ConstructorMethod)
				stmts = append(stmts, m)
				continue
			case "destructor":
				m := p.parseMethod(vis, false, ast.DestructorMethod)
				stmts = append(stmts, m)
				continue
			}
		}
		dm := p.parseDataMember(vis)
		if dm != nil {
			stmts = append(stmts, dm)
			virtual = false
			continue
		}
		// Unrecognized line inside a class body: skip it rather than
		// looping forever.
		p.nextToken()
	}
	return stmts
}

func (p *Parser) parseMethod(vis ast.Visibility, virtual bool, kind ast.MethodKind) *ast.MethodDefinition {
	start := p.pos()
	p.nextToken() // the "method"/"constructor"/"destructor" identifier
	p.nextToken() // past it

	md := &ast.MethodDefinition{Kind: kind, Visibility: vis, Virtual: virtual}

	if kind == ast.OrdinaryMethod {
		if p.cur.Type != token.IDENT {
			p.errorf("expected method name")
		} else {
			md.Name = p.cur.Literal
			p.nextToken()
		}
	} else if kind == ast.ConstructorMethod {
		md.Name = "__constructor"
	} else {
		md.Name = "__destructor"
	}

	if p.cur.Type == token.LPAREN {
		p.nextToken()
		for p.cur.Type != token.RPAREN && p.cur.Type != token.EOF {
			param := ast.Parameter{}
			typeName := p.cur.Literal
			p.nextToken()
			ptr := false
			if p.cur.Type == token.STAR {
				ptr = true
				p.nextToken()
			}
			param.Type = ast.TypeRef{ClassName: typeName, IsPointer: ptr}
			if p.cur.Type == token.IDENT {
				param.Name = p.cur.Literal
				p.nextToken()
			}
			md.Parameters = append(md.Parameters, param)
			if p.cur.Type == token.COMMA {
				p.nextToken()
			}
		}
		if p.cur.Type == token.RPAREN {
			p.nextToken()
		}
	}

	if p.cur.Type != token.LBRACE {
		p.errorf("expected '{' to open body of method '%s'", md.Name)
		md.Sp = p.span(start)
		return md
	}
	body := p.captureBracedBody()
	md.Body = parseStatementBlock(p.file, body)
	md.Sp = p.span(start)
	return md
}

// parseDataMember attempts "Type[*] name[[]] [= default];" starting
// at p.cur. It returns nil (without consuming) if the current token
// doesn't look like the start of a type name.
func (p *Parser) parseDataMember(vis ast.Visibility) *ast.DataMemberDeclaration {
	if p.cur.Type != token.IDENT {
		return nil
	}
	start := p.pos()
	typeName := p.cur.Literal
	p.nextToken()

	ptr := false
	if p.cur.Type == token.STAR {
		ptr = true
		p.nextToken()
	}

	if p.cur.Type != token.IDENT {
		p.errorf("expected data member name after type '%s'", typeName)
		return nil
	}
	name := p.cur.Literal
	p.nextToken()

	isArray := false
	if p.cur.Type == token.LBRACKET {
		isArray = true
		p.nextToken()
		for p.cur.Type != token.RBRACKET && p.cur.Type != token.EOF {
			p.nextToken()
		}
		if p.cur.Type == token.RBRACKET {
			p.nextToken()
		}
	}

	dm := &ast.DataMemberDeclaration{
		Name:       name,
		Type:       ast.TypeRef{ClassName: typeName, IsPointer: ptr},
		IsArray:    isArray,
		Visibility: vis,
	}

	if p.cur.Type == token.ASSIGN {
		p.nextToken()
		var parts []string
		for p.cur.Type != token.SEMI && p.cur.Type != token.EOF {
			parts = append(parts, p.cur.Literal)
			p.nextToken()
		}
		dm.Default = strings.Join(parts, " ")
	}
	if p.cur.Type == token.SEMI {
		p.nextToken()
	}
	dm.Sp = p.span(start)
	return dm
}

// ---- include ----

func (p *Parser) parseInclude() *ast.IncludeStatement {
	start := p.pos()
	once := p.peek.Literal == "include_once"
	p.nextToken()
	p.nextToken()

	inc := &ast.IncludeStatement{Once: once}

	switch p.cur.Type {
	case token.LT:
		inc.System = true
		p.nextToken()
		var parts []string
		for p.cur.Type != token.GT && p.cur.Type != token.EOF {
			parts = append(parts, p.cur.Literal)
			p.nextToken()
		}
		inc.Name = strings.Join(parts, "")
		if p.cur.Type == token.GT {
			p.nextToken()
		}
	case token.STRING:
		inc.Name = p.cur.Literal
		p.nextToken()
	default:
		p.errorf("expected <name> or \"name\" after @include")
	}

	if p.cur.Type == token.IDENT && p.cur.Literal == "as" {
		p.nextToken()
		if p.cur.Type == token.STRING {
			inc.DynamicAs = p.cur.Literal
			p.nextToken()
		}
	}
	if p.cur.Type == token.SEMI {
		p.nextToken()
	}
	inc.Sp = p.span(start)
	return inc
}

// ---- top-level fallback lines ----

// parseLineStatement handles a non-@class/@include top-level line by
// capturing raw source text up to the next newline and handing it to
// the shared statement-line parser, then resuming declaration-level
// tokenization after that line.
func (p *Parser) parseLineStatement() ast.Statement {
	start := p.cur.Pos
	src := p.lex.Source()
	end := strings.IndexByte(src[start:], '\n')
	if end < 0 {
		end = len(src) - start
	}
	line := src[start : start+end]

	p.lex.SeekTo(start + end)
	p.nextToken()
	p.nextToken()

	// parseSequenceLine always returns exactly one top-level statement:
	// either the line's single component, or a CommandSequence wrapping
	// every &&/||/;-joined component.
	return parseSequenceLine(p.file, strings.TrimSpace(line))[0]
}
