package parser

import (
	"regexp"
	"strings"

	"github.com/dr8co/bashpp/internal/ast"
)

// parseStatementBlock parses the body text of a method, function, or
// control-flow block into a statement list. It works line-by-line
// over the raw text rather than through the declaration token stream,
// since the bulk of a Bash++ body is verbatim Bash; recognized
// control constructs (if/while/until/for/case) are block-scanned by
// their closing keyword and recursed into.
func parseStatementBlock(file, body string) []ast.Statement {
	lines := strings.Split(body, "\n")
	var stmts []ast.Statement

	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}

		switch {
		case startsWithWord(trimmed, "if"):
			end := findBlockEnd(lines, i, []string{"if"}, "fi")
			stmts = append(stmts, parseIfBlock(file, lines[i:end+1]))
			i = end
			continue
		case startsWithWord(trimmed, "while"), startsWithWord(trimmed, "until"):
			end := findBlockEnd(lines, i, []string{"while", "until", "for"}, "done")
			stmts = append(stmts, parseLoopBlock(file, lines[i:end+1]))
			i = end
			continue
		case startsWithWord(trimmed, "for"):
			end := findBlockEnd(lines, i, []string{"while", "until", "for"}, "done")
			stmts = append(stmts, parseForBlock(file, lines[i:end+1]))
			i = end
			continue
		case startsWithWord(trimmed, "case"):
			end := findBlockEnd(lines, i, []string{"case"}, "esac")
			stmts = append(stmts, parseCaseBlock(file, lines[i:end+1]))
			i = end
			continue
		}

		stmts = append(stmts, parseSequenceLine(file, trimmed)...)
	}
	return stmts
}

// startsWithWord reports whether s begins with word followed by a
// word boundary (space, "(", or end of string) — enough to tell a
// "while" keyword from an identifier like "whiletrue".
func startsWithWord(s, word string) bool {
	if !strings.HasPrefix(s, word) {
		return false
	}
	rest := s[len(word):]
	if rest == "" {
		return true
	}
	c := rest[0]
	return c == ' ' || c == '\t' || c == '(' || c == ';'
}

// findBlockEnd scans forward from i for the line (depth 0) that
// begins with closeWord, treating any line starting with one of
// openWords as increasing nesting depth.
func findBlockEnd(lines []string, i int, openWords []string, closeWord string) int {
	depth := 0
	for j := i; j < len(lines); j++ {
		t := strings.TrimSpace(lines[j])
		for _, w := range openWords {
			if startsWithWord(t, w) {
				depth++
				break
			}
		}
		if startsWithWord(t, closeWord) {
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return len(lines) - 1
}

func parseIfBlock(file string, lines []string) *ast.IfStatement {
	stmt := &ast.IfStatement{}
	var cur *ast.IfBranch
	var bodyLines []string
	var elseLines []string
	inElse := false

	flush := func() {
		if cur != nil {
			cur.Body = parseStatementBlock(file, strings.Join(bodyLines, "\n"))
			stmt.Branches = append(stmt.Branches, *cur)
			cur = nil
		}
		bodyLines = nil
	}

	for idx := 0; idx < len(lines); idx++ {
		t := strings.TrimSpace(lines[idx])
		switch {
		case idx == 0 && startsWithWord(t, "if"):
			cond := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(t, "if")), "; then")
			cond = strings.TrimSuffix(cond, "then")
			cur = &ast.IfBranch{Condition: &ast.RawText{Text: strings.TrimSpace(cond)}}
		case startsWithWord(t, "elif"):
			flush()
			cond := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(t, "elif")), "; then")
			cond = strings.TrimSuffix(cond, "then")
			cur = &ast.IfBranch{Condition: &ast.RawText{Text: strings.TrimSpace(cond)}}
		case t == "else":
			flush()
			inElse = true
		case idx == len(lines)-1 && startsWithWord(t, "fi"):
			flush()
		default:
			if inElse {
				elseLines = append(elseLines, lines[idx])
			} else {
				bodyLines = append(bodyLines, lines[idx])
			}
		}
	}
	if len(elseLines) > 0 {
		stmt.Else = parseStatementBlock(file, strings.Join(elseLines, "\n"))
	}
	return stmt
}

func parseLoopBlock(file string, lines []string) *ast.WhileOrUntilStatement {
	header := strings.TrimSpace(lines[0])
	kind := ast.WhileLoop
	var condText string
	if startsWithWord(header, "while") {
		condText = strings.TrimPrefix(header, "while")
	} else {
		kind = ast.UntilLoop
		condText = strings.TrimPrefix(header, "until")
	}
	condText = strings.TrimSuffix(strings.TrimSpace(condText), "; do")
	condText = strings.TrimSuffix(condText, "do")

	body := lines[1 : len(lines)-1]
	return &ast.WhileOrUntilStatement{
		Kind:      kind,
		Condition: &ast.RawText{Text: strings.TrimSpace(condText)},
		Body:      parseStatementBlock(file, strings.Join(body, "\n")),
	}
}

func parseForBlock(file string, lines []string) *ast.ForStatement {
	header := strings.TrimSpace(lines[0])
	header = strings.TrimSuffix(header, "; do")
	header = strings.TrimSuffix(header, "do")
	body := lines[1 : len(lines)-1]
	return &ast.ForStatement{
		Header: strings.TrimSpace(header),
		Body:   parseStatementBlock(file, strings.Join(body, "\n")),
	}
}

var casePatternRe = regexp.MustCompile(`^(.+)\)\s*$`)

func parseCaseBlock(file string, lines []string) *ast.CaseStatement {
	header := strings.TrimSpace(lines[0])
	header = strings.TrimPrefix(header, "case")
	header = strings.TrimSuffix(strings.TrimSpace(header), "in")
	stmt := &ast.CaseStatement{Subject: &ast.RawText{Text: strings.TrimSpace(header)}}

	var pat *ast.CasePattern
	var bodyLines []string
	flush := func() {
		if pat != nil {
			pat.Body = parseStatementBlock(file, strings.Join(bodyLines, "\n"))
			stmt.Patterns = append(stmt.Patterns, *pat)
		}
		pat = nil
		bodyLines = nil
	}
	for idx := 1; idx < len(lines)-1; idx++ {
		t := strings.TrimSpace(lines[idx])
		if m := casePatternRe.FindStringSubmatch(strings.TrimSuffix(t, ";;")); m != nil && pat == nil {
			flush()
			pat = &ast.CasePattern{Pattern: strings.TrimSpace(m[1])}
			continue
		}
		bodyLines = append(bodyLines, strings.TrimSuffix(lines[idx], ";;"))
	}
	flush()
	return stmt
}

// ---- simple (non-block) lines ----

// parseSequenceLine splits a line on top-level ";"/"&&"/"||" and
// returns one Statement per component, wrapped in a CommandSequence
// when more than one component or a connective is present (spec.md
// §4.3's &&/|| gating).
func parseSequenceLine(file, line string) []ast.Statement {
	parts := splitConnectives(line)
	if len(parts) == 1 && parts[0].connective == ast.ConnectiveNone {
		return []ast.Statement{parseSimpleLine(file, parts[0].text)}
	}
	seq := &ast.CommandSequence{}
	for _, part := range parts {
		seq.Items = append(seq.Items, ast.CommandSequenceItem{
			Command:    parseSimpleLine(file, part.text),
			Connective: part.connective,
		})
	}
	return []ast.Statement{seq}
}

type seqPart struct {
	text       string
	connective ast.Connective
}

// splitConnectives scans line for top-level "&&", "||", ";", tracking
// single/double-quote state so a connective inside a string literal
// is not mistaken for a separator.
func splitConnectives(line string) []seqPart {
	var parts []seqPart
	var cur strings.Builder
	var inSingle, inDouble bool

	flush := func(conn ast.Connective) {
		text := strings.TrimSpace(cur.String())
		if text != "" {
			parts = append(parts, seqPart{text: text, connective: conn})
		}
		cur.Reset()
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\'' && !inDouble:
			inSingle = !inSingle
			cur.WriteByte(c)
		case c == '"' && !inSingle:
			inDouble = !inDouble
			cur.WriteByte(c)
		case !inSingle && !inDouble && c == '&' && i+1 < len(line) && line[i+1] == '&':
			flush(ast.ConnectiveAnd)
			i++
		case !inSingle && !inDouble && c == '|' && i+1 < len(line) && line[i+1] == '|':
			flush(ast.ConnectiveOr)
			i++
		case !inSingle && !inDouble && c == ';':
			flush(ast.ConnectiveNone)
		default:
			cur.WriteByte(c)
		}
	}
	flush(ast.ConnectiveNone)
	if len(parts) == 0 {
		return []seqPart{{text: "", connective: ast.ConnectiveNone}}
	}
	return parts
}

var (
	objectInstRe = regexp.MustCompile(`^@?([A-Za-z_]\w*)(\*)?\s+([A-Za-z_]\w*)\s*(=\s*(.*))?$`)
)

// parseSimpleLine parses one statement with no top-level connective:
// @delete, @include[_once], an assignment to a reference chain, an
// object instantiation, or a fallback raw/mixed command line.
func parseSimpleLine(file, text string) ast.Statement {
	text = strings.TrimSuffix(strings.TrimSpace(text), ";")
	if text == "" {
		return &ast.RawText{Text: "\n"}
	}

	if strings.HasPrefix(text, "@delete") {
		operand := strings.TrimSpace(strings.TrimPrefix(text, "@delete"))
		return &ast.DeleteStatement{Target: parseChainLiteral(operand)}
	}

	if strings.HasPrefix(text, "@include") {
		sub := New(file, text+"\n")
		return sub.parseInclude()
	}

	if lhs, rhs, ok := splitTopLevelAssign(text); ok && strings.HasPrefix(strings.TrimSpace(lhs), "@") {
		lhsTrim := strings.TrimSpace(lhs)[1:] // drop '@'
		if idx := strings.IndexByte(lhsTrim, '['); idx >= 0 && strings.HasSuffix(lhsTrim, "]") {
			chain := parseChainLiteral("@" + lhsTrim[:idx])
			indexText := lhsTrim[idx+1 : len(lhsTrim)-1]
			return &ast.ArrayAssignment{
				Target: chain,
				Index:  &ast.RawText{Text: indexText},
				Value:  parseExpressionText(rhs),
			}
		}
		append_ := strings.HasSuffix(lhs, "+")
		chain := parseChainLiteral("@" + strings.TrimSuffix(lhsTrim, "+"))
		return &ast.ValueAssignment{Target: chain, Value: parseExpressionText(rhs), Append: append_}
	}

	// A bare two-word line ("echo hi") stays a command: an instantiation
	// needs a leading '@', a pointer '*', or an "= expr" initializer.
	if m := objectInstRe.FindStringSubmatch(text); m != nil && !looksLikeBashAssignment(text) &&
		(strings.HasPrefix(text, "@") || m[2] == "*" || m[4] != "") {
		oi := &ast.ObjectInstantiation{
			Name: m[3],
			Type: ast.TypeRef{ClassName: m[1], IsPointer: m[2] == "*"},
		}
		if m[5] != "" {
			oi.AssignFrom = parseExpressionText(m[5])
		}
		return oi
	}

	return buildMixedOrRaw(text + "\n")
}

// looksLikeBashAssignment rejects the object-instantiation heuristic
// for plain Bash assignments like "name=value" (no space before '='),
// which objectInstRe's optional trailing group would otherwise also
// match against a two-word "type name" split that Bash would read as
// one token.
func looksLikeBashAssignment(text string) bool {
	eq := strings.IndexByte(text, '=')
	if eq <= 0 {
		return false
	}
	return !strings.ContainsAny(text[:eq], " \t")
}

// splitTopLevelAssign finds the first "=" or "+=" not part of "==",
// "!=", "<=", ">=" and outside quotes.
func splitTopLevelAssign(text string) (lhs, rhs string, ok bool) {
	var inSingle, inDouble bool
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '\'' && !inDouble:
			inSingle = !inSingle
		case c == '"' && !inSingle:
			inDouble = !inDouble
		case !inSingle && !inDouble && c == '=':
			if i+1 < len(text) && text[i+1] == '=' {
				i++
				continue
			}
			if i > 0 && strings.ContainsRune("=!<>+", rune(text[i-1])) && text[i-1] != '+' {
				continue
			}
			return text[:i], text[i+1:], true
		}
	}
	return "", "", false
}

// parseChainLiteral parses "@chain.parts" (the '@' may already have
// been stripped by the caller) into a ReferenceChain, handling the
// "@#" length-of prefix.
func parseChainLiteral(s string) *ast.ReferenceChain {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "@")
	lengthQuery := strings.HasPrefix(s, "#")
	s = strings.TrimPrefix(s, "#")
	parts := strings.Split(s, ".")
	return &ast.ReferenceChain{Parts: parts, LengthQuery: lengthQuery}
}

// parseExpressionText parses the right-hand side of an assignment or
// object-instantiation initializer.
func parseExpressionText(s string) ast.Expression {
	s = strings.TrimSpace(s)
	switch {
	case s == "@nullptr":
		return &ast.NullPtr{}
	case strings.HasPrefix(s, "@dynamic_cast<"):
		close := strings.IndexByte(s, '>')
		if close < 0 {
			return &ast.RawText{Text: s}
		}
		className := s[len("@dynamic_cast<"):close]
		operand := strings.TrimSpace(s[close+1:])
		return &ast.DynamicCastExpression{ClassName: className, Operand: parseChainLiteral(operand)}
	case strings.HasPrefix(s, "@typeof "):
		return &ast.TypeofExpression{Operand: parseChainLiteral(strings.TrimSpace(s[len("@typeof "):]))}
	case strings.HasPrefix(s, "@new "):
		rest := strings.TrimSpace(s[len("@new "):])
		name := rest
		if p := strings.IndexByte(rest, '('); p >= 0 {
			name = rest[:p]
		}
		return &ast.NewExpression{ClassName: strings.TrimSpace(name)}
	case strings.HasPrefix(s, "&@"):
		return &ast.AddressOf{Operand: parseChainLiteral(s[1:])}
	case strings.HasPrefix(s, "*@"):
		return &ast.PointerDereference{Operand: parseChainLiteral(s[1:])}
	case strings.HasPrefix(s, "@"):
		return parseChainLiteral(s)
	case strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`):
		return parseStringLiteralText(s[1 : len(s)-1])
	default:
		return &ast.RawText{Text: s}
	}
}

// parseStringLiteralText splits a quoted string's inner text into
// RawText/ReferenceChain parts around any embedded "@chain"s.
func parseStringLiteralText(inner string) *ast.StringLiteral {
	return &ast.StringLiteral{Parts: splitMixedParts(inner)}
}

// buildMixedOrRaw turns an arbitrary command line into either a plain
// RawText (no embedded references) or a MixedLine (one or more
// embedded reference chains spliced into otherwise-verbatim text).
func buildMixedOrRaw(line string) ast.Statement {
	if !strings.Contains(line, "@") {
		return &ast.RawText{Text: line}
	}
	return &ast.MixedLine{Parts: splitMixedParts(line)}
}

var identChar = regexp.MustCompile(`[A-Za-z0-9_.]`)

// splitMixedParts scans text for "@chain" occurrences (and the
// "@#chain" length-query form) and returns alternating RawText and
// ReferenceChain nodes in source order.
func splitMixedParts(text string) []ast.Node {
	var parts []ast.Node
	var raw strings.Builder

	flushRaw := func() {
		if raw.Len() > 0 {
			parts = append(parts, &ast.RawText{Text: raw.String()})
			raw.Reset()
		}
	}

	i := 0
	for i < len(text) {
		if text[i] != '@' || i+1 >= len(text) {
			raw.WriteByte(text[i])
			i++
			continue
		}
		j := i + 1
		lengthQuery := false
		if j < len(text) && text[j] == '#' {
			lengthQuery = true
			j++
		}
		start := j
		for j < len(text) && identChar.MatchString(string(text[j])) {
			j++
		}
		if j == start {
			raw.WriteByte(text[i])
			i++
			continue
		}
		flushRaw()
		chainParts := strings.Split(text[start:j], ".")
		parts = append(parts, &ast.ReferenceChain{Parts: chainParts, LengthQuery: lengthQuery})
		i = j
	}
	flushRaw()
	return parts
}
