// Package replpreview implements an interactive transpile-preview
// loop for Bash++ snippets, styled and structured after the teacher's
// repl package: the same Bubble Tea model (textinput + spinner +
// history), the same multiline/bracket-balance handling, and the same
// async tea.Cmd evaluation shape — but evaluating means compiling a
// snippet through internal/driver instead of running a Monkey
// evaluator, and "Inspect()" becomes the generated Bash text.
package replpreview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dr8co/bashpp/internal/driver"
	"github.com/dr8co/bashpp/internal/frontend/lexer"
	"github.com/dr8co/bashpp/internal/frontend/token"
)

const (
	// Prompt is the default prompt for the preview loop.
	Prompt = "bpp> "

	// ContPrompt is the continuation prompt used in multiline input mode.
	ContPrompt = "...> "
)

// Options contains configuration for the preview loop.
type Options struct {
	NoColor    bool   // Disable syntax highlighting and colored output
	TargetBash string // Bash version passed through to driver.Options
}

// Start initializes and runs the preview loop under the given
// username and options.
func Start(username string, options Options) {
	p := tea.NewProgram(initialModel(username, options))
	if _, err := p.Run(); err != nil {
		fmt.Println("Error running program:", err)
	}
}

// Styling — palette carried over unchanged from the teacher's REPL.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	parseErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true)

	diagErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF8700")).
			Bold(true)

	historyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	keywordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF79C6")).
			Bold(true)

	identifierStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8F8F2"))

	stringStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))

	delimiterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#BD93F9"))
)

// ResultType distinguishes why a snippet's compilation failed.
type ResultType int

const (
	// NoError indicates a clean compile.
	NoError ResultType = iota
	// ParseError marks a Go error returned by driver.Compile; parse
	// errors themselves are recorded as diagnostics (DiagError).
	ParseError
	// DiagError indicates the snippet parsed but carried diagnostic errors.
	DiagError
)

// evalResultMsg carries a finished compilation back into Update.
type evalResultMsg struct {
	output     string
	isError    bool
	resultType ResultType
	elapsed    time.Duration
}

type model struct {
	textInput       textinput.Model
	history         []historyEntry
	username        string
	evaluating      bool
	currentInput    string
	multilineBuffer string
	isMultiline     bool
	spinner         spinner.Model
	options         Options
}

func (m model) applyStyle(style lipgloss.Style, text string) string {
	if m.options.NoColor {
		return text
	}
	return style.Render(text)
}

type historyEntry struct {
	input          string
	output         string
	isError        bool
	resultType     ResultType
	evaluationTime time.Duration
}

func initialModel(username string, options Options) model {
	ti := textinput.New()
	ti.Placeholder = "Enter a Bash++ statement or @class body"
	ti.Focus()
	ti.Width = 80
	ti.Prompt = promptStyle.Render(Prompt)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	if options.TargetBash == "" {
		options.TargetBash = "5.1"
	}

	return model{
		textInput: ti,
		username:  username,
		spinner:   s,
		options:   options,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// isBalanced reports whether braces/parens/brackets in input are
// balanced, used to decide whether Enter should evaluate the buffer
// or extend it — identical rule to the teacher's REPL, since a
// Bash++ @class or @method body is exactly as brace-delimited as a
// Monkey block.
func isBalanced(input string) bool {
	var stack []rune
	for _, char := range input {
		switch char {
		case '(', '{', '[':
			stack = append(stack, char)
		case ')':
			if len(stack) == 0 || stack[len(stack)-1] != '(' {
				return false
			}
			stack = stack[:len(stack)-1]
		case '}':
			if len(stack) == 0 || stack[len(stack)-1] != '{' {
				return false
			}
			stack = stack[:len(stack)-1]
		case ']':
			if len(stack) == 0 || stack[len(stack)-1] != '[' {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}

// evalCmd compiles input asynchronously through internal/driver and
// reports the generated Bash or the formatted diagnostics.
func evalCmd(input string, targetBash string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()

		d := driver.New(driver.Options{TargetBash: targetBash})
		res, err := d.Compile("<preview>", input)

		var output string
		isError := false
		resultType := NoError

		switch {
		case err != nil:
			isError = true
			resultType = ParseError
			output = formatInternalError(err.Error())
		case res.HasErrors:
			isError = true
			resultType = DiagError
			output = formatDiagErrors(res, input)
		default:
			output = res.Output
			if output == "" {
				output = "(no output)"
			}
		}

		return evalResultMsg{
			output:     output,
			isError:    isError,
			resultType: resultType,
			elapsed:    time.Since(start),
		}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.evaluating {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case evalResultMsg:
		m.evaluating = false
		m.history = append(m.history, historyEntry{
			input:          m.currentInput,
			output:         msg.output,
			isError:        msg.isError,
			resultType:     msg.resultType,
			evaluationTime: msg.elapsed,
		})
		m.currentInput = ""
		return m, nil

	case tea.KeyMsg:
		if m.evaluating && msg.Type != tea.KeyCtrlC {
			return m, m.spinner.Tick
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			input := m.textInput.Value()
			if input == "" {
				if m.isMultiline {
					if m.multilineBuffer == "" {
						m.isMultiline = false
						return m, nil
					}
					m.evaluating = true
					m.currentInput = m.multilineBuffer
					m.textInput.SetValue("")
					m.isMultiline = false

					buffer := m.multilineBuffer
					m.multilineBuffer = ""
					return m, evalCmd(buffer, m.options.TargetBash)
				}
				return m, nil
			}

			if m.isMultiline {
				m.multilineBuffer += "\n" + input
				m.textInput.SetValue("")

				if isBalanced(m.multilineBuffer) {
					m.evaluating = true
					m.currentInput = m.multilineBuffer
					m.isMultiline = false

					buffer := m.multilineBuffer
					m.multilineBuffer = ""
					return m, evalCmd(buffer, m.options.TargetBash)
				}
				return m, nil
			}

			if !isBalanced(input) {
				m.isMultiline = true
				m.multilineBuffer = input
				m.textInput.SetValue("")
				return m, nil
			}

			m.evaluating = true
			m.currentInput = input
			m.textInput.SetValue("")
			return m, evalCmd(input, m.options.TargetBash)
		}
	}

	if !m.evaluating {
		m.textInput, cmd = m.textInput.Update(msg)
	}
	if m.evaluating {
		return m, m.spinner.Tick
	}
	return m, cmd
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(m.applyStyle(titleStyle, " Bash++ transpile preview "))
	s.WriteString("\n")

	if m.username != "" {
		s.WriteString(fmt.Sprintf("\nHello %s! Enter a Bash++ statement to see its Bash translation\n", m.username))
	}
	s.WriteString("\n")

	for _, entry := range m.history {
		lines := strings.Split(entry.input, "\n")
		for i, line := range lines {
			if i == 0 {
				s.WriteString(m.applyStyle(promptStyle, Prompt))
			} else {
				s.WriteString(m.applyStyle(promptStyle, ContPrompt))
			}
			s.WriteString(m.highlightCode(line))
			s.WriteString("\n")
		}

		if entry.isError {
			switch entry.resultType {
			case ParseError:
				m.writeStyled(&s, parseErrorStyle, entry.output)
			case DiagError:
				m.writeStyled(&s, diagErrorStyle, entry.output)
			default:
				m.writeStyled(&s, errorStyle, entry.output)
			}
		} else {
			m.writeStyled(&s, resultStyle, entry.output)
		}

		if entry.evaluationTime > 10*time.Millisecond {
			timeStr := fmt.Sprintf(" (%.2fs)", entry.evaluationTime.Seconds())
			s.WriteString(m.applyStyle(historyStyle, timeStr))
		}

		s.WriteString("\n\n")
	}

	if m.evaluating {
		s.WriteString(m.applyStyle(promptStyle, Prompt))
		s.WriteString(m.highlightCode(m.currentInput))
		s.WriteString("\n")
		s.WriteString(m.spinner.View())
		s.WriteString(" Compiling...")
		s.WriteString("\n\n")
	}

	if m.isMultiline && !m.evaluating {
		s.WriteString(m.applyStyle(historyStyle, "Current multiline input:\n"))
		s.WriteString(m.highlightCode(m.multilineBuffer))
		s.WriteString("\n")
	}

	if !m.evaluating {
		if m.isMultiline {
			m.textInput.Prompt = m.applyStyle(promptStyle, ContPrompt)
		} else {
			m.textInput.Prompt = m.applyStyle(promptStyle, Prompt)
		}
		s.WriteString(m.textInput.View())
		s.WriteString("\n")
	}

	helpText := "\nPress Esc or Ctrl+C/D to exit"
	if m.isMultiline {
		helpText += " | Multiline mode: Enter empty line to compile, or continue typing"
	} else {
		helpText += " | Multiline input supported for unbalanced braces"
	}
	s.WriteString(m.applyStyle(historyStyle, helpText))

	return s.String()
}

func (m model) writeStyled(s *strings.Builder, style lipgloss.Style, text string) {
	s.WriteString(m.applyStyle(style, text))
}

// formatInternalError formats a Go error returned by driver.Compile
// (a missing @include target is reported as a diagnostic instead).
func formatInternalError(msg string) string {
	var s strings.Builder
	s.WriteString("Compiler error:\n  ")
	s.WriteString(msg)
	s.WriteString("\n")
	return s.String()
}

// formatDiagErrors renders every recorded diagnostic as one numbered
// line (position, kind, message) into a string for the history pane;
// unlike diag.Bag.Print it shows no source line or caret.
func formatDiagErrors(res *driver.Result, source string) string {
	var s strings.Builder
	s.WriteString("Diagnostics:\n")
	for i, d := range res.Diagnostics.All() {
		s.WriteString(fmt.Sprintf("  %d. %s: %s: %s\n", i+1, d.Span.Start, d.Kind, d.Message))
	}
	return s.String()
}

// highlightCode applies syntax highlighting to a line of Bash++
// declaration-level source, reusing the demo lexer's token stream —
// the preview counterpart of the teacher's highlightCode, scaled down
// since Bash++ statement bodies are mostly verbatim Bash rather than a
// grammar this lexer tokenizes uniformly (see internal/frontend/lexer).
func (m model) highlightCode(code string) string {
	l := lexer.New(code)
	var s strings.Builder

	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			break
		}
		switch tok.Type {
		case token.AT:
			s.WriteString(m.applyStyle(keywordStyle, tok.Literal))
		case token.IDENT:
			s.WriteString(m.applyStyle(identifierStyle, tok.Literal))
		case token.STRING:
			s.WriteString(m.applyStyle(stringStyle, "\""+tok.Literal+"\""))
		case token.LBRACE, token.RBRACE, token.LPAREN, token.RPAREN,
			token.LBRACKET, token.RBRACKET, token.SEMI, token.COMMA, token.COLON:
			s.WriteString(m.applyStyle(delimiterStyle, tok.Literal))
		default:
			s.WriteString(tok.Literal)
		}
		s.WriteString(" ")
	}
	return strings.TrimSpace(s.String())
}
