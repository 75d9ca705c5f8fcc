package diagnostics

import (
	"fmt"
	"sort"

	"github.com/begriff-lang/begriff/internal/token"
)

// ErrorCode identifies a diagnostic category. Codes are stable and
// machine-checkable; messages are free-form.
type ErrorCode string

const (
	// Type expression errors
	ErrP001 ErrorCode = "P001" // unexpected token
	ErrP002 ErrorCode = "P002" // malformed type expression

	// Workspace errors
	ErrW001 ErrorCode = "W001" // manifest unreadable or missing
	ErrW002 ErrorCode = "W002" // invalid manifest content
	ErrW003 ErrorCode = "W003" // reference to unknown concept or instance
	ErrW004 ErrorCode = "W004" // conflicting declaration
	ErrW005 ErrorCode = "W005" // query expectation not met

	// Resolution errors
	ErrR001 ErrorCode = "R001" // no matching instance
	ErrR002 ErrorCode = "R002" // unsatisfiable instance dependency
	ErrR003 ErrorCode = "R003" // ambiguous instance
	ErrR004 ErrorCode = "R004" // parameter not inferable
	ErrR005 ErrorCode = "R005" // inconsistent unification
)

// DiagnosticError is a positioned, coded error suitable for user-facing
// reporting. File may be empty for errors without a source location.
type DiagnosticError struct {
	Code  ErrorCode
	Token token.Token
	File  string
	Msg   string
}

func (e *DiagnosticError) Error() string {
	pos := fmt.Sprintf("%d:%d", e.Token.Line, e.Token.Column)
	if e.File != "" {
		pos = e.File + ":" + pos
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, pos, e.Msg)
}

// NewError creates a diagnostic at the given token's position.
func NewError(code ErrorCode, tok token.Token, msg string) *DiagnosticError {
	return &DiagnosticError{Code: code, Token: tok, Msg: msg}
}

// NewErrorf is NewError with Sprintf-style formatting.
func NewErrorf(code ErrorCode, tok token.Token, format string, args ...interface{}) *DiagnosticError {
	return &DiagnosticError{Code: code, Token: tok, Msg: fmt.Sprintf(format, args...)}
}

// Reporter receives diagnostics from processing stages.
type Reporter interface {
	Report(err *DiagnosticError)
}

// Sink is a Reporter that collects diagnostics, deduplicating exact
// repeats so repeated walks of the same declaration do not multiply
// identical errors. Distinct messages at the same position are kept:
// manifest diagnostics share a zero position within one file.
type Sink struct {
	errors   []*DiagnosticError
	errorSet map[string]*DiagnosticError // key: "file:line:col:code:msg"
}

func NewSink() *Sink {
	return &Sink{errorSet: make(map[string]*DiagnosticError)}
}

func (s *Sink) Report(err *DiagnosticError) {
	if err == nil {
		return
	}
	key := fmt.Sprintf("%s:%d:%d:%s:%s", err.File, err.Token.Line, err.Token.Column, err.Code, err.Msg)
	if _, dup := s.errorSet[key]; dup {
		return
	}
	s.errorSet[key] = err
	s.errors = append(s.errors, err)
}

// HasErrors reports whether anything was collected.
func (s *Sink) HasErrors() bool {
	return len(s.errors) > 0
}

// Errors returns collected diagnostics ordered by file, line, column.
func (s *Sink) Errors() []*DiagnosticError {
	result := make([]*DiagnosticError, len(s.errors))
	copy(result, s.errors)
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].File != result[j].File {
			return result[i].File < result[j].File
		}
		if result[i].Token.Line != result[j].Token.Line {
			return result[i].Token.Line < result[j].Token.Line
		}
		return result[i].Token.Column < result[j].Token.Column
	})
	return result
}
