package diagnostics

import (
	"testing"

	"github.com/begriff-lang/begriff/internal/token"
)

func TestDiagnosticError_Error(t *testing.T) {
	tok := token.Token{Line: 3, Column: 7}

	err := NewError(ErrP001, tok, "expected '>', found ')'")
	if got := err.Error(); got != "[P001] 3:7: expected '>', found ')'" {
		t.Errorf("unexpected rendering: %s", got)
	}

	err = NewErrorf(ErrW003, tok, "unknown concept %s", "Eq")
	err.File = "begriff.yaml"
	if got := err.Error(); got != "[W003] begriff.yaml:3:7: unknown concept Eq" {
		t.Errorf("unexpected rendering: %s", got)
	}
}

func TestSink_DeduplicatesExactRepeats(t *testing.T) {
	sink := NewSink()
	tok := token.Token{Line: 1, Column: 1}

	sink.Report(NewError(ErrW003, tok, "unknown concept Eq"))
	sink.Report(NewError(ErrW003, tok, "unknown concept Eq"))

	if len(sink.Errors()) != 1 {
		t.Errorf("got %d diagnostics, want 1", len(sink.Errors()))
	}
}

func TestSink_KeepsDistinctMessagesAtSamePosition(t *testing.T) {
	sink := NewSink()

	// Manifest diagnostics carry no token position, only a file.
	a := NewError(ErrW003, token.Token{}, "unknown concept Eq")
	a.File = "begriff.yaml"
	b := NewError(ErrW003, token.Token{}, "unknown concept Ord")
	b.File = "begriff.yaml"
	sink.Report(a)
	sink.Report(b)

	if len(sink.Errors()) != 2 {
		t.Errorf("got %d diagnostics, want 2", len(sink.Errors()))
	}
}

func TestSink_OrdersByPosition(t *testing.T) {
	sink := NewSink()
	report := func(file string, line, col int, msg string) {
		err := NewError(ErrP001, token.Token{Line: line, Column: col}, msg)
		err.File = file
		sink.Report(err)
	}

	report("b.yaml", 1, 1, "third")
	report("a.yaml", 2, 5, "second")
	report("a.yaml", 2, 1, "first")

	errs := sink.Errors()
	if len(errs) != 3 {
		t.Fatalf("got %d diagnostics, want 3", len(errs))
	}
	if errs[0].Msg != "first" || errs[1].Msg != "second" || errs[2].Msg != "third" {
		t.Errorf("unexpected order: %s, %s, %s", errs[0].Msg, errs[1].Msg, errs[2].Msg)
	}
}

func TestSink_IgnoresNil(t *testing.T) {
	sink := NewSink()
	sink.Report(nil)
	if sink.HasErrors() {
		t.Error("nil report should not count")
	}
}
