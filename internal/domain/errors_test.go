package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainErrorFormat(t *testing.T) {
	err := NewDomainError("Planner.Plan", ErrNoViableCandidate, "role 'coder'")
	want := "Planner.Plan: role 'coder': no viable candidate for role"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorFormatNoDetail(t *testing.T) {
	err := NewDomainError("Assembler.BuildPlan", ErrInvalidInput, "")
	want := "Assembler.BuildPlan: invalid input"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	err := NewDomainError("Overrides.Apply", ErrUnknownModel, "gamma/phantom")
	if !errors.Is(err, ErrUnknownModel) {
		t.Error("errors.Is should match ErrUnknownModel")
	}
}

func TestDomainErrorAs(t *testing.T) {
	err := NewDomainError("Shadow.Evaluate", ErrMissingMetrics, "coder/beta-pro")
	var de *DomainError
	if !errors.As(err, &de) {
		t.Fatal("errors.As should match *DomainError")
	}
	if de.Op != "Shadow.Evaluate" {
		t.Errorf("Op = %q, want %q", de.Op, "Shadow.Evaluate")
	}
}

// --- WrapOp tests ---

func TestWrapOp_Nil(t *testing.T) {
	if WrapOp("anything", nil) != nil {
		t.Error("WrapOp(nil) must be nil")
	}
}

func TestWrapOp_Format(t *testing.T) {
	err := WrapOp("Tracker.CheckBudget", ErrBudgetExceeded)
	if got, want := err.Error(), "Tracker.CheckBudget: budget ceiling exceeded"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWrapOp_PreservesIs(t *testing.T) {
	err := WrapOp("Manager.Summary", ErrExperimentNotFound)
	if !errors.Is(err, ErrExperimentNotFound) {
		t.Error("errors.Is must see through WrapOp")
	}
}

func TestWrapOp_Chain(t *testing.T) {
	inner := WrapOp("inner", ErrBudgetExceeded)
	outer := WrapOp("outer", inner)
	if got, want := outer.Error(), "outer: inner: budget ceiling exceeded"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if !errors.Is(outer, ErrBudgetExceeded) {
		t.Error("errors.Is must survive two levels of wrapping")
	}
}

// --- IsFatal tests ---

func TestIsFatal(t *testing.T) {
	if !IsFatal(ErrNoViableCandidate) {
		t.Error("a role with no candidates must abort assembly")
	}
	if !IsFatal(NewDomainError("Planner.Plan", ErrNoViableCandidate, "role 'tester'")) {
		t.Error("IsFatal must see through DomainError")
	}
	if IsFatal(ErrUnknownModel) {
		t.Error("unknown override targets degrade, they do not abort")
	}
	if IsFatal(fmt.Errorf("random error")) {
		t.Error("arbitrary errors are not fatal")
	}
	if IsFatal(nil) {
		t.Error("nil is not fatal")
	}
}
