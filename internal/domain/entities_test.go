package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestSectionTotal_ExplicitWins(t *testing.T) {
	explicit := 12.5
	s := Section{
		SectionTotal: &explicit,
		Questions: []Question{
			{Number: 1, MarksObtained: 4},
			{Number: 2, MarksObtained: 5},
		},
	}
	if got := s.Total(); got != 12.5 {
		t.Fatalf("expected explicit total, got %v", got)
	}
}

func TestSectionTotal_SumsNonExtra(t *testing.T) {
	s := Section{
		Questions: []Question{
			{Number: 1, MarksObtained: 4},
			{Number: 2, MarksObtained: 5},
			{Number: 3, MarksObtained: 3, IsExtra: true},
		},
	}
	if got := s.Total(); got != 9 {
		t.Fatalf("extra question must not count, got %v", got)
	}
}

func TestSectionTotal_Empty(t *testing.T) {
	if got := (Section{}).Total(); got != 0 {
		t.Fatalf("empty section total = %v", got)
	}
}

func TestSentinelErrors_Distinct(t *testing.T) {
	sentinels := []error{
		ErrInvalidArgument, ErrNotFound, ErrModelTransient, ErrModelHard,
		ErrParse, ErrPersistence, ErrLogging, ErrInternal,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Fatalf("sentinel %v matches %v", a, b)
			}
		}
	}
}

func TestSentinelErrors_WrapUnwrap(t *testing.T) {
	wrapped := fmt.Errorf("op=sheets.Get: %w", ErrNotFound)
	if !errors.Is(wrapped, ErrNotFound) {
		t.Fatalf("wrapped sentinel must satisfy errors.Is")
	}
	if errors.Is(wrapped, ErrPersistence) {
		t.Fatalf("wrapped sentinel must not match others")
	}
}

func TestEvaluationTypeConstants(t *testing.T) {
	if EvaluationSection != "section" || EvaluationFull != "full" {
		t.Fatalf("unexpected evaluation type constants")
	}
}
