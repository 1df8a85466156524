package grading_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/sheet-reeval/internal/grading"
)

func TestGradeFor_Boundaries(t *testing.T) {
	t.Parallel()
	cases := []struct {
		pct  float64
		want string
	}{
		{0, "F"},
		{32.9, "F"},
		{32.999, "F"},
		{33, "D"},
		{39.9, "D"},
		{40, "C"},
		{49.9, "C"},
		{50, "C+"},
		{59.9, "C+"},
		{60, "B"},
		{69.9, "B"},
		{70, "B+"},
		{79.9, "B+"},
		{80, "A"},
		{89.9, "A"},
		{89.999, "A"},
		{90, "A+"},
		{100, "A+"},
		{120, "A+"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, grading.GradeFor(tc.pct), "pct=%v", tc.pct)
	}
}

func TestGradeFor_Monotonic(t *testing.T) {
	t.Parallel()
	rank := map[string]int{"F": 0, "D": 1, "C": 2, "C+": 3, "B": 4, "B+": 5, "A": 6, "A+": 7}
	prev := -1
	for pct := 0.0; pct <= 100; pct += 0.5 {
		r := rank[grading.GradeFor(pct)]
		assert.GreaterOrEqual(t, r, prev, "grade rank regressed at pct=%v", pct)
		prev = r
	}
}
