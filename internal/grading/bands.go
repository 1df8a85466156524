package grading

// band maps a minimum percentage to a letter grade. Ordered highest first;
// GradeFor walks it top-down so the function is a total monotonic step.
type band struct {
	Min   float64
	Grade string
}

var bands = []band{
	{90, "A+"},
	{80, "A"},
	{70, "B+"},
	{60, "B"},
	{50, "C+"},
	{40, "C"},
	{33, "D"},
}

// GradeFor maps a percentage score to its letter grade. Anything below the
// lowest band is an F.
func GradeFor(percentage float64) string {
	for _, b := range bands {
		if percentage >= b.Min {
			return b.Grade
		}
	}
	return "F"
}
