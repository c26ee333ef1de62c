package grading

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/Isaacolagoke/Testai/internal/exam"
)

// Comparator decides whether a submitted answer matches the stored key.
// Malformed input on either side is simply incorrect.
type Comparator interface {
	Correct(stored string, submitted json.RawMessage) bool
}

// Grader routes by question type to the correct Comparator.
type Grader struct {
	comparators map[exam.QuestionType]Comparator
	fallback    Comparator
}

// NewGrader installs the built-in comparators. Types without one use
// free-text comparison.
func NewGrader() *Grader {
	return &Grader{
		comparators: map[exam.QuestionType]Comparator{
			exam.QuestionMCQ:       indexComparator{},
			exam.QuestionTrueFalse: boolComparator{},
			exam.QuestionSelect:    indexSetComparator{},
			exam.QuestionShort:     textComparator{},
			exam.QuestionFillGap:   textComparator{},
		},
		fallback: textComparator{},
	}
}

func (g *Grader) Correct(q exam.Question, submitted json.RawMessage) bool {
	c, ok := g.comparators[q.Type]
	if !ok {
		c = g.fallback
	}
	return c.Correct(q.Answer, submitted)
}

// --- comparators ---

// indexComparator compares integer option indices.
type indexComparator struct{}

func (indexComparator) Correct(stored string, submitted json.RawMessage) bool {
	want, ok := leadingInt(stored)
	if !ok {
		return false
	}
	got, ok := leadingInt(Text(submitted))
	return ok && got == want
}

// boolComparator compares "true"/"false" case-insensitively.
type boolComparator struct{}

func (boolComparator) Correct(stored string, submitted json.RawMessage) bool {
	return strings.EqualFold(Text(submitted), stored)
}

// indexSetComparator compares index lists ignoring order but not multiplicity.
type indexSetComparator struct{}

func (indexSetComparator) Correct(stored string, submitted json.RawMessage) bool {
	want, ok := indexList(json.RawMessage(stored))
	if !ok {
		return false
	}
	got, ok := indexList(submitted)
	if !ok || len(got) != len(want) {
		return false
	}
	for i := range want {
		if want[i] != got[i] {
			return false
		}
	}
	return true
}

// textComparator is trimmed, case-insensitive equality.
type textComparator struct{}

func (textComparator) Correct(stored string, submitted json.RawMessage) bool {
	return strings.EqualFold(strings.TrimSpace(Text(submitted)), strings.TrimSpace(stored))
}

// --- helpers ---

// Text renders a submitted value as text: JSON strings are unquoted, other
// values keep their JSON spelling.
func Text(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// leadingInt parses an optional sign and the leading digits of s, so "2",
// " 2" and "2.0" all read as 2.
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	return n, err == nil
}

// indexList decodes a sorted list of indices from a JSON array, or from a
// JSON string holding an encoded array. Elements may be numbers or numeric
// strings.
func indexList(raw json.RawMessage) ([]int, bool) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		var encoded string
		if json.Unmarshal(raw, &encoded) != nil || json.Unmarshal([]byte(encoded), &elems) != nil {
			return nil, false
		}
	}
	if elems == nil {
		return nil, false
	}
	out := make([]int, 0, len(elems))
	for _, e := range elems {
		n, err := strconv.Atoi(strings.TrimSpace(Text(e)))
		if err != nil {
			return nil, false
		}
		out = append(out, n)
	}
	sort.Ints(out)
	return out, true
}
