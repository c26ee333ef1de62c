package exam

import "context"

// Outcome is the result of one item of a best-effort batch.
type Outcome struct {
	Index    int
	Question Question
	Err      error
}

// AddQuestions inserts qs one by one. A failing item does not stop the
// batch; callers inspect the outcomes to detect partial failure.
func AddQuestions(ctx context.Context, s Store, qs []Question) []Outcome {
	out := make([]Outcome, 0, len(qs))
	for i, q := range qs {
		saved, err := s.AddQuestion(ctx, q)
		if err != nil {
			out = append(out, Outcome{Index: i, Question: q, Err: err})
			continue
		}
		out = append(out, Outcome{Index: i, Question: saved})
	}
	return out
}

// Inserted returns the questions that were stored.
func Inserted(outcomes []Outcome) []Question {
	qs := make([]Question, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err == nil {
			qs = append(qs, o.Question)
		}
	}
	return qs
}

// Failed returns the outcomes that carry an error.
func Failed(outcomes []Outcome) []Outcome {
	var bad []Outcome
	for _, o := range outcomes {
		if o.Err != nil {
			bad = append(bad, o)
		}
	}
	return bad
}

// Failure is the client-facing form of a failed outcome. Causes stay in the logs.
type Failure struct {
	Index int    `json:"index"`
	Msg   string `json:"msg"`
}

func Failures(outcomes []Outcome) []Failure {
	out := []Failure{}
	for _, o := range Failed(outcomes) {
		out = append(out, Failure{Index: o.Index, Msg: "Error saving question"})
	}
	return out
}
