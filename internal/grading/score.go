package grading

import (
	"encoding/json"

	"github.com/Isaacolagoke/Testai/internal/exam"
)

// Answer is one submitted response.
type Answer struct {
	QuestionID string          `json:"question_id"`
	Value      json.RawMessage `json:"answer"`
}

type Result struct {
	Records  []exam.AnswerRecord
	Correct  int
	Total    int
	Score    float64
	Passed   bool
	PassMark int
}

// Grade checks answers against questions. The denominator is the number of
// submitted answers; answers to unknown questions count as incorrect.
func (g *Grader) Grade(questions []exam.Question, answers []Answer, passMark int) Result {
	byID := make(map[string]exam.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	res := Result{Records: make([]exam.AnswerRecord, 0, len(answers)), Total: len(answers), PassMark: passMark}
	for _, a := range answers {
		ok := false
		if q, found := byID[a.QuestionID]; found {
			ok = g.Correct(q, a.Value)
		}
		if ok {
			res.Correct++
		}
		res.Records = append(res.Records, exam.AnswerRecord{
			QuestionID:    a.QuestionID,
			LearnerAnswer: a.Value,
			Correct:       ok,
		})
	}
	res.Score = Score(res.Correct, res.Total)
	res.Passed = res.Score >= float64(passMark)
	return res
}

// Score is correct/total as a percentage, 0 when nothing was submitted.
func Score(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) * 100 / float64(total)
}
