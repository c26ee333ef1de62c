package ai

import (
	"fmt"

	"github.com/Isaacolagoke/Testai/internal/exam"
)

const (
	DefaultNumQuestions = 5
	MaxNumQuestions     = 30
)

// Spec says what to generate.
type Spec struct {
	NumQuestions int               `json:"num_questions"`
	QuestionType exam.QuestionType `json:"question_type"`
	Difficulty   exam.Difficulty   `json:"difficulty"`
}

// WithDefaults fills unset fields: 5 medium mcq questions.
func (s Spec) WithDefaults() Spec {
	if s.NumQuestions == 0 {
		s.NumQuestions = DefaultNumQuestions
	}
	if s.QuestionType == "" {
		s.QuestionType = exam.QuestionMCQ
	}
	if s.Difficulty == "" {
		s.Difficulty = exam.DifficultyMedium
	}
	return s
}

func (s Spec) Validate() error {
	if s.NumQuestions < 1 || s.NumQuestions > MaxNumQuestions {
		return fmt.Errorf("num_questions must be between 1 and %d", MaxNumQuestions)
	}
	if !s.QuestionType.Valid() {
		return fmt.Errorf("unknown question type %q", s.QuestionType)
	}
	if !s.Difficulty.Valid() {
		return fmt.Errorf("unknown difficulty %q", s.Difficulty)
	}
	return nil
}

// Input is the material questions are generated from. Image, when set,
// is sent inline with MimeType.
type Input struct {
	Text     string
	Image    []byte
	MimeType string
}

func (in Input) IsImage() bool { return len(in.Image) > 0 }
