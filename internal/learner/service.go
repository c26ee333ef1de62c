// Package learner delivers tests by access code, grades submissions and
// rebuilds results for display.
package learner

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Isaacolagoke/Testai/internal/apierr"
	"github.com/Isaacolagoke/Testai/internal/exam"
	"github.com/Isaacolagoke/Testai/internal/grading"
	"github.com/Isaacolagoke/Testai/internal/logger"
)

const msgTestUnavailable = "Test not found or not available"

type Service struct {
	store   exam.Store
	grader  *grading.Grader
	log     *logger.Logger
	shuffle func(n int, swap func(i, j int))
}

type Option func(*Service)

// WithShuffle replaces the permutation source; tests pass a seeded one.
func WithShuffle(f func(n int, swap func(i, j int))) Option {
	return func(s *Service) { s.shuffle = f }
}

func NewService(store exam.Store, log *logger.Logger, opts ...Option) *Service {
	s := &Service{store: store, grader: grading.NewGrader(), log: log, shuffle: rand.Shuffle}
	for _, o := range opts {
		o(s)
	}
	return s
}

// DeliveredQuestion is the learner view of a question. It has no answer field.
type DeliveredQuestion struct {
	ID            string            `json:"id"`
	Type          exam.QuestionType `json:"type"`
	Content       string            `json:"content"`
	Options       []string          `json:"options"`
	Difficulty    exam.Difficulty   `json:"difficulty"`
	OptionMapping []int             `json:"option_mapping,omitempty"` // shuffled position -> stored index
}

type DeliveredTest struct {
	ID             string              `json:"id"`
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Type           exam.TestType       `json:"type"`
	Status         exam.Status         `json:"status"`
	PassMark       int                 `json:"pass_mark"`
	ShuffleAnswers bool                `json:"shuffle_answers"`
	ResultText     string              `json:"result_text"`
	Questions      []DeliveredQuestion `json:"questions"`
}

// Deliver resolves an active test by access code and strips answer keys.
func (s *Service) Deliver(ctx context.Context, code string) (DeliveredTest, error) {
	t, err := s.store.GetActiveTestByCode(ctx, code)
	if errors.Is(err, exam.ErrNotFound) {
		return DeliveredTest{}, apierr.NotFound(msgTestUnavailable)
	}
	if err != nil {
		return DeliveredTest{}, apierr.Upstream("Server error", fmt.Errorf("test by code: %w", err))
	}
	qs, err := s.store.ListQuestions(ctx, t.ID)
	if err != nil {
		return DeliveredTest{}, apierr.Upstream("Server error", fmt.Errorf("questions for %s: %w", t.ID, err))
	}

	out := DeliveredTest{
		ID: t.ID, Title: t.Title, Description: t.Description, Type: t.Type, Status: t.Status,
		PassMark: t.PassMark, ShuffleAnswers: t.ShuffleAnswers, ResultText: t.ResultText,
		Questions: make([]DeliveredQuestion, 0, len(qs)),
	}
	for _, q := range qs {
		dq := DeliveredQuestion{ID: q.ID, Type: q.Type, Content: q.Content, Options: q.Options, Difficulty: q.Difficulty}
		if t.ShuffleAnswers && q.Type == exam.QuestionMCQ && len(q.Options) > 0 {
			dq.Options, dq.OptionMapping = s.permute(q.Options)
		}
		out.Questions = append(out.Questions, dq)
	}
	return out, nil
}

// permute returns a shuffled copy of opts and, for each shuffled position,
// the index the option had in opts.
func (s *Service) permute(opts []string) ([]string, []int) {
	mapping := make([]int, len(opts))
	for i := range mapping {
		mapping[i] = i
	}
	s.shuffle(len(mapping), func(i, j int) { mapping[i], mapping[j] = mapping[j], mapping[i] })
	shuffled := make([]string, len(opts))
	for pos, orig := range mapping {
		shuffled[pos] = opts[orig]
	}
	return shuffled, mapping
}

type SubmitInput struct {
	TestID       string
	LearnerName  string
	LearnerEmail string
	Answers      []grading.Answer
}

type Receipt struct {
	SubmissionID   string    `json:"submission_id"`
	TestTitle      string    `json:"test_title"`
	Score          float64   `json:"score"`
	Passed         bool      `json:"passed"`
	TotalQuestions int       `json:"total_questions"`
	CorrectAnswers int       `json:"correct_answers"`
	SubmissionDate time.Time `json:"submission_date"`
}

// Submit grades in against the stored keys and persists the submission.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Receipt, error) {
	t, err := s.store.GetTest(ctx, in.TestID)
	if errors.Is(err, exam.ErrNotFound) || (err == nil && t.Status != exam.StatusActive) {
		return Receipt{}, apierr.NotFound(msgTestUnavailable)
	}
	if err != nil {
		return Receipt{}, apierr.Upstream("Server error", fmt.Errorf("get test: %w", err))
	}
	qs, err := s.store.ListQuestions(ctx, t.ID)
	if err != nil {
		return Receipt{}, apierr.Upstream("Error retrieving test questions", err)
	}

	res := s.grader.Grade(qs, in.Answers, t.PassMark)
	sub, err := s.store.CreateSubmission(ctx, exam.Submission{
		TestID:    t.ID,
		LearnerID: LearnerID(in.LearnerName, in.LearnerEmail),
		Answers:   res.Records,
		Score:     res.Score,
		Passed:    res.Passed,
	})
	if err != nil {
		return Receipt{}, apierr.Upstream("Error saving test submission", err)
	}
	s.log.Info("submission stored",
		"submission_id", sub.ID, "test_id", t.ID, "learner_id", sub.LearnerID,
		"score", res.Score, "passed", res.Passed)

	return Receipt{
		SubmissionID:   sub.ID,
		TestTitle:      t.Title,
		Score:          res.Score,
		Passed:         res.Passed,
		TotalQuestions: res.Total,
		CorrectAnswers: res.Correct,
		SubmissionDate: sub.SubmittedAt,
	}, nil
}

// DetailedAnswer is a stored verdict enriched with its question. The question
// fields stay empty when the question no longer exists.
type DetailedAnswer struct {
	exam.AnswerRecord
	QuestionContent string            `json:"question_content,omitempty"`
	QuestionType    exam.QuestionType `json:"question_type,omitempty"`
	Options         []string          `json:"options,omitempty"`
	CorrectAnswer   string            `json:"correct_answer,omitempty"`
}

type Result struct {
	ID              string           `json:"id"`
	TestTitle       string           `json:"test_title"`
	TestDescription string           `json:"test_description"`
	LearnerName     string           `json:"learner_name"`
	LearnerEmail    string           `json:"learner_email"`
	Score           float64          `json:"score"`
	Passed          bool             `json:"passed"`
	PassMark        int              `json:"pass_mark"`
	ResultText      string           `json:"result_text"`
	SubmissionDate  time.Time        `json:"submission_date"`
	Answers         []DetailedAnswer `json:"answers"`
}

// Result rebuilds the display view of a stored submission.
func (s *Service) Result(ctx context.Context, submissionID string) (Result, error) {
	sub, err := s.store.GetSubmission(ctx, submissionID)
	if errors.Is(err, exam.ErrNotFound) {
		return Result{}, apierr.NotFound("Submission not found")
	}
	if err != nil {
		return Result{}, apierr.Upstream("Server error", fmt.Errorf("get submission: %w", err))
	}

	var (
		t  exam.Test
		qs []exam.Question
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		t, err = s.store.GetTest(gctx, sub.TestID)
		if errors.Is(err, exam.ErrNotFound) {
			return apierr.NotFound("Test not found")
		}
		return err
	})
	g.Go(func() error {
		var err error
		if qs, err = s.store.ListQuestions(gctx, sub.TestID); err != nil {
			return apierr.Upstream("Error retrieving questions", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	byID := make(map[string]exam.Question, len(qs))
	for _, q := range qs {
		byID[q.ID] = q
	}
	answers := make([]DetailedAnswer, 0, len(sub.Answers))
	for _, a := range sub.Answers {
		d := DetailedAnswer{AnswerRecord: a}
		if q, ok := byID[a.QuestionID]; ok {
			d.QuestionContent, d.QuestionType, d.Options, d.CorrectAnswer = q.Content, q.Type, q.Options, q.Answer
		}
		answers = append(answers, d)
	}

	name, email := ParseLearnerID(sub.LearnerID)
	return Result{
		ID:              sub.ID,
		TestTitle:       t.Title,
		TestDescription: t.Description,
		LearnerName:     name,
		LearnerEmail:    email,
		Score:           sub.Score,
		Passed:          sub.Passed,
		PassMark:        t.PassMark,
		ResultText:      t.ResultText,
		SubmissionDate:  sub.SubmittedAt,
		Answers:         answers,
	}, nil
}
