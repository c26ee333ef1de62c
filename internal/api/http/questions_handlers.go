package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Isaacolagoke/Testai/internal/apierr"
	"github.com/Isaacolagoke/Testai/internal/exam"
	"github.com/Isaacolagoke/Testai/internal/validate"
)

type questionInput struct {
	Type       exam.QuestionType `json:"type" validate:"oneof=mcq true_false short select fill_gap"`
	Content    string            `json:"content" validate:"required"`
	Options    []string          `json:"options"`
	Answer     json.RawMessage   `json:"answer" validate:"present"`
	Difficulty exam.Difficulty   `json:"difficulty" validate:"oneof=easy medium hard"`
}

type addQuestionsRequest struct {
	TestID    string          `json:"test_id" validate:"required,uuid"`
	Questions []questionInput `json:"questions" validate:"required,dive"`
}

var addQuestionsMessages = validate.Messages{
	"test_id":              msgTestID,
	"questions":            "Questions must be an array",
	"questions.type":       "Valid question type is required",
	"questions.content":    "Question content is required",
	"questions.answer":     "Answer is required",
	"questions.difficulty": "Difficulty must be easy, medium, or hard",
}

// answerText stores strings as-is and any other JSON value as its JSON text.
func answerText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

type addQuestionsResponse struct {
	Message   string          `json:"message"`
	Questions []exam.Question `json:"questions"`
	Failures  []exam.Failure  `json:"failures"`
}

// POST /questions
func AddQuestionsHandler(store exam.Store, rs *Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addQuestionsRequest
		if err := Decode(r, &req); err != nil {
			rs.Error(w, r, err)
			return
		}
		if verr := validate.Struct(req, addQuestionsMessages); verr != nil {
			rs.Error(w, r, verr)
			return
		}
		if _, err := ownedTest(r.Context(), store, r, req.TestID); err != nil {
			rs.Error(w, r, err)
			return
		}

		batch := make([]exam.Question, 0, len(req.Questions))
		for _, in := range req.Questions {
			batch = append(batch, exam.Question{
				TestID:     req.TestID,
				Type:       in.Type,
				Content:    in.Content,
				Options:    in.Options,
				Answer:     answerText(in.Answer),
				Difficulty: in.Difficulty,
			})
		}
		outcomes := exam.AddQuestions(r.Context(), store, batch)
		for _, o := range exam.Failed(outcomes) {
			rs.Log.Warn("question not saved", "test_id", req.TestID, "index", o.Index, "error", o.Err.Error())
		}
		inserted := exam.Inserted(outcomes)
		if len(inserted) == 0 && len(batch) > 0 {
			rs.Error(w, r, apierr.Upstream("Error adding questions to test", exam.Failed(outcomes)[0].Err))
			return
		}
		rs.JSON(w, http.StatusCreated, addQuestionsResponse{
			Message:   "Questions added successfully",
			Questions: inserted,
			Failures:  exam.Failures(outcomes),
		})
	}
}

// GET /questions/{id}, where id is the test.
func ListQuestionsHandler(store exam.Store, rs *Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id", msgTestID)
		if err != nil {
			rs.Error(w, r, err)
			return
		}
		if _, err := ownedTest(r.Context(), store, r, id); err != nil {
			rs.Error(w, r, err)
			return
		}
		qs, err := store.ListQuestions(r.Context(), id)
		if err != nil {
			rs.Error(w, r, apierr.Upstream("Error retrieving questions", err))
			return
		}
		rs.JSON(w, http.StatusOK, qs)
	}
}

// DELETE /questions/{id}
func DeleteQuestionHandler(store exam.Store, rs *Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id", "Valid question ID is required")
		if err != nil {
			rs.Error(w, r, err)
			return
		}
		q, err := store.GetQuestion(r.Context(), id)
		if errors.Is(err, exam.ErrNotFound) {
			rs.Error(w, r, apierr.NotFound("Question not found"))
			return
		}
		if err != nil {
			rs.Error(w, r, apierr.Upstream("Error deleting question", err))
			return
		}
		if _, err := ownedTest(r.Context(), store, r, q.TestID); err != nil {
			rs.Error(w, r, err)
			return
		}
		if err := store.DeleteQuestion(r.Context(), id); err != nil && !errors.Is(err, exam.ErrNotFound) {
			rs.Error(w, r, apierr.Upstream("Error deleting question", err))
			return
		}
		rs.JSON(w, http.StatusOK, map[string]string{"message": "Question deleted successfully"})
	}
}
