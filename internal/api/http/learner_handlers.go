package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Isaacolagoke/Testai/internal/apierr"
	"github.com/Isaacolagoke/Testai/internal/exam"
	"github.com/Isaacolagoke/Testai/internal/grading"
	"github.com/Isaacolagoke/Testai/internal/learner"
	"github.com/Isaacolagoke/Testai/internal/validate"
)

// GET /learner/test/{accessCode}
func DeliverTestHandler(svc *learner.Service, rs *Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "accessCode")))
		if len(code) != exam.AccessCodeLen {
			rs.Error(w, r, apierr.Validation("Valid access code is required"))
			return
		}
		t, err := svc.Deliver(r.Context(), code)
		if err != nil {
			rs.Error(w, r, err)
			return
		}
		rs.JSON(w, http.StatusOK, t)
	}
}

type answerInput struct {
	QuestionID string          `json:"question_id" validate:"required,uuid"`
	Answer     json.RawMessage `json:"answer" validate:"present"`
}

type submitRequest struct {
	TestID       string        `json:"test_id" validate:"required,uuid"`
	LearnerName  string        `json:"learner_name" validate:"required"`
	LearnerEmail string        `json:"learner_email" validate:"required,email"`
	Answers      []answerInput `json:"answers" validate:"required,dive"`
}

var submitMessages = validate.Messages{
	"test_id":             msgTestID,
	"learner_name":        "Learner name is required",
	"learner_email":       "Valid email is required",
	"answers":             "Answers must be an array",
	"answers.question_id": "Valid question ID is required",
	"answers.answer":      "Answer is required",
}

// POST /learner/submit
func SubmitHandler(svc *learner.Service, rs *Responder) http.HandlerFunc {
	type out struct {
		Message string `json:"message"`
		learner.Receipt
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if err := Decode(r, &req); err != nil {
			rs.Error(w, r, err)
			return
		}
		if verr := validate.Struct(req, submitMessages); verr != nil {
			rs.Error(w, r, verr)
			return
		}
		answers := make([]grading.Answer, 0, len(req.Answers))
		for _, a := range req.Answers {
			answers = append(answers, grading.Answer{QuestionID: a.QuestionID, Value: a.Answer})
		}
		rc, err := svc.Submit(r.Context(), learner.SubmitInput{
			TestID:       req.TestID,
			LearnerName:  req.LearnerName,
			LearnerEmail: req.LearnerEmail,
			Answers:      answers,
		})
		if err != nil {
			rs.Error(w, r, err)
			return
		}
		rs.JSON(w, http.StatusCreated, out{Message: "Test submitted successfully", Receipt: rc})
	}
}

// GET /learner/result/{submissionId}
func ResultHandler(svc *learner.Service, rs *Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "submissionId", "Valid submission ID is required")
		if err != nil {
			rs.Error(w, r, err)
			return
		}
		res, err := svc.Result(r.Context(), id)
		if err != nil {
			rs.Error(w, r, err)
			return
		}
		rs.JSON(w, http.StatusOK, res)
	}
}
