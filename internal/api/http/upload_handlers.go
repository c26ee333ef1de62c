package http

import (
	"errors"
	"net/http"

	"github.com/Isaacolagoke/Testai/internal/ai"
	"github.com/Isaacolagoke/Testai/internal/apierr"
	"github.com/Isaacolagoke/Testai/internal/exam"
	"github.com/Isaacolagoke/Testai/internal/upload"
	"github.com/Isaacolagoke/Testai/internal/validate"
)

const multipartOverhead = 1 << 20

// POST /upload (multipart: file, testId)
func UploadHandler(store exam.Store, svc *upload.Service, rs *Responder, maxBytes int64) http.HandlerFunc {
	type out struct {
		Upload  exam.Upload `json:"upload"`
		Message string      `json:"message"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		// the limit is on the file; the body gets room for boundaries and fields
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				rs.Error(w, r, apierr.BadRequest("File too large"))
				return
			}
			rs.Error(w, r, apierr.BadRequest("No file uploaded"))
			return
		}
		defer r.MultipartForm.RemoveAll()

		f, hdr, err := r.FormFile("file")
		if err != nil {
			rs.Error(w, r, apierr.BadRequest("No file uploaded"))
			return
		}
		defer f.Close()
		if hdr.Size > maxBytes {
			rs.Error(w, r, apierr.BadRequest("File too large"))
			return
		}

		testID := r.FormValue("testId")
		if testID == "" {
			testID = r.FormValue("test_id")
		}
		if testID == "" {
			rs.Error(w, r, apierr.BadRequest("Test ID is required"))
			return
		}
		if !validate.IsUUID(testID) {
			rs.Error(w, r, apierr.NotFound("Test not found"))
			return
		}
		if _, err := ownedTest(r.Context(), store, r, testID); err != nil {
			rs.Error(w, r, err)
			return
		}

		u, err := svc.Upload(r.Context(), testID, upload.File{
			Name:     hdr.Filename,
			MimeType: hdr.Header.Get("Content-Type"),
			Body:     f,
		})
		if err != nil {
			rs.Error(w, r, err)
			return
		}
		rs.JSON(w, http.StatusCreated, out{Upload: u, Message: "File uploaded successfully"})
	}
}

var specMessages = validate.Messages{
	"test_id":       msgTestID,
	"upload_id":     "Valid upload ID is required",
	"content":       "Content is required",
	"num_questions": "Number of questions must be between 1 and 30",
	"question_type": "Invalid question type",
	"difficulty":    "Difficulty must be easy, medium, or hard",
}

type analyzeRequest struct {
	UploadID     string            `json:"upload_id" validate:"required,uuid"`
	TestID       string            `json:"test_id" validate:"required,uuid"`
	NumQuestions *int              `json:"num_questions" validate:"omitnil,min=1,max=30"`
	QuestionType exam.QuestionType `json:"question_type" validate:"omitempty,oneof=mcq true_false short select fill_gap"`
	Difficulty   exam.Difficulty   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

type generateRequest struct {
	TestID       string            `json:"test_id" validate:"required,uuid"`
	Content      string            `json:"content" validate:"required"`
	NumQuestions *int              `json:"num_questions" validate:"omitnil,min=1,max=30"`
	QuestionType exam.QuestionType `json:"question_type" validate:"omitempty,oneof=mcq true_false short select fill_gap"`
	Difficulty   exam.Difficulty   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

func buildSpec(n *int, qt exam.QuestionType, d exam.Difficulty) ai.Spec {
	s := ai.Spec{QuestionType: qt, Difficulty: d}
	if n != nil {
		s.NumQuestions = *n
	}
	return s.WithDefaults()
}

type analysisResponse struct {
	Message string `json:"message"`
	upload.Analysis
}

// POST /ai/analyze
func AnalyzeHandler(store exam.Store, svc *upload.Service, rs *Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req analyzeRequest
		if err := Decode(r, &req); err != nil {
			rs.Error(w, r, err)
			return
		}
		if verr := validate.Struct(req, specMessages); verr != nil {
			rs.Error(w, r, verr)
			return
		}
		if _, err := ownedTest(r.Context(), store, r, req.TestID); err != nil {
			rs.Error(w, r, err)
			return
		}
		res, err := svc.Analyze(r.Context(), req.UploadID, req.TestID, buildSpec(req.NumQuestions, req.QuestionType, req.Difficulty))
		if err != nil {
			rs.Error(w, r, err)
			return
		}
		msg := "Content analyzed and questions generated successfully"
		if res.Cached {
			msg = "Questions already generated for this upload"
		}
		rs.JSON(w, http.StatusOK, analysisResponse{Message: msg, Analysis: res})
	}
}

// POST /ai/generate
func GenerateHandler(store exam.Store, svc *upload.Service, rs *Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := Decode(r, &req); err != nil {
			rs.Error(w, r, err)
			return
		}
		if verr := validate.Struct(req, specMessages); verr != nil {
			rs.Error(w, r, verr)
			return
		}
		if _, err := ownedTest(r.Context(), store, r, req.TestID); err != nil {
			rs.Error(w, r, err)
			return
		}
		res, err := svc.Generate(r.Context(), req.TestID, req.Content, buildSpec(req.NumQuestions, req.QuestionType, req.Difficulty))
		if err != nil {
			rs.Error(w, r, err)
			return
		}
		rs.JSON(w, http.StatusOK, analysisResponse{Message: "Questions generated successfully", Analysis: res})
	}
}
