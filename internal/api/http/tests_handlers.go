package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/Isaacolagoke/Testai/internal/apierr"
	auth "github.com/Isaacolagoke/Testai/internal/auth/middleware"
	"github.com/Isaacolagoke/Testai/internal/exam"
	"github.com/Isaacolagoke/Testai/internal/rbac"
	"github.com/Isaacolagoke/Testai/internal/validate"
)

const msgTestID = "Valid test ID is required"

type createTestRequest struct {
	TutorID        string        `json:"tutor_id" validate:"required,uuid"`
	Title          string        `json:"title" validate:"required"`
	Description    string        `json:"description"`
	Type           exam.TestType `json:"type" validate:"oneof=test assignment"`
	PassMark       *int          `json:"pass_mark" validate:"omitnil,min=0,max=100"`
	ShuffleAnswers *bool         `json:"shuffle_answers"`
	ResultText     string        `json:"result_text"`
}

var createTestMessages = validate.Messages{
	"tutor_id":  "Valid tutor ID is required",
	"title":     "Title is required",
	"type":      "Type must be either test or assignment",
	"pass_mark": "Pass mark must be between 0 and 100",
}

type updateTestRequest struct {
	Title          *string        `json:"title" validate:"omitnil,min=1"`
	Description    *string        `json:"description"`
	Type           *exam.TestType `json:"type" validate:"omitnil,oneof=test assignment"`
	Status         *exam.Status   `json:"status" validate:"omitnil,oneof=active paused deleted"`
	PassMark       *int           `json:"pass_mark" validate:"omitnil,min=0,max=100"`
	ShuffleAnswers *bool          `json:"shuffle_answers"`
	ResultText     *string        `json:"result_text"`
}

var updateTestMessages = validate.Messages{
	"title":     "Title cannot be empty",
	"type":      "Type must be either test or assignment",
	"status":    "Status must be active, paused, or deleted",
	"pass_mark": "Pass mark must be between 0 and 100",
}

func (u updateTestRequest) patch() exam.TestPatch {
	return exam.TestPatch{
		Title:          u.Title,
		Description:    u.Description,
		Type:           u.Type,
		Status:         u.Status,
		PassMark:       u.PassMark,
		ShuffleAnswers: u.ShuffleAnswers,
		ResultText:     u.ResultText,
	}
}

// uuidParam reads a path parameter that must be a UUID.
func uuidParam(r *http.Request, name, msg string) (string, error) {
	id := chi.URLParam(r, name)
	if !validate.IsUUID(id) {
		return "", apierr.Validation(msg)
	}
	return id, nil
}

// ownedTest loads a test the caller may manage: their own, or any for admins.
func ownedTest(ctx context.Context, store exam.Store, r *http.Request, id string) (exam.Test, error) {
	t, err := store.GetTest(ctx, id)
	if errors.Is(err, exam.ErrNotFound) {
		return exam.Test{}, apierr.NotFound("Test not found")
	}
	if err != nil {
		return exam.Test{}, apierr.Upstream("Server error fetching test", err)
	}
	if !rbac.OwnerOr(r, t.TutorID == auth.SubjectFromContext(ctx), rbac.PermTestManageAny) {
		return exam.Test{}, rbac.ErrForbidden()
	}
	return t, nil
}

// POST /tests
func CreateTestHandler(store exam.Store, rs *Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTestRequest
		if err := Decode(r, &req); err != nil {
			rs.Error(w, r, err)
			return
		}
		sub := auth.SubjectFromContext(r.Context())
		if req.TutorID == "" {
			req.TutorID = sub
		}
		if verr := validate.Struct(req, createTestMessages); verr != nil {
			rs.Error(w, r, verr)
			return
		}
		if !rbac.OwnerOr(r, req.TutorID == sub, rbac.PermTestManageAny) {
			rs.Error(w, r, rbac.ErrForbidden())
			return
		}

		t := exam.Test{
			TutorID:     req.TutorID,
			Title:       req.Title,
			Description: req.Description,
			Type:        req.Type,
			Status:      exam.StatusActive,
			PassMark:    exam.DefaultPassMark,
			ResultText:  req.ResultText,
		}
		if req.PassMark != nil {
			t.PassMark = *req.PassMark
		}
		if req.ShuffleAnswers != nil {
			t.ShuffleAnswers = *req.ShuffleAnswers
		}
		created, err := store.CreateTest(r.Context(), t)
		if err != nil {
			rs.Error(w, r, apierr.Upstream("Server error creating test", err))
			return
		}
		rs.Log.Info("test created", "test_id", created.ID, "tutor", created.TutorID, "access_code", created.AccessCode)
		rs.JSON(w, http.StatusCreated, created)
	}
}

// GET /tests/{id}
func GetTestHandler(store exam.Store, rs *Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id", msgTestID)
		if err != nil {
			rs.Error(w, r, err)
			return
		}
		t, err := ownedTest(r.Context(), store, r, id)
		if err != nil {
			rs.Error(w, r, err)
			return
		}
		rs.JSON(w, http.StatusOK, t)
	}
}

// GET /tests?tutor_id=
func ListTestsHandler(store exam.Store, rs *Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tutorID := r.URL.Query().Get("tutor_id")
		if tutorID == "" {
			rs.Error(w, r, apierr.Validation("Tutor ID is required"))
			return
		}
		if !rbac.OwnerOr(r, tutorID == auth.SubjectFromContext(r.Context()), rbac.PermTestManageAny) {
			rs.Error(w, r, rbac.ErrForbidden())
			return
		}
		list, err := store.ListTestsByTutor(r.Context(), tutorID)
		if err != nil {
			rs.Error(w, r, apierr.Upstream("Server error fetching tests", err))
			return
		}
		rs.JSON(w, http.StatusOK, list)
	}
}

// PATCH /tests/{id}
func UpdateTestHandler(store exam.Store, rs *Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id", msgTestID)
		if err != nil {
			rs.Error(w, r, err)
			return
		}
		var req updateTestRequest
		if err := Decode(r, &req); err != nil {
			rs.Error(w, r, err)
			return
		}
		if verr := validate.Struct(req, updateTestMessages); verr != nil {
			rs.Error(w, r, verr)
			return
		}
		patch := req.patch()
		if patch.Empty() {
			rs.Error(w, r, apierr.Validation("No fields to update"))
			return
		}
		if _, err := ownedTest(r.Context(), store, r, id); err != nil {
			rs.Error(w, r, err)
			return
		}
		t, err := store.UpdateTest(r.Context(), id, patch)
		if errors.Is(err, exam.ErrNotFound) {
			rs.Error(w, r, apierr.NotFound("Test not found"))
			return
		}
		if err != nil {
			rs.Error(w, r, apierr.Upstream("Server error updating test", err))
			return
		}
		rs.JSON(w, http.StatusOK, t)
	}
}

// StatusHandler moves a test to st. DELETE /tests/{id} uses it with
// StatusDeleted and answers with a message instead of the record.
func StatusHandler(store exam.Store, rs *Responder, st exam.Status) http.HandlerFunc {
	failure := map[exam.Status]string{
		exam.StatusActive:  "Server error activating test",
		exam.StatusPaused:  "Server error pausing test",
		exam.StatusDeleted: "Server error deleting test",
	}[st]
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
		t, err := exam.SetStatus(r.Context(), store, id, st)
		if errors.Is(err, exam.ErrNotFound) {
			rs.Error(w, r, apierr.NotFound("Test not found"))
			return
		}
		if err != nil {
			rs.Error(w, r, apierr.Upstream(failure, err))
			return
		}
		rs.Log.Info("test status changed", "test_id", id, "status", string(st))
		if st == exam.StatusDeleted {
			rs.JSON(w, http.StatusOK, message{Msg: "Test deleted successfully"})
			return
		}
		rs.JSON(w, http.StatusOK, t)
	}
}

// GET /tests/{id}/stats
func StatsHandler(store exam.Store, rs *Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id", msgTestID)
		if err != nil {
			rs.Error(w, r, err)
			return
		}
		var (
			t    exam.Test
			subs []exam.Submission
		)
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() error {
			var err error
			t, err = ownedTest(ctx, store, r, id)
			return err
		})
		g.Go(func() error {
			var err error
			if subs, err = store.ListSubmissions(ctx, id); err != nil {
				return apierr.Upstream("Server error fetching submissions", err)
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			rs.Error(w, r, err)
			return
		}
		rs.JSON(w, http.StatusOK, exam.ComputeStats(t, subs))
	}
}

// GET /tests/{id}/responses
func ResponsesHandler(store exam.Store, rs *Responder) http.HandlerFunc {
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
		subs, err := store.ListSubmissions(r.Context(), id)
		if err != nil {
			rs.Error(w, r, apierr.Upstream("Server error fetching submissions", err))
			return
		}
		rs.JSON(w, http.StatusOK, subs)
	}
}
