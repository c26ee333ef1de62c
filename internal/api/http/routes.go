package http

import (
	"github.com/go-chi/chi/v5"

	auth "github.com/Isaacolagoke/Testai/internal/auth/middleware"
	"github.com/Isaacolagoke/Testai/internal/exam"
	"github.com/Isaacolagoke/Testai/internal/learner"
	"github.com/Isaacolagoke/Testai/internal/rbac"
	"github.com/Isaacolagoke/Testai/internal/storage"
	"github.com/Isaacolagoke/Testai/internal/upload"
)

type Deps struct {
	Store          exam.Store
	Auth           *auth.AuthService
	Learner        *learner.Service
	Uploads        *upload.Service
	Blobs          storage.BlobStore
	MaxUploadBytes int64
	Responder      *Responder
}

// Mount registers the API on r. Learner routes and auth entry points are
// public; everything else needs a bearer token.
func Mount(r chi.Router, d Deps) {
	rs := d.Responder
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 10 << 20
	}

	r.Get("/health", HealthHandler(rs))
	if d.Blobs != nil {
		r.Route("/files", func(fr chi.Router) { MountFiles(fr, d.Blobs, rs) })
	}

	r.Route("/auth", func(ar chi.Router) {
		ar.Post("/signup", auth.SignupHandler(d.Store, rs.Log))
		ar.Post("/login", auth.LoginHandler(d.Auth, d.Store, rs.Log))
		ar.Post("/logout", auth.LogoutHandler())
		ar.With(auth.JWTMiddleware(d.Auth)).Get("/user", auth.CurrentUserHandler(d.Store))
	})

	r.Route("/learner", func(lr chi.Router) {
		lr.Get("/test/{accessCode}", DeliverTestHandler(d.Learner, rs))
		lr.Post("/submit", SubmitHandler(d.Learner, rs))
		lr.Get("/result/{submissionId}", ResultHandler(d.Learner, rs))
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth), auth.AttachRoleFromStore(d.Store))
		manage := rbac.RequireAny(rbac.PermTestManageOwn, rbac.PermTestManageAny)

		pr.Route("/tests", func(tr chi.Router) {
			tr.With(rbac.Require(rbac.PermTestCreate)).Post("/", CreateTestHandler(d.Store, rs))
			tr.With(manage).Get("/", ListTestsHandler(d.Store, rs))
			tr.With(manage).Get("/{id}", GetTestHandler(d.Store, rs))
			tr.With(manage).Patch("/{id}", UpdateTestHandler(d.Store, rs))
			tr.With(manage).Delete("/{id}", StatusHandler(d.Store, rs, exam.StatusDeleted))
			tr.With(manage).Patch("/{id}/pause", StatusHandler(d.Store, rs, exam.StatusPaused))
			tr.With(manage).Patch("/{id}/activate", StatusHandler(d.Store, rs, exam.StatusActive))
			tr.With(manage).Get("/{id}/stats", StatsHandler(d.Store, rs))
			tr.With(manage).Get("/{id}/responses", ResponsesHandler(d.Store, rs))
		})

		pr.Route("/questions", func(qr chi.Router) {
			qr.With(rbac.Require(rbac.PermQuestionWrite)).Post("/", AddQuestionsHandler(d.Store, rs))
			qr.With(rbac.Require(rbac.PermQuestionRead)).Get("/{id}", ListQuestionsHandler(d.Store, rs))
			qr.With(rbac.Require(rbac.PermQuestionWrite)).Delete("/{id}", DeleteQuestionHandler(d.Store, rs))
		})

		pr.With(rbac.Require(rbac.PermUploadCreate)).
			Post("/upload", UploadHandler(d.Store, d.Uploads, rs, d.MaxUploadBytes))

		pr.Route("/ai", func(air chi.Router) {
			air.Use(rbac.Require(rbac.PermAIGenerate))
			air.Post("/analyze", AnalyzeHandler(d.Store, d.Uploads, rs))
			air.Post("/generate", GenerateHandler(d.Store, d.Uploads, rs))
		})
	})
}
