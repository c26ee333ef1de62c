package exam

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Store is the persistence boundary shared by the SQL and in-memory backends.
// Create methods assign ids and timestamps.
type Store interface {
	CreateTest(ctx context.Context, t Test) (Test, error)
	GetTest(ctx context.Context, id string) (Test, error)
	GetActiveTestByCode(ctx context.Context, code string) (Test, error)
	ListTestsByTutor(ctx context.Context, tutorID string) ([]Test, error) // newest first, deleted excluded
	UpdateTest(ctx context.Context, id string, p TestPatch) (Test, error)

	AddQuestion(ctx context.Context, q Question) (Question, error)
	GetQuestion(ctx context.Context, id string) (Question, error)
	ListQuestions(ctx context.Context, testID string) ([]Question, error) // oldest first
	DeleteQuestion(ctx context.Context, id string) error

	CreateUpload(ctx context.Context, u Upload) (Upload, error)
	GetUpload(ctx context.Context, id string) (Upload, error)
	// CacheAnalysis stores result only if none is cached yet. It returns the
	// row as stored and whether this call's result was the one kept.
	CacheAnalysis(ctx context.Context, uploadID string, result json.RawMessage) (Upload, bool, error)

	CreateSubmission(ctx context.Context, s Submission) (Submission, error)
	GetSubmission(ctx context.Context, id string) (Submission, error)
	ListSubmissions(ctx context.Context, testID string) ([]Submission, error) // newest first

	CreateUser(ctx context.Context, u User) (User, error) // ErrConflict on duplicate email
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// SetStatus is a convenience over UpdateTest for lifecycle transitions.
func SetStatus(ctx context.Context, s Store, id string, st Status) (Test, error) {
	return s.UpdateTest(ctx, id, TestPatch{Status: &st})
}
