package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/Isaacolagoke/Testai/internal/apierr"
	"github.com/Isaacolagoke/Testai/internal/exam"
	"github.com/Isaacolagoke/Testai/internal/rbac"
)

// Users is the account lookup the auth layer needs.
type Users interface {
	CreateUser(ctx context.Context, u exam.User) (exam.User, error)
	GetUser(ctx context.Context, id string) (exam.User, error)
	GetUserByEmail(ctx context.Context, email string) (exam.User, error)
}

// AttachRoleFromStore replaces the token's role claim with the stored role.
// Tokens whose user no longer exists are rejected.
func AttachRoleFromStore(users Users) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			u, err := users.GetUser(ctx, SubjectFromContext(ctx))
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, string(u.Role))))
			case errors.Is(err, exam.ErrNotFound):
				writeErr(w, apierr.Unauthorized(msgBadSession))
			default:
				writeErr(w, apierr.Upstream("Server error", err))
			}
		})
	}
}
