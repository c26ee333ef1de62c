package rbac

import (
	"encoding/json"
	"net/http"

	"github.com/Isaacolagoke/Testai/internal/apierr"
)

const msgForbidden = "Access denied"

var defaultChecker = NewChecker(nil)

// Require enforces a single permission.
func Require(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" || !defaultChecker.Has(role, perm) {
				forbid(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny enforces that the role has at least one of the permissions.
func RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" || !defaultChecker.Any(role, perms...) {
				forbid(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OwnerOr reports whether the caller owns the resource or holds perm.
func OwnerOr(r *http.Request, owner bool, perm string) bool {
	return owner || defaultChecker.Has(RoleFromContext(r.Context()), perm)
}

// ErrForbidden is the error handlers return when OwnerOr denies access.
func ErrForbidden() *apierr.Error { return apierr.Forbidden(msgForbidden) }

func forbid(w http.ResponseWriter) {
	status, env := apierr.EnvelopeFor(ErrForbidden(), false)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
