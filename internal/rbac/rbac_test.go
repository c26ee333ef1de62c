package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChecker(t *testing.T) {
	c := NewChecker(nil)
	cases := []struct {
		role, perm string
		want       bool
	}{
		{"tutor", PermTestCreate, true},
		{"tutor", PermQuestionRead, true},
		{"tutor", PermQuestionWrite, true},
		{"tutor", PermTestManageAny, false},
		{"admin", PermTestManageAny, true},
		{"", PermTestCreate, false},
		{"learner", PermTestCreate, false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Fatalf("Has(%q, %q) = %v", tc.role, tc.perm, got)
		}
	}
	if !c.Any("tutor", PermTestManageAny, PermUploadCreate) {
		t.Fatal("Any should match upload:create")
	}
}

func TestRequire(t *testing.T) {
	h := Require(PermTestManageAny)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for role, want := range map[string]int{"admin": 200, "tutor": 403, "": 403} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithRole(req.Context(), role))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != want {
			t.Fatalf("role %q: status %d, want %d", role, rr.Code, want)
		}
	}

	either := RequireAny(PermAIGenerate, PermTestManageAny)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithRole(req.Context(), "tutor"))
	rr := httptest.NewRecorder()
	either.ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("RequireAny status = %d", rr.Code)
	}
}

func TestOwnerOr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	tutor := req.WithContext(WithRole(req.Context(), "tutor"))
	admin := req.WithContext(WithRole(req.Context(), "admin"))
	if !OwnerOr(tutor, true, PermTestManageAny) || OwnerOr(tutor, false, PermTestManageAny) {
		t.Fatal("tutor ownership check")
	}
	if !OwnerOr(admin, false, PermTestManageAny) {
		t.Fatal("admin should bypass ownership")
	}
}
