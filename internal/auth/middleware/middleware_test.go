package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Isaacolagoke/Testai/internal/exam"
	"github.com/Isaacolagoke/Testai/internal/logger"
	"github.com/Isaacolagoke/Testai/internal/rbac"
)

type envelope struct {
	Errors []struct {
		Msg string `json:"msg"`
	} `json:"errors"`
}

func decodeErrors(t *testing.T, rr *httptest.ResponseRecorder) []string {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("body %q: %v", rr.Body.String(), err)
	}
	out := make([]string, 0, len(env.Errors))
	for _, e := range env.Errors {
		out = append(out, e.Msg)
	}
	return out
}

func TestIssueAndParse(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	tok, err := a.IssueJWT("user-1", "tutor")
	if err != nil {
		t.Fatal(err)
	}
	c, err := a.Parse(tok)
	if err != nil {
		t.Fatal(err)
	}
	if c.Sub != "user-1" || c.Role != "tutor" {
		t.Fatalf("claims = %+v", c)
	}

	if _, err := NewAuthService("other", time.Hour).Parse(tok); err == nil {
		t.Fatal("token accepted with wrong secret")
	}

	expired := NewAuthService("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _ := expired.IssueJWT("user-1", "tutor")
	if _, err := a.Parse(old); err == nil {
		t.Fatal("expired token accepted")
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Sub: "user-1", RegisteredClaims: jwt.RegisteredClaims{
		Issuer: issuer, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := a.Parse(unsigned); err == nil {
		t.Fatal("unsigned token accepted")
	}
}

func TestJWTMiddleware(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	tok, _ := a.IssueJWT("user-1", "admin")
	var gotSub, gotRole string
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub = SubjectFromContext(r.Context())
		gotRole = rbac.RoleFromContext(r.Context())
	}))

	cases := []struct {
		name   string
		header string
		status int
		msg    string
	}{
		{"missing", "", 401, msgMissingBearer},
		{"basic", "Basic abc", 401, msgMissingBearer},
		{"empty bearer", "Bearer ", 401, msgMissingBearer},
		{"garbage", "Bearer not.a.token", 401, msgBadSession},
		{"valid", "Bearer " + tok, 200, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tc.status {
				t.Fatalf("status = %d", rr.Code)
			}
			if tc.msg != "" {
				if msgs := decodeErrors(t, rr); len(msgs) != 1 || msgs[0] != tc.msg {
					t.Fatalf("msgs = %v", msgs)
				}
			}
		})
	}
	if gotSub != "user-1" || gotRole != "admin" {
		t.Fatalf("context = %q %q", gotSub, gotRole)
	}
}

func TestAttachRoleFromStore(t *testing.T) {
	store := exam.NewInMemoryStore()
	u, err := store.CreateUser(context.Background(), exam.User{Name: "Tess", Email: "tess@example.com", Role: exam.RoleTutor})
	if err != nil {
		t.Fatal(err)
	}
	var role string
	h := AttachRoleFromStore(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role = rbac.RoleFromContext(r.Context())
	}))

	// a forged admin claim is replaced by the stored role
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(rbac.WithRole(WithSubject(req.Context(), u.ID), "admin"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != 200 || role != "tutor" {
		t.Fatalf("status=%d role=%q", rr.Code, role)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithSubject(req.Context(), "gone"))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != 401 {
		t.Fatalf("vanished user status = %d", rr.Code)
	}
}

func TestPasswordProblems(t *testing.T) {
	cases := []struct {
		name, pw string
		want     int
	}{
		{"Ada", "Str0ng!Pass", 0},
		{"Ada", "weakpass1!", 1},
		{"Ada", "NoDigits!!", 1},
		{"Ada", "Ada$Lovelace1", 1},
		{"Ada", "adalovelace", 2},
		{"", "Str0ng!Pass", 0},
	}
	for _, tc := range cases {
		if got := passwordProblems(tc.name, tc.pw); len(got) != tc.want {
			t.Fatalf("passwordProblems(%q, %q) = %v", tc.name, tc.pw, got)
		}
	}
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestSignupLoginFlow(t *testing.T) {
	store := exam.NewInMemoryStore()
	a := NewAuthService("secret", time.Hour)
	signup := SignupHandler(store, logger.Nop())
	login := LoginHandler(a, store, logger.Nop())

	rr := post(signup, `{"name":"Tess","email":"Tess@Example.com","password":"Gr8!Teacher"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup status = %d body=%s", rr.Code, rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "Gr8!Teacher") || strings.Contains(rr.Body.String(), "password") {
		t.Fatalf("password leaked: %s", rr.Body.String())
	}

	rr = post(signup, `{"name":"Tess","email":"tess@example.com","password":"Gr8!Teacher"}`)
	if msgs := decodeErrors(t, rr); rr.Code != 400 || msgs[0] != "User already exists" {
		t.Fatalf("duplicate: %d %v", rr.Code, msgs)
	}

	rr = post(signup, `{"name":"","email":"nope","password":"short"}`)
	msgs := decodeErrors(t, rr)
	if rr.Code != 400 || len(msgs) != 4 {
		t.Fatalf("invalid signup: %d %v", rr.Code, msgs)
	}

	rr = post(login, `{"email":"tess@example.com","password":"wrong"}`)
	if msgs := decodeErrors(t, rr); rr.Code != 400 || msgs[0] != "Invalid credentials" {
		t.Fatalf("bad password: %d %v", rr.Code, msgs)
	}
	rr = post(login, `{"email":"nobody@example.com","password":"x"}`)
	if rr.Code != 400 {
		t.Fatalf("unknown user status = %d", rr.Code)
	}

	rr = post(login, `{"email":"tess@example.com","password":"Gr8!Teacher"}`)
	if rr.Code != 200 {
		t.Fatalf("login status = %d body=%s", rr.Code, rr.Body.String())
	}
	var out struct {
		User        exam.User `json:"user"`
		AccessToken string    `json:"access_token"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.User.Email != "tess@example.com" || out.AccessToken == "" {
		t.Fatalf("login = %+v", out)
	}

	me := JWTMiddleware(a)(CurrentUserHandler(store))
	req := httptest.NewRequest(http.MethodGet, "/auth/user", nil)
	req.Header.Set("Authorization", "Bearer "+out.AccessToken)
	rr = httptest.NewRecorder()
	me.ServeHTTP(rr, req)
	if rr.Code != 200 || !strings.Contains(rr.Body.String(), `"name":"Tess"`) {
		t.Fatalf("current user: %d %s", rr.Code, rr.Body.String())
	}

	rr = post(LogoutHandler(), "")
	if rr.Code != 200 || !strings.Contains(rr.Body.String(), "Logged out successfully") {
		t.Fatalf("logout: %d %s", rr.Code, rr.Body.String())
	}
}
