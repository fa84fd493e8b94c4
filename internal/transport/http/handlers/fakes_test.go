package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/eventhub/internal/application/auth"
	"github.com/baechuer/eventhub/internal/application/event"
	"github.com/baechuer/eventhub/internal/application/registration"
	"github.com/baechuer/eventhub/internal/domain"
	"github.com/baechuer/eventhub/internal/transport/http/middleware"
)

var testNow = time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return testNow }

// ---------- auth ----------

type fakeAuth struct {
	signupCmd  auth.SignupCmd
	loginCmd   auth.LoginCmd
	refreshTok string
	logoutTok  string

	result auth.AuthResult
	tokens auth.AuthTokens
	user   domain.User
	err    error
}

func (f *fakeAuth) Signup(_ context.Context, cmd auth.SignupCmd) (auth.AuthResult, error) {
	f.signupCmd = cmd
	return f.result, f.err
}

func (f *fakeAuth) Login(_ context.Context, cmd auth.LoginCmd) (auth.AuthResult, error) {
	f.loginCmd = cmd
	return f.result, f.err
}

func (f *fakeAuth) Refresh(_ context.Context, tok string) (auth.AuthTokens, error) {
	f.refreshTok = tok
	return f.tokens, f.err
}

func (f *fakeAuth) Logout(_ context.Context, tok string) error {
	f.logoutTok = tok
	return f.err
}

func (f *fakeAuth) Me(_ context.Context, _ string) (domain.User, error) {
	return f.user, f.err
}

// ---------- events ----------

type fakeEvents struct {
	filter   event.ListFilter
	createBy string
	role     string
	cmd      event.CreateCmd
	image    []byte

	ev   *domain.Event
	list event.ListResult
	err  error
}

func (f *fakeEvents) Create(_ context.Context, actorID, actorRole string, cmd event.CreateCmd) (*domain.Event, error) {
	f.createBy, f.role, f.cmd = actorID, actorRole, cmd
	return f.ev, f.err
}

func (f *fakeEvents) Get(_ context.Context, _ string) (*domain.Event, error) { return f.ev, f.err }

func (f *fakeEvents) List(_ context.Context, flt event.ListFilter) (event.ListResult, error) {
	f.filter = flt
	return f.list, f.err
}

func (f *fakeEvents) SetImage(_ context.Context, _, actorRole, _ string, data []byte) (*domain.Event, error) {
	f.role = actorRole
	f.image = data
	return f.ev, f.err
}

func (f *fakeEvents) ImageURL(key string) string {
	if key == "" {
		return ""
	}
	return "https://cdn.example.com/" + key
}

func (f *fakeEvents) MaxUploadSize() int64 { return 1024 }

// ---------- registrations ----------

type fakeRegs struct {
	filter   registration.ListFilter
	userID   string
	role     string
	reviewed string

	req  *domain.RegistrationRequest
	list registration.ListResult
	err  error
}

func (f *fakeRegs) Submit(_ context.Context, userID, _ string) (*domain.RegistrationRequest, error) {
	f.userID = userID
	return f.req, f.err
}

func (f *fakeRegs) ListMine(_ context.Context, userID string, flt registration.ListFilter) (registration.ListResult, error) {
	f.userID, f.filter = userID, flt
	return f.list, f.err
}

func (f *fakeRegs) ListForAdmin(_ context.Context, role string, flt registration.ListFilter) (registration.ListResult, error) {
	f.role, f.filter = role, flt
	return f.list, f.err
}

func (f *fakeRegs) Approve(_ context.Context, _, role, id string) (*domain.RegistrationRequest, error) {
	f.role, f.reviewed = role, "approve:"+id
	return f.req, f.err
}

func (f *fakeRegs) Reject(_ context.Context, _, role, id string) (*domain.RegistrationRequest, error) {
	f.role, f.reviewed = role, "reject:"+id
	return f.req, f.err
}

// ---------- helpers ----------

func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

// mustReadData decodes the {"data": ...} envelope into out.
func mustReadData(t *testing.T, r io.Reader, out any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data: %v; raw=%s", err, env.Data)
	}
}

func errCodeOf(t *testing.T, r io.Reader) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func readCookie(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func withUserCtx(req *http.Request, userID, role string) *http.Request {
	return req.WithContext(middleware.WithUser(req.Context(), userID, role))
}

func withURLParam(req *http.Request, key, val string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, val)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
