package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaveportal/internal/app/server"
	"leaveportal/internal/domain/auth"
	"leaveportal/internal/domain/leave"
	"leaveportal/internal/platform/apiclient"
	"leaveportal/internal/platform/config"
	"leaveportal/internal/platform/metrics"
	"leaveportal/internal/transport/http/middleware"
	"leaveportal/internal/transport/http/web"
)

const emptyPage = `{"content":[],"totalElements":0,"totalPages":0,"number":0,"size":10}`

// fakeAPI is a scripted stand-in for the leave REST API.
type fakeAPI struct {
	mu          sync.Mutex
	expired     atomic.Bool
	verifyCalls atomic.Int32
	reviewCalls atomic.Int32
	deleteCalls atomic.Int32
	createCalls atomic.Int32
	readCalls   atomic.Int32
	lastReview  leave.Review
}

var users = map[string]string{
	"tok-staff":   `{"id":"u1","email":"staff@example.com","fullName":"Sam Staff","roles":[{"name":"ROLE_STAFF"}]}`,
	"tok-manager": `{"id":"m1","email":"boss@example.com","fullName":"Mia Manager","roles":[{"name":"MANAGER"}],"twoFactorEnabled":true}`,
}

func envelope(data string) string {
	return `{"message":"ok","status":"OK","data":` + data + `}`
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	path := strings.TrimPrefix(r.URL.Path, "/api/v1")

	switch {
	case path == "/actuator/health":
		_, _ = io.WriteString(w, `{"status":"UP"}`)
	case path == "/auth/login":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch body["email"] {
		case "boss@example.com":
			_, _ = io.WriteString(w, envelope(`{"requiresTwoFactor":true}`))
		case "staff@example.com":
			if body["password"] != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"message":"Invalid email or password"}`)
				return
			}
			_, _ = io.WriteString(w, envelope(`{"accessToken":"tok-staff","user":`+users["tok-staff"]+`}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"Invalid email or password"}`)
		}
	case path == "/auth/verify-2fa":
		f.verifyCalls.Add(1)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["code"] != "123456" || body["email"] != "boss@example.com" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"message":"Invalid verification code"}`)
			return
		}
		_, _ = io.WriteString(w, envelope(`{"accessToken":"tok-manager","user":`+users["tok-manager"]+`}`))
	case path == "/users/me":
		user, ok := users[token]
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, envelope(user))
	case path == "/leave-requests/my-requests" && f.expired.Load():
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Token expired"}`)
	case path == "/leave-types/active":
		_, _ = io.WriteString(w, envelope(`{"content":[{"id":"t1","name":"Annual","isActive":true}],"totalElements":1,"totalPages":1,"number":0,"size":100}`))
	case path == "/leave-requests" && r.Method == http.MethodPost:
		f.createCalls.Add(1)
		_, _ = io.WriteString(w, envelope(`{"id":"l2","userId":"u1","status":"PENDING"}`))
	case path == "/leave-requests/l1" && r.Method == http.MethodGet:
		f.readCalls.Add(1)
		_, _ = io.WriteString(w, envelope(`{"id":"l1","userId":"u1","userName":"Sam Staff","leaveTypeId":"t1","leaveTypeName":"Annual","startDate":"2025-06-02","endDate":"2025-06-04","numberOfDays":3,"status":"PENDING"}`))
	case path == "/leave-requests/l1" && r.Method == http.MethodDelete:
		f.deleteCalls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	case path == "/leave-requests/l1/review":
		f.reviewCalls.Add(1)
		f.mu.Lock()
		_ = json.NewDecoder(r.Body).Decode(&f.lastReview)
		f.mu.Unlock()
		_, _ = io.WriteString(w, envelope(`{"id":"l1","userId":"u1","status":"APPROVED"}`))
	default:
		_, _ = io.WriteString(w, envelope(emptyPage))
	}
}

type portal struct {
	t      *testing.T
	api    *fakeAPI
	srv    *httptest.Server
	client *http.Client
}

func newPortal(t *testing.T, mutate ...func(*config.Config)) *portal {
	t.Helper()
	api := &fakeAPI{}
	upstream := httptest.NewServer(api)
	t.Cleanup(upstream.Close)

	cfg := config.Config{
		Environment:     "test",
		APIBaseURL:      upstream.URL + "/api/v1",
		SessionSecret:   "portal-test-session-secret-0123456789",
		TokenCookieName: "token",
		TokenTTL:        time.Hour,
		Pending2FATTL:   10 * time.Minute,
		APITimeout:      2 * time.Second,
		MaxBodyBytes:    12 << 20,
		AuthRateLimit:   "100-M",
		SubmitGuardTTL:  time.Minute,
		MetricsEnabled:  true,
	}
	for _, fn := range mutate {
		fn(&cfg)
	}

	collector := metrics.New()
	app, err := server.NewWithClient(cfg, apiclient.New(cfg.APIBaseURL, cfg.APITimeout, collector), collector)
	require.NoError(t, err)
	srv := httptest.NewServer(app.Router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &portal{t: t, api: api, srv: srv, client: client}
}

func (p *portal) get(path string) (*http.Response, string) {
	p.t.Helper()
	resp, err := p.client.Get(p.srv.URL + path)
	require.NoError(p.t, err)
	return resp, readBody(p.t, resp)
}

func (p *portal) post(path string, form url.Values) (*http.Response, string) {
	p.t.Helper()
	resp, err := p.client.PostForm(p.srv.URL+path, form)
	require.NoError(p.t, err)
	return resp, readBody(p.t, resp)
}

func (p *portal) signIn(email, password string) {
	p.t.Helper()
	resp, _ := p.post("/login", url.Values{"email": {email}, "password": {password}})
	require.Equal(p.t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(p.t, "/dashboard", resp.Header.Get("Location"))
}

func (p *portal) signInManager() {
	p.t.Helper()
	resp, _ := p.post("/login", url.Values{"email": {"boss@example.com"}, "password": {"secret"}})
	require.Equal(p.t, http.StatusSeeOther, resp.StatusCode)
	resp, _ = p.post("/login/verify", url.Values{"code": {"123 456"}})
	require.Equal(p.t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(p.t, "/dashboard", resp.Header.Get("Location"))
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(raw)
}

func TestAnonymousVisitorIsSentToLogin(t *testing.T) {
	p := newPortal(t)

	resp, _ := p.get("/dashboard")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp, body := p.get("/login")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="_nonce"`)
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
}

func TestLoginWithoutTwoFactor(t *testing.T) {
	p := newPortal(t)
	p.signIn("staff@example.com", "secret")

	resp, body := p.get("/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Welcome back!")
	assert.Contains(t, body, "Welcome, Sam")
	assert.NotContains(t, body, "Pending approvals")

	resp, _ = p.get("/login")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode, "signed-in users skip the login page")
}

func TestLoginRejectedShowsServerMessage(t *testing.T) {
	p := newPortal(t)

	resp, body := p.post("/login", url.Values{"email": {"staff@example.com"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Invalid email or password")
	assert.Contains(t, body, `value="staff@example.com"`)
	assert.NotContains(t, body, "wrong", "passwords are never echoed")
}

func TestTwoFactorLogin(t *testing.T) {
	p := newPortal(t)

	resp, _ := p.post("/login", url.Values{"email": {"boss@example.com"}, "password": {"secret"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	_, body := p.get("/login")
	assert.Contains(t, body, "Two-factor authentication")
	assert.Contains(t, body, "boss@example.com")

	resp, body = p.post("/login/verify", url.Values{"code": {"12ab"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, auth.InvalidCodeMessage)
	assert.Zero(t, p.api.verifyCalls.Load(), "malformed codes never reach the API")

	resp, body = p.post("/login/verify", url.Values{"code": {"000000"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Invalid verification code")
	assert.Contains(t, body, "boss@example.com", "a rejected code keeps the pending login")

	resp, _ = p.post("/login/verify", url.Values{"code": {"123456"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	resp, body = p.get("/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Pending approvals")
}

func TestCancelTwoFactorForgetsEmail(t *testing.T) {
	p := newPortal(t)
	resp, _ := p.post("/login", url.Values{"email": {"boss@example.com"}, "password": {"secret"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = p.post("/login/cancel", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body := p.get("/login")
	assert.NotContains(t, body, "boss@example.com")

	resp, _ = p.post("/login/verify", url.Values{"code": {"123456"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Zero(t, p.api.verifyCalls.Load())
}

func TestRejectWithoutCommentSendsNothing(t *testing.T) {
	p := newPortal(t)
	p.signInManager()

	resp, body := p.post("/leave/l1/review", url.Values{"decision": {"REJECT"}, "comment": {"  "}, "returnTo": {"/leave/approvals"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, leave.MsgRejectNeedsReason)
	assert.Zero(t, p.api.reviewCalls.Load())
	assert.EqualValues(t, 1, p.api.readCalls.Load(), "only the re-rendered page reads the request")

	resp, _ = p.post("/leave/l1/review", url.Values{"decision": {"APPROVE"}, "returnTo": {"https://evil.example/"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/leave/approvals", resp.Header.Get("Location"))
	assert.EqualValues(t, 1, p.api.reviewCalls.Load())
	assert.Equal(t, leave.DecisionApprove, p.api.lastReview.Decision)
}

func TestStaffCannotReviewOrAdminister(t *testing.T) {
	p := newPortal(t)
	p.signIn("staff@example.com", "secret")

	resp, body := p.get("/admin/leave-types")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body, web.ForbiddenMessage)

	resp, _ = p.post("/leave/l1/review", url.Values{"decision": {"APPROVE"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, p.api.reviewCalls.Load())
}

func TestExpiredTokenEndsSession(t *testing.T) {
	p := newPortal(t)
	p.signIn("staff@example.com", "secret")
	p.api.expired.Store(true)

	resp, _ := p.get("/leave/my")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	_, body := p.get("/login")
	assert.Contains(t, body, web.SessionExpiredMessage)

	resp, _ = p.get("/dashboard")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode, "the token cookie is gone")
}

func TestDuplicateSubmitRejected(t *testing.T) {
	p := newPortal(t)
	p.signIn("staff@example.com", "secret")

	form := url.Values{web.NonceField: {"nonce-1"}}
	resp, _ := p.post("/leave/l1/cancel", form)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, body := p.post("/leave/l1/cancel", form)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body, middleware.DuplicateSubmitMessage)
	assert.EqualValues(t, 1, p.api.deleteCalls.Load())
}

func TestAuthRateLimit(t *testing.T) {
	p := newPortal(t, func(c *config.Config) { c.AuthRateLimit = "3-M" })

	form := url.Values{"email": {"nobody@example.com"}, "password": {"x"}}
	for range 3 {
		resp, _ := p.post("/login", form)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp, body := p.post("/login", form)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, body, middleware.RateLimitedMessage)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	resp, _ = p.get("/login")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "page views are not throttled")
}

func TestOperationalEndpoints(t *testing.T) {
	p := newPortal(t)

	for _, path := range []string{"/healthz", "/readyz", "/version", "/metrics"} {
		resp, body := p.get(path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"), path)
		assert.Contains(t, body, `"status":"OK"`, path)
	}

	resp, _ := p.get("/assets/app.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/css")
}

func TestUnknownPageRendersNotFound(t *testing.T) {
	p := newPortal(t)
	resp, body := p.get("/no/such/page")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, web.NotFoundMessage)
}

func TestMyLeaveExports(t *testing.T) {
	p := newPortal(t)
	p.signIn("staff@example.com", "secret")

	resp, _ := p.get("/leave/export.csv")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "my-leave-")

	resp, body := p.get("/leave/export.xlsx")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(body, "PK"), "xlsx is a zip archive")

	resp, body = p.get("/leave/l1/pdf")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(body, "%PDF"))
}

func TestApplyFormShowsTotalDays(t *testing.T) {
	p := newPortal(t)
	p.signIn("staff@example.com", "secret")

	form := url.Values{"leaveTypeId": {"t1"}, "startDate": {"2025-03-10"}, "endDate": {"2025-03-12"}, "preview": {"1"}}
	resp, body := p.post("/leave/apply", form)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Total days: <strong>3</strong>")
	assert.Contains(t, body, `value="2025-03-10"`)
	assert.Zero(t, p.api.createCalls.Load(), "calculating sends nothing")

	form.Del("preview")
	form.Del("leaveTypeId")
	resp, body = p.post("/leave/apply", form)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, leave.MsgSelectLeaveType)
	assert.Contains(t, body, "Total days: <strong>3</strong>")
	assert.Zero(t, p.api.createCalls.Load())

	form.Set("leaveTypeId", "t1")
	resp, _ = p.post("/leave/apply", form)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/leave/l2", resp.Header.Get("Location"))
	assert.EqualValues(t, 1, p.api.createCalls.Load())
}
