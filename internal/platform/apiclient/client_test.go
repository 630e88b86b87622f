package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaveportal/internal/platform/metrics"
	"leaveportal/internal/requestctx"
)

type memoryTokens struct {
	token   string
	cleared int
}

func (m *memoryTokens) Token() string { return m.token }
func (m *memoryTokens) ClearToken() {
	m.token = ""
	m.cleared++
}

func withTokens(token string) (context.Context, *memoryTokens) {
	store := &memoryTokens{token: token}
	return requestctx.WithTokenStore(context.Background(), store), store
}

func TestBearerAttachedExceptPublicPaths(t *testing.T) {
	seen := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[r.URL.Path] = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"message":"ok","status":"OK","data":{}}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, metrics.New())
	ctx, _ := withTokens("stale-or-valid")

	for _, path := range []string{"/users/me", "/auth/login", "/auth/verify-2fa", "/auth/register", "/auth/public/register", "/auth/2fa/enable"} {
		require.NoError(t, client.JSON(ctx, http.MethodPost, path, nil, map[string]string{}, nil))
	}

	assert.Equal(t, "Bearer stale-or-valid", seen["/users/me"])
	assert.Equal(t, "Bearer stale-or-valid", seen["/auth/2fa/enable"])
	assert.Empty(t, seen["/auth/login"])
	assert.Empty(t, seen["/auth/verify-2fa"])
	assert.Empty(t, seen["/auth/register"])
	assert.Empty(t, seen["/auth/public/register"])
}

func TestNoAuthorizationWithoutToken(t *testing.T) {
	var header string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ctx, _ := withTokens("")
	require.NoError(t, New(srv.URL, time.Second, nil).JSON(ctx, http.MethodGet, "/leave-types", nil, nil, nil))
	assert.Empty(t, header)
}

func TestUnauthorizedClearsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Token expired"}`))
	}))
	defer srv.Close()

	collector := metrics.New()
	client := New(srv.URL, time.Second, collector)
	ctx, store := withTokens("expired")

	err := client.JSON(ctx, http.MethodGet, "/leave-requests/my-requests", nil, nil, nil)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, store.token)
	assert.Equal(t, 1, store.cleared)
	assert.Equal(t, uint64(1), collector.Snapshot()["upstreamUnauthorizedTotal"])
}

func TestUnauthorizedOnPublicPathIsBusinessError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid email or password"}`))
	}))
	defer srv.Close()

	ctx, store := withTokens("keep")
	err := New(srv.URL, time.Second, nil).JSON(ctx, http.MethodPost, "/auth/login", nil, map[string]string{"email": "a@b.com"}, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid email or password", apiErr.Message)
	assert.Equal(t, 0, store.cleared)
}

func TestErrorMessageExtraction(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
		tfa  bool
	}{
		{"message", `{"message":"Insufficient balance","error":"Bad Request"}`, "Insufficient balance", false},
		{"error string", `{"error":"Leave type not found"}`, "Leave type not found", false},
		{"error object", `{"error":{"message":"Overlapping request"}}`, "Overlapping request", false},
		{"fallback", `{"status":"BAD_REQUEST"}`, FallbackMessage, false},
		{"not json", `<html>oops</html>`, FallbackMessage, false},
		{"two factor flag", `{"message":"2FA required","requiresTwoFactor":true}`, "2FA required", true},
		{"two factor in data", `{"message":"2FA required","data":{"requiresTwoFactor":true}}`, "2FA required", true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			err := New(srv.URL, time.Second, nil).JSON(context.Background(), http.MethodGet, "/leave-types", nil, nil, nil)
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusBadRequest, apiErr.Status)
			assert.Equal(t, tc.want, apiErr.Message)
			assert.Equal(t, tc.tfa, apiErr.RequiresTwoFactor)
			assert.Equal(t, tc.want, Message(err))
		})
	}
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL
	srv.Close()

	err := New(target, time.Second, nil).JSON(context.Background(), http.MethodGet, "/users/me", nil, nil, nil)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, UnexpectedMessage, Message(err))
}

func TestCancelledContextIsReturned(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(srv.URL, time.Second, nil).JSON(ctx, http.MethodGet, "/users/me", nil, nil, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDecodeEnvelopeAndBareBodies(t *testing.T) {
	type user struct {
		ID string `json:"id"`
	}
	bodies := map[string]string{
		"/enveloped": `{"message":"ok","status":"OK","data":{"id":"u1"}}`,
		"/bare":      `{"id":"u1"}`,
		"/bare-data": `{"id":"u1","data":"ignored"}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(bodies[r.URL.Path]))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)
	for path := range bodies {
		var got user
		require.NoError(t, client.JSON(context.Background(), http.MethodGet, path, nil, nil, &got), path)
		assert.Equal(t, "u1", got.ID, path)
	}
}

func TestPageDecoding(t *testing.T) {
	type item struct {
		ID string `json:"id"`
	}
	cases := map[string]string{
		"flat":     `{"content":[{"id":"a"},{"id":"b"}],"totalElements":12,"totalPages":6,"number":1,"size":2,"pageable":"INSTANCE"}`,
		"nested":   `{"content":[{"id":"a"},{"id":"b"}],"page":{"size":2,"number":1,"totalElements":12,"totalPages":6}}`,
		"pageable": `{"content":[{"id":"a"},{"id":"b"}],"pageable":{"pageNumber":1,"pageSize":2},"totalElements":12,"totalPages":6}`,
	}
	for name, body := range cases {
		var page Page[item]
		require.NoError(t, json.Unmarshal([]byte(body), &page), name)
		assert.Len(t, page.Content, 2, name)
		assert.Equal(t, int64(12), page.TotalElements, name)
		assert.Equal(t, 6, page.TotalPages, name)
		assert.Equal(t, 1, page.Number, name)
		assert.Equal(t, 2, page.Size, name)
		assert.True(t, page.HasNext(), name)
		assert.True(t, page.HasPrev(), name)
	}

	var list Page[item]
	require.NoError(t, json.Unmarshal([]byte(`[{"id":"x"}]`), &list))
	assert.Len(t, list.Content, 1)
	assert.False(t, list.HasNext())

	mapped := MapPage(list, func(i item) string { return i.ID })
	assert.Equal(t, []string{"x"}, mapped.Content)
}

func TestPageParams(t *testing.T) {
	q := PageParams{Page: 2, Size: 10}.Apply(url.Values{"status": {"PENDING"}})
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "10", q.Get("size"))
	assert.Equal(t, "PENDING", q.Get("status"))

	empty := PageParams{}.Apply(nil)
	assert.Empty(t, empty.Encode())
}

func TestMultipartUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "lt-1", r.FormValue("leaveTypeId"))
		assert.Empty(t, r.MultipartForm.Value["reason"])
		file, header, err := r.FormFile("document")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "note.pdf", header.Filename)
		assert.Equal(t, "application/pdf", header.Header.Get("Content-Type"))
		assert.Equal(t, "%PDF-1.4", string(data))
		_, _ = w.Write([]byte(`{"status":"CREATED","message":"created","data":{"id":"lr-1"}}`))
	}))
	defer srv.Close()

	var out struct {
		ID string `json:"id"`
	}
	err := New(srv.URL, time.Second, nil).Multipart(context.Background(), http.MethodPost, "/leave-requests", nil,
		map[string]string{"leaveTypeId": "lt-1", "reason": ""},
		&FilePart{Field: "document", FileName: "note.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")},
		&out)
	require.NoError(t, err)
	assert.Equal(t, "lr-1", out.ID)
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2025", r.URL.Query().Get("year"))
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("id,status\n1,APPROVED\n"))
	}))
	defer srv.Close()

	blob, err := New(srv.URL, time.Second, nil).Download(context.Background(), "/reports/leave-requests/csv", url.Values{"year": {"2025"}})
	require.NoError(t, err)
	defer blob.Body.Close()
	data, _ := io.ReadAll(blob.Body)
	assert.Equal(t, "text/csv", blob.ContentType)
	assert.Contains(t, string(data), "APPROVED")
}

func TestIsPublic(t *testing.T) {
	assert.True(t, IsPublic("auth/login"))
	assert.False(t, IsPublic("/auth/2fa/verify-enable"))
}
