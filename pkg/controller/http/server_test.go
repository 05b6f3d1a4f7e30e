package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/newsdesk/pkg/adapter"
	server "github.com/m-mizutani/newsdesk/pkg/controller/http"
	"github.com/m-mizutani/newsdesk/pkg/model"
	"github.com/m-mizutani/newsdesk/pkg/repository"
	"github.com/m-mizutani/newsdesk/pkg/service/session"
	"github.com/m-mizutani/newsdesk/pkg/usecase/article"
	"github.com/m-mizutani/newsdesk/pkg/usecase/auth"
	"google.golang.org/genai"
)

// stubGemini returns a fixed article and no image
type stubGemini struct{}

func (stubGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: genai.NewContentFromText("Rain Expected This Weekend\n\nForecasters expect heavy rain.", genai.RoleModel),
				GroundingMetadata: &genai.GroundingMetadata{
					GroundingChunks: []*genai.GroundingChunk{
						{Web: &genai.GroundingChunkWeb{URI: "https://weather.example.com", Title: "Weather"}},
					},
				},
			},
		},
	}, nil
}

func (stubGemini) GenerateImages(ctx context.Context, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	return nil, errors.New("image model unavailable")
}

// brokenArticles fails every operation with an internal error
type brokenArticles struct{}

func (brokenArticles) Generate(ctx context.Context, topic string) (*model.Article, error) {
	return nil, errors.New("secret internal detail")
}
func (brokenArticles) List(ctx context.Context) ([]*model.Article, error) {
	return nil, errors.New("secret internal detail")
}
func (brokenArticles) Save(ctx context.Context, a *model.Article) error {
	return errors.New("secret internal detail")
}
func (brokenArticles) Delete(ctx context.Context, id model.ArticleID) error {
	return errors.New("secret internal detail")
}

// fakeCounter counts in memory
type fakeCounter struct {
	counts map[string]int64
	err    error
}

func (f *fakeCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	return f.counts[key], nil
}

func newServer(t *testing.T, gemini adapter.Gemini, opts ...server.Option) http.Handler {
	t.Helper()
	repo := repository.New(adapter.NewMemoryStorage())
	return server.New(
		article.New(repo, gemini, article.WithRetry(1, 0)),
		auth.New(repo),
		opts...,
	)
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		gt.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, w)["error"]
}

func TestLogin(t *testing.T) {
	h := newServer(t, nil)

	t.Run("success", func(t *testing.T) {
		w := doRequest(t, h, http.MethodPost, "/auth", map[string]string{"username": "Admin", "password": "admin"})
		gt.Equal(t, w.Code, http.StatusOK)

		resp := decode[map[string]any](t, w)
		gt.Equal(t, resp["id"], any("user_admin_01"))
		gt.Equal(t, resp["name"], any("Admin"))
		gt.Equal(t, resp["role"], any("Admin"))
		_, hasToken := resp["token"]
		gt.False(t, hasToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := doRequest(t, h, http.MethodPost, "/auth", map[string]string{"username": "admin", "password": "nope"})
		gt.Equal(t, w.Code, http.StatusUnauthorized)
		gt.Equal(t, errorOf(t, w), "Invalid username or password.")
	})

	t.Run("malformed body", func(t *testing.T) {
		w := doRequest(t, h, http.MethodPost, "/auth", "{not json")
		gt.Equal(t, w.Code, http.StatusBadRequest)
	})
}

func TestChangePassword(t *testing.T) {
	h := newServer(t, nil)

	w := doRequest(t, h, http.MethodPut, "/auth", map[string]string{"oldPassword": "admin", "newPassword": "abc"})
	gt.Equal(t, w.Code, http.StatusBadRequest)
	gt.Equal(t, errorOf(t, w), "New password must be at least 4 characters long.")

	w = doRequest(t, h, http.MethodPut, "/auth", map[string]string{"oldPassword": "wrong", "newPassword": "abcd"})
	gt.Equal(t, w.Code, http.StatusForbidden)
	gt.Equal(t, errorOf(t, w), "Your current password is not correct.")

	w = doRequest(t, h, http.MethodPut, "/auth", map[string]string{"oldPassword": "admin", "newPassword": "abcd"})
	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, decode[map[string]bool](t, w)["success"], true)

	w = doRequest(t, h, http.MethodPost, "/auth", map[string]string{"username": "admin", "password": "admin"})
	gt.Equal(t, w.Code, http.StatusUnauthorized)
	w = doRequest(t, h, http.MethodPost, "/auth", map[string]string{"username": "admin", "password": "abcd"})
	gt.Equal(t, w.Code, http.StatusOK)
}

func TestArticles(t *testing.T) {
	h := newServer(t, nil)

	w := doRequest(t, h, http.MethodGet, "/articles", nil)
	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, w.Body.String(), "[]")

	a := model.Article{
		ID:       "a1",
		Title:    "Bridge Opens",
		Content:  "The new bridge opened today.",
		Sources:  []model.GroundingSource{{URI: "https://example.com/bridge", Title: "Bridge"}},
		ImageURL: "data:image/jpeg;base64,AAAA",
	}

	w = doRequest(t, h, http.MethodPost, "/articles", a)
	gt.Equal(t, w.Code, http.StatusCreated)
	gt.Equal(t, decode[map[string]bool](t, w)["success"], true)

	w = doRequest(t, h, http.MethodPost, "/articles", a)
	gt.Equal(t, w.Code, http.StatusConflict)
	gt.Equal(t, errorOf(t, w), "Article already exists")

	w = doRequest(t, h, http.MethodPost, "/articles", map[string]string{"title": "no id"})
	gt.Equal(t, w.Code, http.StatusBadRequest)
	gt.Equal(t, errorOf(t, w), "Invalid article data")

	w = doRequest(t, h, http.MethodGet, "/articles", nil)
	gt.Equal(t, w.Code, http.StatusOK)
	articles := decode[[]model.Article](t, w)
	gt.A(t, articles).Length(1)
	gt.Equal(t, articles[0], a)

	w = doRequest(t, h, http.MethodDelete, "/articles", map[string]string{"id": "missing"})
	gt.Equal(t, w.Code, http.StatusNotFound)
	gt.Equal(t, errorOf(t, w), "Article not found")

	w = doRequest(t, h, http.MethodDelete, "/articles", map[string]string{})
	gt.Equal(t, w.Code, http.StatusBadRequest)
	gt.Equal(t, errorOf(t, w), "Article ID is required")

	w = doRequest(t, h, http.MethodDelete, "/articles", map[string]string{"id": "a1"})
	gt.Equal(t, w.Code, http.StatusOK)

	w = doRequest(t, h, http.MethodGet, "/articles", nil)
	gt.Equal(t, w.Body.String(), "[]")
}

func TestGenerate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		h := newServer(t, stubGemini{})

		w := doRequest(t, h, http.MethodPost, "/generate", map[string]string{"topic": "weather"})
		gt.Equal(t, w.Code, http.StatusOK)

		resp := decode[map[string]any](t, w)
		gt.Equal(t, resp["title"], any("Rain Expected This Weekend"))
		gt.Equal(t, resp["content"], any("Forecasters expect heavy rain."))
		gt.NotEqual(t, resp["id"], any(""))
		_, hasImage := resp["imageUrl"]
		gt.False(t, hasImage)
	})

	t.Run("missing topic", func(t *testing.T) {
		h := newServer(t, stubGemini{})

		for _, body := range []any{map[string]string{}, map[string]string{"topic": "  "}, "oops"} {
			w := doRequest(t, h, http.MethodPost, "/generate", body)
			gt.Equal(t, w.Code, http.StatusBadRequest)
			gt.Equal(t, errorOf(t, w), "Topic is required")
		}
	})

	t.Run("provider not configured", func(t *testing.T) {
		h := newServer(t, nil)

		w := doRequest(t, h, http.MethodPost, "/generate", map[string]string{"topic": "weather"})
		gt.Equal(t, w.Code, http.StatusInternalServerError)
		gt.S(t, errorOf(t, w)).Contains("API_KEY")
	})
}

func TestInternalErrorsAreHidden(t *testing.T) {
	repo := repository.New(adapter.NewMemoryStorage())
	h := server.New(brokenArticles{}, auth.New(repo))

	w := doRequest(t, h, http.MethodGet, "/articles", nil)
	gt.Equal(t, w.Code, http.StatusInternalServerError)
	gt.Equal(t, errorOf(t, w), "Internal Server Error")
	gt.S(t, w.Body.String()).NotContains("secret")
}

func TestMethodNotAllowed(t *testing.T) {
	h := newServer(t, nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/auth"},
		{http.MethodDelete, "/auth"},
		{http.MethodPut, "/articles"},
		{http.MethodPatch, "/articles"},
		{http.MethodGet, "/generate"},
	} {
		w := doRequest(t, h, tc.method, tc.path, nil)
		gt.Equal(t, w.Code, http.StatusMethodNotAllowed)
		gt.Equal(t, errorOf(t, w), "Method Not Allowed")
	}

	w := doRequest(t, h, http.MethodGet, "/unknown", nil)
	gt.Equal(t, w.Code, http.StatusNotFound)
}

func TestBasePath(t *testing.T) {
	h := newServer(t, nil, server.WithBasePath("/api"))

	w := doRequest(t, h, http.MethodGet, "/api/articles", nil)
	gt.Equal(t, w.Code, http.StatusOK)

	w = doRequest(t, h, http.MethodGet, "/articles", nil)
	gt.Equal(t, w.Code, http.StatusNotFound)

	w = doRequest(t, h, http.MethodGet, "/healthz", nil)
	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, decode[map[string]string](t, w)["status"], "ok")
}

func TestSession(t *testing.T) {
	issuer, err := session.NewIssuer("test-secret")
	gt.NoError(t, err)
	h := newServer(t, nil, server.WithSession(issuer))

	w := doRequest(t, h, http.MethodGet, "/articles", nil)
	gt.Equal(t, w.Code, http.StatusUnauthorized)

	w = doRequest(t, h, http.MethodGet, "/articles", nil, "Authorization", "Bearer garbage")
	gt.Equal(t, w.Code, http.StatusUnauthorized)

	w = doRequest(t, h, http.MethodPost, "/auth", map[string]string{"username": "admin", "password": "admin"})
	gt.Equal(t, w.Code, http.StatusOK)
	token := decode[map[string]string](t, w)["token"]
	gt.NotEqual(t, token, "")

	w = doRequest(t, h, http.MethodGet, "/articles", nil, "Authorization", "Bearer "+token)
	gt.Equal(t, w.Code, http.StatusOK)

	w = doRequest(t, h, http.MethodPost, "/generate", map[string]string{"topic": "x"}, "Authorization", "bearer "+token)
	gt.Equal(t, w.Code, http.StatusInternalServerError)

	other, err := session.NewIssuer("other-secret")
	gt.NoError(t, err)
	forged, err := other.Sign(model.AdminUser())
	gt.NoError(t, err)
	w = doRequest(t, h, http.MethodDelete, "/articles", map[string]string{"id": "a"}, "Authorization", "Bearer "+forged)
	gt.Equal(t, w.Code, http.StatusUnauthorized)
}

func TestLoginRateLimit(t *testing.T) {
	t.Run("limits per client", func(t *testing.T) {
		counter := &fakeCounter{}
		h := newServer(t, nil, server.WithLoginRateLimit(counter, 2, time.Minute))
		body := map[string]string{"username": "admin", "password": "wrong"}

		gt.Equal(t, doRequest(t, h, http.MethodPost, "/auth", body).Code, http.StatusUnauthorized)
		gt.Equal(t, doRequest(t, h, http.MethodPost, "/auth", body).Code, http.StatusUnauthorized)

		w := doRequest(t, h, http.MethodPost, "/auth", body)
		gt.Equal(t, w.Code, http.StatusTooManyRequests)
		gt.Equal(t, w.Header().Get("Retry-After"), "60")
		gt.S(t, errorOf(t, w)).Contains("Too many")

		// Password changes share the counter
		w = doRequest(t, h, http.MethodPut, "/auth", map[string]string{"oldPassword": "admin", "newPassword": "abcd"})
		gt.Equal(t, w.Code, http.StatusTooManyRequests)
	})

	t.Run("limits password change guesses", func(t *testing.T) {
		counter := &fakeCounter{}
		h := newServer(t, nil, server.WithLoginRateLimit(counter, 2, time.Minute))

		for i := 0; i < 2; i++ {
			w := doRequest(t, h, http.MethodPut, "/auth", map[string]string{"oldPassword": "guess", "newPassword": "owned"})
			gt.Equal(t, w.Code, http.StatusForbidden)
		}

		w := doRequest(t, h, http.MethodPut, "/auth", map[string]string{"oldPassword": "admin", "newPassword": "owned"})
		gt.Equal(t, w.Code, http.StatusTooManyRequests)

		// Password is unchanged and login is throttled as well
		w = doRequest(t, h, http.MethodPost, "/auth", map[string]string{"username": "admin", "password": "owned"})
		gt.Equal(t, w.Code, http.StatusTooManyRequests)
		gt.Equal(t, counter.counts["auth:192.0.2.1"], int64(4))
	})

	t.Run("counter failure fails open", func(t *testing.T) {
		counter := &fakeCounter{err: errors.New("redis down")}
		h := newServer(t, nil, server.WithLoginRateLimit(counter, 1, time.Minute))

		for i := 0; i < 3; i++ {
			w := doRequest(t, h, http.MethodPost, "/auth", map[string]string{"username": "admin", "password": "admin"})
			gt.Equal(t, w.Code, http.StatusOK)
		}
	})
}

func TestCORS(t *testing.T) {
	h := newServer(t, nil, server.WithBasePath("/api"), server.WithAllowOrigins("https://desk.example.com"))

	w := doRequest(t, h, http.MethodOptions, "/api/articles", nil,
		"Origin", "https://desk.example.com",
		"Access-Control-Request-Method", "POST",
	)
	gt.Equal(t, w.Code, http.StatusNoContent)
	gt.Equal(t, w.Header().Get("Access-Control-Allow-Origin"), "https://desk.example.com")

	w = doRequest(t, h, http.MethodGet, "/api/articles", nil, "Origin", "https://desk.example.com")
	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, w.Header().Get("Access-Control-Allow-Origin"), "https://desk.example.com")
}

func TestMCPMount(t *testing.T) {
	mcp := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("open without session", func(t *testing.T) {
		h := newServer(t, nil, server.WithMCP(mcp))

		w := doRequest(t, h, http.MethodPost, "/mcp", "{}")
		gt.Equal(t, w.Code, http.StatusTeapot)
	})

	t.Run("requires token with session", func(t *testing.T) {
		issuer, err := session.NewIssuer("test-secret")
		gt.NoError(t, err)
		h := newServer(t, nil, server.WithMCP(mcp), server.WithSession(issuer))

		w := doRequest(t, h, http.MethodPost, "/mcp", "{}")
		gt.Equal(t, w.Code, http.StatusUnauthorized)

		w = doRequest(t, h, http.MethodPost, "/mcp", "{}", "Authorization", "Bearer garbage")
		gt.Equal(t, w.Code, http.StatusUnauthorized)

		token, err := issuer.Sign(model.AdminUser())
		gt.NoError(t, err)
		w = doRequest(t, h, http.MethodPost, "/mcp", "{}", "Authorization", "Bearer "+token)
		gt.Equal(t, w.Code, http.StatusTeapot)
	})
}
