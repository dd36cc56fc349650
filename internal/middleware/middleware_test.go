package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/vet-agenda/internal/backend"
	"github.com/BruksfildServices01/vet-agenda/internal/config"
	"github.com/BruksfildServices01/vet-agenda/internal/logging"
	"github.com/BruksfildServices01/vet-agenda/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func authRouter(cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthMiddleware(cfg), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user":   c.GetString(ContextUserID),
			"clinic": c.GetString(ContextClinicID),
			"fwd":    backend.HasCredentials(c.Request.Context()),
		})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWTSecret: "s3cret"}
	r := authRouter(cfg)

	valid := sign(t, "s3cret", jwt.MapClaims{"sub": float64(42), "clinicId": "7", "exp": time.Now().Add(time.Hour).Unix()})
	expired := sign(t, "s3cret", jwt.MapClaims{"sub": "42", "clinicId": "7", "exp": time.Now().Add(-time.Hour).Unix()})
	wrongKey := sign(t, "other", jwt.MapClaims{"sub": "42", "clinicId": "7"})
	noClinic := sign(t, "s3cret", jwt.MapClaims{"sub": "42"})

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, "missing_authorization_header"},
		{"not bearer", "Basic abc", http.StatusUnauthorized, "invalid_authorization_header"},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized, "invalid_token"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "invalid_token"},
		{"no clinic", "Bearer " + noClinic, http.StatusUnauthorized, "invalid_token_payload"},
		{"ok", "Bearer " + valid, http.StatusOK, `{"clinic":"7","fwd":true,"user":"42"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.body)
		})
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		method     string
		origin     string
		wantStatus int
		wantOrigin string
	}{
		{"any origin preflight", nil, http.MethodOptions, "http://localhost:5173", http.StatusNoContent, "http://localhost:5173"},
		{"listed origin preflight", []string{"https://agenda.clinic.test/"}, http.MethodOptions, "https://agenda.clinic.test", http.StatusNoContent, "https://agenda.clinic.test"},
		{"unlisted origin preflight", []string{"https://agenda.clinic.test"}, http.MethodOptions, "https://evil.test", http.StatusForbidden, ""},
		{"unlisted origin request", []string{"https://agenda.clinic.test"}, http.MethodGet, "https://evil.test", http.StatusOK, ""},
		{"same origin request", []string{"https://agenda.clinic.test"}, http.MethodGet, "", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CORSMiddleware(tt.allowed))
			r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(tt.method, "/x", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "Origin", w.Header().Get("Vary"))
			if tt.wantStatus == http.StatusNoContent {
				assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), HeaderRequestID)
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(logging.NewWithWriter(&buf, "info")))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Len(t, w.Header().Get(HeaderRequestID), 36)
	assert.Contains(t, buf.String(), `"path":"/ping"`)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(HeaderRequestID))
}

func TestRequireSession(t *testing.T) {
	store := session.NewMemoryStore(0)
	require.NoError(t, store.Set(context.Background(), session.Context{UserID: "42", ClinicID: "7", SidebarCollapsed: true}))

	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		c.Set(ContextUserID, c.Query("user"))
		c.Set(ContextClinicID, c.Query("clinic"))
	}, RequireSession(store), func(c *gin.Context) {
		sc, ok := SessionFrom(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"collapsed": sc.SidebarCollapsed})
	})

	cases := []struct {
		query  string
		status int
	}{
		{"user=42&clinic=7", http.StatusOK},
		{"user=42&clinic=8", http.StatusUnauthorized},
		{"user=43&clinic=7", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x?"+tc.query, nil))
		assert.Equal(t, tc.status, w.Code, tc.query)
	}
}
