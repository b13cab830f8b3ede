package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dydqjadlsp/detailpage/internal/data/repos"
	"github.com/dydqjadlsp/detailpage/internal/data/repos/testutil"
	"github.com/dydqjadlsp/detailpage/internal/domain/page"
	httpH "github.com/dydqjadlsp/detailpage/internal/http/handlers"
	httpMW "github.com/dydqjadlsp/detailpage/internal/http/middleware"
	"github.com/dydqjadlsp/detailpage/internal/modules/pagegen"
	"github.com/dydqjadlsp/detailpage/internal/observability"
	"github.com/dydqjadlsp/detailpage/internal/platform/secrets"
	"github.com/dydqjadlsp/detailpage/internal/services"
)

const routerSecret = "router-test-secret"

type stubGenerator struct{ runs int }

func (g *stubGenerator) Run(ctx context.Context, req pagegen.Request) (*pagegen.Result, error) {
	g.runs++
	return &pagegen.Result{ProjectID: uuid.New(), PuckData: page.Document{Content: []page.Block{}}, TotalSections: 0}, nil
}

func (g *stubGenerator) Modify(ctx context.Context, req pagegen.ModifyRequest) (*pagegen.ModifyResult, error) {
	return &pagegen.ModifyResult{UpdatedPuckData: page.Document{Content: []page.Block{}}, ChangesSummary: pagegen.DefaultChangesSummary}, nil
}

type routerFixture struct {
	engine    *gin.Engine
	generator *stubGenerator
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)
	box, err := secrets.NewBox("router-settings-passphrase")
	require.NoError(t, err)

	projectRepo := repos.NewProjectRepo(db, log)
	settings := services.NewSettingsService(db, log, repos.NewUserSettingsRepo(db, log), box)
	projects := services.NewProjectService(db, log, projectRepo, nil)
	gen := &stubGenerator{}
	generation := services.NewGenerationService(log, gen, settings, projectRepo)
	metrics := observability.NewMetrics(log)

	engine := NewRouter(RouterConfig{
		Log:               log,
		Metrics:           metrics,
		MetricsEnabled:    true,
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, services.NewAuthService(log, routerSecret, "")),
		HealthHandler:     httpH.NewHealthHandler(log, metrics, nil),
		GenerationHandler: httpH.NewGenerationHandler(log, generation),
		ProjectHandler:    httpH.NewProjectHandler(log, projects),
		SettingsHandler:   httpH.NewSettingsHandler(log, settings),
	})
	return &routerFixture{engine: engine, generator: gen}
}

func bearer(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, services.JWTClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	s, err := tok.SignedString([]byte(routerSecret))
	require.NoError(t, err)
	return "Bearer " + s
}

func (f *routerFixture) call(t *testing.T, method, path, auth, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func dataOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env struct {
		OK   bool           `json:"ok"`
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.True(t, env.OK, rec.Body.String())
	return env.Data
}

func TestPublicRoutes(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.call(t, http.MethodGet, "/healthcheck", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = f.call(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "detailpage_"), "metrics exposition expected")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newRouterFixture(t)
	for _, route := range [][2]string{
		{http.MethodPost, "/api/generate"},
		{http.MethodPost, "/api/vibe"},
		{http.MethodGet, "/api/projects"},
		{http.MethodGet, "/api/settings"},
	} {
		rec := f.call(t, route[0], route[1], "", `{}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route[1])
	}
}

func TestGenerateNeedsStoredKey(t *testing.T) {
	f := newRouterFixture(t)
	alice := bearer(t, uuid.New())

	rec := f.call(t, http.MethodPost, "/api/generate", alice, `{"category":"saas","inputData":{"name":"x"}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "마이페이지에서 Gemini API 키를 먼저 등록해주세요")
	assert.Zero(t, f.generator.runs)

	rec = f.call(t, http.MethodPost, "/api/settings", alice, `{"apiKey":"AIzaSyRouterTestKey0000"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.call(t, http.MethodPost, "/api/generate", alice, `{"category":"saas","inputData":{"name":"x"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, f.generator.runs)
}

func TestProjectOwnershipAcrossUsers(t *testing.T) {
	f := newRouterFixture(t)
	alice, bob := bearer(t, uuid.New()), bearer(t, uuid.New())

	rec := f.call(t, http.MethodPost, "/api/projects", alice, `{"title":"Mug","category":"ecommerce"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := dataOf(t, rec)["id"].(string)

	rec = f.call(t, http.MethodGet, "/api/projects/"+id, bob, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.call(t, http.MethodGet, "/api/projects", bob, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, dataOf(t, rec)["total"])

	rec = f.call(t, http.MethodPost, "/api/vibe", bob,
		`{"projectId":"`+id+`","message":"x","currentPuckData":{"content":[],"root":{"props":{}}}}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.call(t, http.MethodPut, "/api/projects/"+id, alice, `{"status":"archived"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.call(t, http.MethodPut, "/api/projects/"+id, alice, `{"status":"published"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "published", dataOf(t, rec)["status"])

	rec = f.call(t, http.MethodDelete, "/api/projects/"+id, alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.call(t, http.MethodGet, "/api/projects/"+id, alice, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
