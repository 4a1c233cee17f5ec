//go:build integration

package e2e

// End-to-end tests against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./tests/e2e/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"

	"stockroom/internal/config"
	"stockroom/internal/infra"
	"stockroom/internal/router"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body io.Reader, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

type productJSON struct {
	ID       uint    `json:"id"`
	Name     string  `json:"name"`
	Unit     *string `json:"unit"`
	Category *string `json:"category"`
	Brand    *string `json:"brand"`
	Stock    int     `json:"stock"`
	Status   *string `json:"status"`
}

type listJSON struct {
	Data       []productJSON `json:"data"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"total_pages"`
}

type importJSON struct {
	Received int `json:"received"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

func createProduct(t *testing.T, env *testEnv, body map[string]any) productJSON {
	t.Helper()
	resp := do(t, env.server, "POST", "/api/products", jsonBody(t, body), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var p productJSON
	decodeJSON(t, resp, &p)
	return p
}

// ── Suite setup ──────────────────────────────────────────────────────────────

type testEnv struct {
	server *httptest.Server
	token  string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.Run(ctx, "postgres:15-alpine",
		tcPostgres.WithDatabase("stockroom_test"),
		tcPostgres.WithUsername("stockroom"),
		tcPostgres.WithPassword("stockroom"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(pgC) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(rdC) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("e2e-password"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:               4000,
		Env:                "test",
		DatabaseURL:        pgURL,
		RedisURL:           rdURL,
		JWTSecret:          "test-secret-key",
		JWTExpirationHours: 8,
		AdminUsername:      "admin",
		AdminPasswordHash:  string(hash),
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	srv := httptest.NewServer(router.New(cfg, db, rdb))
	t.Cleanup(srv.Close)

	loginResp := do(t, srv, "POST", "/api/auth/login",
		jsonBody(t, map[string]string{"username": "admin", "password": "e2e-password"}), "")
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	var login struct {
		Token string `json:"token"`
	}
	decodeJSON(t, loginResp, &login)
	require.NotEmpty(t, login.Token)

	return &testEnv{server: srv, token: login.Token}
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestE2E_AuthGate(t *testing.T) {
	env := setupTestEnv(t)

	resp := do(t, env.server, "GET", "/api/products", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, "GET", "/api/products", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	badLogin := do(t, env.server, "POST", "/api/auth/login",
		jsonBody(t, map[string]string{"username": "admin", "password": "wrong"}), "")
	assert.Equal(t, http.StatusUnauthorized, badLogin.StatusCode)
	badLogin.Body.Close()
}

func TestE2E_ProductLifecycle(t *testing.T) {
	env := setupTestEnv(t)

	created := createProduct(t, env, map[string]any{
		"name": "Whole Milk", "unit": "liter", "category": "Dairy", "stock": 10,
	})
	require.NotZero(t, created.ID)
	assert.Equal(t, 10, created.Stock)

	// Duplicate name is rejected, not silently duplicated.
	dup := do(t, env.server, "POST", "/api/products",
		jsonBody(t, map[string]any{"name": "Whole Milk"}), env.token)
	assert.Equal(t, http.StatusConflict, dup.StatusCode)
	dup.Body.Close()

	// Sparse update: stock drops, other fields survive.
	updResp := do(t, env.server, "PUT", fmt.Sprintf("/api/products/%d", created.ID),
		jsonBody(t, map[string]any{"stock": 7, "reason": "sold"}), env.token)
	require.Equal(t, http.StatusOK, updResp.StatusCode)
	var updated productJSON
	decodeJSON(t, updResp, &updated)
	assert.Equal(t, 7, updated.Stock)
	require.NotNil(t, updated.Unit)
	assert.Equal(t, "liter", *updated.Unit)

	// Exactly one history row, with the before/after/delta of that change.
	histResp := do(t, env.server, "GET", fmt.Sprintf("/api/products/%d/history", created.ID), nil, env.token)
	require.Equal(t, http.StatusOK, histResp.StatusCode)
	var hist struct {
		Data []struct {
			ChangeAmount int    `json:"change_amount"`
			Reason       string `json:"reason"`
			BeforeQty    int    `json:"before_qty"`
			AfterQty     int    `json:"after_qty"`
		} `json:"data"`
		Total int64 `json:"total"`
	}
	decodeJSON(t, histResp, &hist)
	require.Len(t, hist.Data, 1)
	assert.Equal(t, -3, hist.Data[0].ChangeAmount)
	assert.Equal(t, "sold", hist.Data[0].Reason)
	assert.Equal(t, 10, hist.Data[0].BeforeQty)
	assert.Equal(t, 7, hist.Data[0].AfterQty)

	// Updating to the same stock value records nothing new.
	same := do(t, env.server, "PUT", fmt.Sprintf("/api/products/%d", created.ID),
		jsonBody(t, map[string]any{"stock": 7}), env.token)
	require.Equal(t, http.StatusOK, same.StatusCode)
	same.Body.Close()
	histResp = do(t, env.server, "GET", fmt.Sprintf("/api/products/%d/history", created.ID), nil, env.token)
	decodeJSON(t, histResp, &hist)
	assert.Len(t, hist.Data, 1)

	// Delete removes the product but keeps its audit trail readable.
	delResp := do(t, env.server, "DELETE", fmt.Sprintf("/api/products/%d", created.ID), nil, env.token)
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)
	delResp.Body.Close()

	gone := do(t, env.server, "GET", fmt.Sprintf("/api/products/%d", created.ID), nil, env.token)
	assert.Equal(t, http.StatusNotFound, gone.StatusCode)
	gone.Body.Close()

	histResp = do(t, env.server, "GET", fmt.Sprintf("/api/products/%d/history", created.ID), nil, env.token)
	require.Equal(t, http.StatusOK, histResp.StatusCode)
	decodeJSON(t, histResp, &hist)
	assert.Len(t, hist.Data, 1)
}

func TestE2E_ListFilteringAndSorting(t *testing.T) {
	env := setupTestEnv(t)

	createProduct(t, env, map[string]any{"name": "Whole Milk", "category": "Dairy", "stock": 5})
	createProduct(t, env, map[string]any{"name": "Aged Cheese", "category": "Dairy", "stock": 0})
	createProduct(t, env, map[string]any{"name": "Yogurt", "category": "Dairy", "stock": 3})
	createProduct(t, env, map[string]any{"name": "Sourdough", "category": "Bakery", "stock": 4})

	// category=Dairy + inStock=true + sort by stock ascending: the zero-stock
	// product is excluded and total counts only the matching rows.
	resp := do(t, env.server, "GET",
		"/api/products?category=Dairy&inStock=true&sortBy=stock&sortDir=asc&page=1&limit=2", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list listJSON
	decodeJSON(t, resp, &list)
	require.Len(t, list.Data, 2)
	assert.Equal(t, 3, list.Data[0].Stock)
	assert.Equal(t, 5, list.Data[1].Stock)
	assert.Equal(t, int64(2), list.Total)

	// Unknown sort column falls back instead of erroring.
	resp = do(t, env.server, "GET", "/api/products?sortBy=evil;drop&limit=10", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &list)
	assert.Equal(t, int64(4), list.Total)

	// Garbage pagination coerces to defaults.
	resp = do(t, env.server, "GET", "/api/products?page=abc&limit=xyz", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &list)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 20, list.Limit)

	// Substring name match, case-insensitive.
	resp = do(t, env.server, "GET", "/api/products?name=milk", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &list)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "Whole Milk", list.Data[0].Name)

	// Categories list is distinct and sorted.
	catResp := do(t, env.server, "GET", "/api/products/categories/list", nil, env.token)
	require.Equal(t, http.StatusOK, catResp.StatusCode)
	var categories []string
	decodeJSON(t, catResp, &categories)
	assert.Equal(t, []string{"Bakery", "Dairy"}, categories)
}

func TestE2E_BulkImportCounts(t *testing.T) {
	env := setupTestEnv(t)

	createProduct(t, env, map[string]any{"name": "Existing", "stock": 1})

	resp := do(t, env.server, "POST", "/api/products/bulk", jsonBody(t, []map[string]any{
		{"name": "Alpha", "stock": 5},
		{"stock": 9}, // no name
		{"name": "Existing", "stock": 99}, // duplicate key
		{"name": "Beta", "stock": "3"},    // string stock coerces
	}), env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result importJSON
	decodeJSON(t, resp, &result)
	assert.Equal(t, 4, result.Received)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 2, result.Skipped)

	// Non-array body is a client error.
	bad := do(t, env.server, "POST", "/api/products/bulk",
		jsonBody(t, map[string]any{"name": "NotAnArray"}), env.token)
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
	bad.Body.Close()
}

func TestE2E_CSVRoundTrip(t *testing.T) {
	env := setupTestEnv(t)

	createProduct(t, env, map[string]any{
		"name": `Cheese, "aged"`, "unit": "kg", "category": "Dairy", "stock": 3,
	})
	createProduct(t, env, map[string]any{"name": "Plain", "stock": 5})

	// Export
	expResp := do(t, env.server, "GET", "/api/products/export", nil, env.token)
	require.Equal(t, http.StatusOK, expResp.StatusCode)
	assert.Contains(t, expResp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, expResp.Header.Get("Content-Disposition"), "products.csv")
	exported, err := io.ReadAll(expResp.Body)
	expResp.Body.Close()
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(exported), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,name,unit,category,brand,stock,status,image,created_at,updated_at", lines[0])
	assert.Contains(t, string(exported), `"Cheese, ""aged"""`)

	// Upload the exported file back: every row collides on name, zero imported.
	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	fw, err := mw.CreateFormFile("csvFile", "products.csv")
	require.NoError(t, err)
	_, err = fw.Write(exported)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest("POST", env.server.URL+"/api/products/import", &form)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+env.token)
	impResp, err := env.server.Client().Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, impResp.StatusCode)
	var result importJSON
	decodeJSON(t, impResp, &result)
	assert.Equal(t, 2, result.Received)
	assert.Equal(t, 0, result.Imported)
	assert.Equal(t, 2, result.Skipped)

	// Missing file field is a client error.
	noFile := do(t, env.server, "POST", "/api/products/import", nil, env.token)
	assert.Equal(t, http.StatusBadRequest, noFile.StatusCode)
	noFile.Body.Close()
}

func TestE2E_Health(t *testing.T) {
	env := setupTestEnv(t)

	resp := do(t, env.server, "GET", "/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
