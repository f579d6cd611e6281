package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/TAIGA/internal/config"
	"github.com/copyleftdev/TAIGA/internal/logging"
)

// testConfig creates a test configuration with default values
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{
		Environment: "test",
	}

	cfg.HTTP.Port = 8080
	cfg.HTTP.ReadTimeout = 30 * time.Second
	cfg.HTTP.WriteTimeout = 30 * time.Second
	cfg.HTTP.IdleTimeout = 120 * time.Second
	cfg.HTTP.ShutdownTimeout = 30 * time.Second

	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"
	cfg.Logging.Output = "stdout"

	cfg.Problems.MaxProblems = 16
	cfg.Problems.MaxDimFull = 1000

	return cfg
}

// testLogger creates a test logger
func testLogger(t *testing.T) *logging.Logger {
	t.Helper()

	logger, err := logging.NewLogger(&logging.Config{
		Level:  "error",
		Format: "json",
		Output: "stdout",
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return logger
}

// newTestRouter builds a server with routes registered on a fresh router.
func newTestRouter(t *testing.T) (*Server, chi.Router) {
	t.Helper()

	logger := testLogger(t)
	srv := NewServer(testConfig(t), logger, logging.NewZapLogger(logger))
	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	return srv, r
}

// doJSON performs a request with a JSON body and decodes the JSON response.
func doJSON(t *testing.T, r chi.Router, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

// createProblem registers a 3-parameter problem and returns its id.
func createProblem(t *testing.T, r chi.Router) string {
	t.Helper()

	rec, resp := doJSON(t, r, http.MethodPost, "/api/v1/problems", map[string]interface{}{
		"lb": []float64{0, 0, 0},
		"ub": []float64{1, 1, 1},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id, ok := resp["id"].(string)
	require.True(t, ok)
	return id
}

func TestNewServer(t *testing.T) {
	logger := testLogger(t)
	srv := NewServer(testConfig(t), logger, nil)
	assert.NotNil(t, srv, "Server should be created")
}

func TestCreateProblem(t *testing.T) {
	_, r := newTestRouter(t)

	rec, resp := doJSON(t, r, http.MethodPost, "/api/v1/problems", map[string]interface{}{
		"lb":       []float64{0},
		"ub":       []float64{1},
		"dim_full": 4,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, float64(4), resp["dim_full"])
	assert.Equal(t, float64(4), resp["dim"])
}

func TestCreateProblemValidation(t *testing.T) {
	_, r := newTestRouter(t)

	t.Run("bad scale", func(t *testing.T) {
		rec, _ := doJSON(t, r, http.MethodPost, "/api/v1/problems", map[string]interface{}{
			"lb":     []float64{0},
			"ub":     []float64{1},
			"scales": []string{"log2"},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("inconsistent dimensions", func(t *testing.T) {
		rec, resp := doJSON(t, r, http.MethodPost, "/api/v1/problems", map[string]interface{}{
			"lb":       []float64{0, 0},
			"ub":       []float64{1, 1, 1, 1},
			"dim_full": 5,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "dimension_mismatch", resp["kind"])
	})

	t.Run("dim_full over limit", func(t *testing.T) {
		rec, _ := doJSON(t, r, http.MethodPost, "/api/v1/problems", map[string]interface{}{
			"lb":       []float64{0},
			"ub":       []float64{1},
			"dim_full": 100000,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetProblem(t *testing.T) {
	_, r := newTestRouter(t)
	id := createProblem(t, r)

	rec, resp := doJSON(t, r, http.MethodGet, "/api/v1/problems/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, id, resp["id"])
	assert.Equal(t, float64(3), resp["dim_full"])
	assert.Equal(t, []interface{}{float64(0), float64(1), float64(2)}, resp["free_indices"])
	assert.Equal(t, []interface{}{"x0", "x1", "x2"}, resp["names"])
	assert.Equal(t, []interface{}{"lin", "lin", "lin"}, resp["scales"])
}

func TestGetProblemNotFound(t *testing.T) {
	_, r := newTestRouter(t)

	rec, _ := doJSON(t, r, http.MethodGet, "/api/v1/problems/prob_missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFixAndUnfix(t *testing.T) {
	_, r := newTestRouter(t)
	id := createProblem(t, r)

	rec, resp := doJSON(t, r, http.MethodPost, "/api/v1/problems/"+id+"/fix", map[string]interface{}{
		"indices": []int{1},
		"values":  []float64{0.5},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), resp["dim"])
	assert.Equal(t, []interface{}{float64(0), float64(2)}, resp["free_indices"])
	assert.Equal(t, []interface{}{float64(1)}, resp["fixed_indices"])
	assert.Equal(t, []interface{}{0.5}, resp["fixed_values"])

	rec, resp = doJSON(t, r, http.MethodPost, "/api/v1/problems/"+id+"/unfix", map[string]interface{}{
		"indices": []int{1},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), resp["dim"])
	assert.Equal(t, []interface{}{float64(0), float64(1), float64(2)}, resp["free_indices"])
	assert.Empty(t, resp["fixed_indices"])
}

func TestFixInvalidIndex(t *testing.T) {
	_, r := newTestRouter(t)
	id := createProblem(t, r)

	rec, resp := doJSON(t, r, http.MethodPost, "/api/v1/problems/"+id+"/fix", map[string]interface{}{
		"indices": []int{7},
		"values":  []float64{0.5},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_index", resp["kind"])

	// The problem survives a recoverable error.
	rec, _ = doJSON(t, r, http.MethodGet, "/api/v1/problems/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProject(t *testing.T) {
	_, r := newTestRouter(t)
	id := createProblem(t, r)

	rec, _ := doJSON(t, r, http.MethodPost, "/api/v1/problems/"+id+"/fix", map[string]interface{}{
		"indices": []int{1},
		"values":  []float64{0.5},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("to full with fill", func(t *testing.T) {
		rec, resp := doJSON(t, r, http.MethodPost, "/api/v1/problems/"+id+"/project", map[string]interface{}{
			"direction":      "full",
			"x":              []float64{10, 20},
			"fill_for_fixed": []float64{0.5},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []interface{}{float64(10), 0.5, float64(20)}, resp["x"])
	})

	t.Run("to full without fill yields null at fixed position", func(t *testing.T) {
		rec, resp := doJSON(t, r, http.MethodPost, "/api/v1/problems/"+id+"/project", map[string]interface{}{
			"direction": "full",
			"x":         []float64{10, 20},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []interface{}{float64(10), nil, float64(20)}, resp["x"])
	})

	t.Run("to reduced", func(t *testing.T) {
		rec, resp := doJSON(t, r, http.MethodPost, "/api/v1/problems/"+id+"/project", map[string]interface{}{
			"direction": "reduced",
			"x":         []float64{10, 99, 20},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []interface{}{float64(10), float64(20)}, resp["x"])
	})

	t.Run("bad direction", func(t *testing.T) {
		rec, _ := doJSON(t, r, http.MethodPost, "/api/v1/problems/"+id+"/project", map[string]interface{}{
			"direction": "sideways",
			"x":         []float64{10, 20},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad length", func(t *testing.T) {
		rec, resp := doJSON(t, r, http.MethodPost, "/api/v1/problems/"+id+"/project", map[string]interface{}{
			"direction": "full",
			"x":         []float64{10, 20, 30, 40},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "dimension_mismatch", resp["kind"])
	})
}

func TestSummaryEndpoint(t *testing.T) {
	_, r := newTestRouter(t)
	id := createProblem(t, r)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/problems/"+id+"/summary", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "x0")
}

func TestDeleteProblem(t *testing.T) {
	_, r := newTestRouter(t)
	id := createProblem(t, r)

	rec, _ := doJSON(t, r, http.MethodDelete, "/api/v1/problems/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = doJSON(t, r, http.MethodGet, "/api/v1/problems/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegistryLimit(t *testing.T) {
	_, r := newTestRouter(t)

	for i := 0; i < 16; i++ {
		rec, _ := doJSON(t, r, http.MethodPost, "/api/v1/problems", map[string]interface{}{
			"lb": []float64{0},
			"ub": []float64{1},
		})
		require.Equal(t, http.StatusCreated, rec.Code, fmt.Sprintf("problem %d", i))
	}

	rec, _ := doJSON(t, r, http.MethodPost, "/api/v1/problems", map[string]interface{}{
		"lb": []float64{0},
		"ub": []float64{1},
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
