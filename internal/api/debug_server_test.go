package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/annel0/voxelworld/internal/editfeed"
	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world"
	"github.com/annel0/voxelworld/internal/world/block"
)

type testEnv struct {
	server *DebugServer
	world  *world.WorldManager
	feed   *editfeed.MemoryFeed
	queue  *editfeed.Queue
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithTracer(t, nil)
}

func newTestEnvWithTracer(t *testing.T, tp *sdktrace.TracerProvider) *testEnv {
	t.Helper()
	reg := prometheus.NewRegistry()

	opts := world.DefaultOptions(42)
	opts.Budget = world.Budget{MaxChunks: 16}
	wm, err := world.NewWorldManager(opts, nil, world.NewMetrics(reg))
	require.NoError(t, err)
	t.Cleanup(wm.Close)
	wm.Update(vec.Vec3Float{X: 8, Y: 80, Z: 8}, 1)

	feed := editfeed.NewMemoryFeed(16)
	t.Cleanup(func() { feed.Close() })
	queue, err := editfeed.NewQueue(context.Background(), feed)
	require.NoError(t, err)

	cfg := Config{World: wm, Feed: feed, Registry: reg}
	if tp != nil {
		cfg.Tracer = tp
	}
	server := NewDebugServer(cfg)
	return &testEnv{server: server, world: wm, feed: feed, queue: queue}
}

func (env *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, GenericResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	var resp GenericResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec, _ := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDFollowsTrace(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	env := newTestEnvWithTracer(t, tp)

	rec, _ := env.do(t, http.MethodGet, "/api/world/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), rec.Header().Get("X-Request-ID"))

	// Клиентский ID не перезаписывается
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "client-42")
	rec = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "client-42", rec.Header().Get("X-Request-ID"))
}

func TestStatsAndChunks(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodGet, "/api/world/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(42), data["seed"])
	assert.Equal(t, float64(5), data["resident"])

	rec, resp = env.do(t, http.MethodGet, "/api/world/chunks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	chunks := resp.Data.([]interface{})
	require.Len(t, chunks, 5)
	first := chunks[0].(map[string]interface{})
	assert.Equal(t, float64(-1), first["x"], "канонический порядок")
}

func TestPostEditQueuesThroughFeed(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodPost, "/api/world/edits", `{"x":3,"y":100,"z":-4,"block":"GoldOre"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, resp.Message)

	rec, _ = env.do(t, http.MethodPost, "/api/world/edits", `{"x":3,"y":101,"z":-4,"block":"12"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, "числовой ID тоже принимается")

	require.NoError(t, env.feed.Close())
	edits := env.queue.Drain()
	require.Len(t, edits, 2)
	assert.Equal(t, vec.Vec3{X: 3, Y: 100, Z: -4}, edits[0].Pos)
	assert.Equal(t, block.GoldOreBlockID, edits[0].Block)

	// Основной цикл применяет правку из очереди
	require.NoError(t, env.world.ApplyEdit(edits[0].Pos, edits[0].Block))
	got, ok := env.world.BlockAt(edits[0].Pos)
	require.True(t, ok)
	assert.Equal(t, block.GoldOreBlockID, got)
}

func TestPostEditRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"нет блока", `{"x":1,"y":2,"z":3}`},
		{"неизвестный блок", `{"x":1,"y":2,"z":3,"block":"unobtainium"}`},
		{"неизвестный ID", `{"x":1,"y":2,"z":3,"block":"999"}`},
		{"вне мира", `{"x":1,"y":300,"z":3,"block":"1"}`},
		{"не JSON", `x=1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := env.do(t, http.MethodPost, "/api/world/edits", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, resp.Success)
		})
	}
	assert.Zero(t, env.feed.Metrics().Published)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/health", "")

	rec, _ := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "voxel_world_resident_chunks 5")
	assert.Contains(t, body, "voxel_process_uptime_seconds")
	assert.Contains(t, body, "voxel_debug_http_request_duration_seconds")
}
