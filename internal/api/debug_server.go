package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/voxelworld/internal/editfeed"
	"github.com/annel0/voxelworld/internal/logging"
	"github.com/annel0/voxelworld/internal/middleware"
	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world"
	"github.com/annel0/voxelworld/internal/world/block"
)

// WorldView - то, что отладочный сервер читает из мира
type WorldView interface {
	Seed() int64
	Stats() world.UpdateStats
	Store() *world.ChunkStore
	Overlay() *world.EditOverlay
}

// DebugServer - отладочный HTTP сервер мира
type DebugServer struct {
	router  *gin.Engine
	world   WorldView
	feed    editfeed.Feed
	metrics *ProcessMetrics
	server  *http.Server
	logger  *logging.Logger
}

// Config содержит конфигурацию отладочного сервера
type Config struct {
	World    WorldView
	Feed     editfeed.Feed // nil - POST /api/world/edits недоступен
	Registry *prometheus.Registry
	Tracer   trace.TracerProvider // nil - глобальный провайдер otel
}

// NewDebugServer создает отладочный сервер и регистрирует его метрики в Registry
func NewDebugServer(config Config) *DebugServer {
	// Устанавливаем режим релиза для gin
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	var otelOpts []otelgin.Option
	if config.Tracer != nil {
		otelOpts = append(otelOpts, otelgin.WithTracerProvider(config.Tracer))
	}
	router.Use(otelgin.Middleware("voxel_debug", otelOpts...))

	loggerMw := middleware.NewRequestLogger()
	router.Use(loggerMw.Handler())

	promMw := middleware.NewPrometheusMiddleware("voxel_debug", config.Registry)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, config.Registry)

	metrics := NewProcessMetrics()
	metrics.Register(config.Registry)

	ds := &DebugServer{
		router:  router,
		world:   config.World,
		feed:    config.Feed,
		metrics: metrics,
		logger:  logging.GetAPILogger(),
	}
	ds.setupRoutes()
	return ds
}

// setupRoutes настраивает маршруты
func (ds *DebugServer) setupRoutes() {
	ds.router.GET("/health", ds.handleHealth)

	api := ds.router.Group("/api/world")
	{
		api.GET("/stats", ds.handleStats)
		api.GET("/chunks", ds.handleChunks)
		api.POST("/edits", ds.handleEdit)
	}
}

// Handler возвращает http.Handler сервера
func (ds *DebugServer) Handler() http.Handler {
	return ds.router
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// EditRequest - запрос на изменение блока
type EditRequest struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
	Block string `json:"block" binding:"required"` // имя блока или числовой ID
}

// ChunkInfo - краткое состояние загруженного чанка
type ChunkInfo struct {
	X      int  `json:"x"`
	Z      int  `json:"z"`
	Dirty  bool `json:"dirty"`
	Meshed bool `json:"meshed"`
	Faces  int  `json:"faces"`
	Bytes  int  `json:"bytes"`
}

// handleHealth отвечает на проверку живости
func (ds *DebugServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleStats возвращает статистику мира и процесса
func (ds *DebugServer) handleStats(c *gin.Context) {
	store := ds.world.Store()

	data := map[string]interface{}{
		"seed":          ds.world.Seed(),
		"update":        ds.world.Stats(),
		"resident":      store.Len(),
		"capacity":      store.Capacity(),
		"resident_size": store.MemoryBytes(),
		"edits":         ds.world.Overlay().Len(),
		"uptime":        ds.metrics.GetUptime(),
		"memory":        ds.metrics.GetDetailedMemoryStats(),
	}
	if ds.feed != nil {
		data["feed"] = ds.feed.Metrics()
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика мира",
		Data:    data,
	})
}

// handleChunks перечисляет загруженные чанки в каноническом порядке
func (ds *DebugServer) handleChunks(c *gin.Context) {
	store := ds.world.Store()

	chunks := make([]ChunkInfo, 0, store.Len())
	for _, coords := range store.Coords() {
		chunk := store.Get(coords)
		if chunk == nil {
			continue
		}
		info := ChunkInfo{X: coords.X, Z: coords.Z, Dirty: chunk.IsDirty(), Bytes: chunk.MemoryBytes()}
		if mesh := chunk.Mesh(); mesh != nil {
			info.Meshed = true
			info.Faces = mesh.FaceCount()
		}
		chunks = append(chunks, info)
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Загруженные чанки",
		Data:    chunks,
	})
}

// handleEdit ставит правку в ленту, мир применит её на следующем такте
func (ds *DebugServer) handleEdit(c *gin.Context) {
	if ds.feed == nil {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{
			Success: false,
			Message: "Лента правок не настроена",
		})
		return
	}

	var req EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Неверный формат запроса",
		})
		return
	}

	id, err := parseBlock(req.Block)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	pos := vec.Vec3{X: req.X, Y: req.Y, Z: req.Z}
	if !world.InWorld(pos) {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Координаты вне мира",
		})
		return
	}

	edit := editfeed.NewEdit(pos, id, "http:"+c.ClientIP())
	if err := ds.feed.Publish(c.Request.Context(), edit); err != nil {
		ds.logger.Warn("Не удалось опубликовать правку %v: %v", pos, err)
		c.JSON(http.StatusServiceUnavailable, GenericResponse{
			Success: false,
			Message: "Лента правок недоступна",
		})
		return
	}

	c.JSON(http.StatusAccepted, GenericResponse{
		Success: true,
		Message: "Правка принята",
		Data:    edit,
	})
}

// parseBlock принимает имя блока или его числовой ID
func parseBlock(s string) (block.BlockID, error) {
	if n, err := strconv.ParseUint(s, 10, 16); err == nil {
		id := block.BlockID(n)
		if !block.IsValidBlockID(id) {
			return 0, world.ErrUnknownBlock
		}
		return id, nil
	}
	id, err := block.ParseBlockID(s)
	if err != nil {
		return 0, world.ErrUnknownBlock
	}
	return id, nil
}

// Start запускает сервер в отдельной горутине. Метод неблокирующий.
func (ds *DebugServer) Start(addr string) {
	ds.server = &http.Server{
		Addr:              addr,
		Handler:           ds.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		ds.logger.Info("🔧 Отладочный HTTP сервер на %s", addr)
		if err := ds.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ds.logger.Error("Ошибка отладочного HTTP сервера: %v", err)
		}
	}()
}

// Stop корректно останавливает сервер
func (ds *DebugServer) Stop(ctx context.Context) error {
	if ds.server == nil {
		return nil
	}
	return ds.server.Shutdown(ctx)
}
