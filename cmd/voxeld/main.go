package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/annel0/voxelworld/internal/api"
	"github.com/annel0/voxelworld/internal/config"
	"github.com/annel0/voxelworld/internal/editfeed"
	"github.com/annel0/voxelworld/internal/logging"
	"github.com/annel0/voxelworld/internal/observability"
	"github.com/annel0/voxelworld/internal/storage"
	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world"
)

func main() {
	var (
		configPath = flag.String("config", "", "Путь к YAML конфигурации (иначе VOXEL_CONFIG)")
		duration   = flag.Duration("duration", 0, "Время работы, 0 - до сигнала")
		orbit      = flag.Float64("orbit", 96, "Радиус облёта точки обзора в блоках")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка чтения конфигурации: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Некорректная конфигурация: %v", err)
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if err := logging.InitLogger(cfg.Logging.Dir, level); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseLogger()

	logging.Info("🌍 Запуск voxeld...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === ТРАССИРОВКА ===
	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, observability.Options{
			ServiceName: cfg.Telemetry.ServiceName,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
		})
		if err != nil {
			logging.Warn("⚠️ OpenTelemetry не инициализирован: %v", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logging.Warn("Ошибка остановки OpenTelemetry: %v", err)
				}
			}()
		}
	}

	// === ХРАНИЛИЩЕ ПРАВОК ===
	store, err := openEditStore(ctx, cfg)
	if err != nil {
		logging.Error("❌ Ошибка открытия хранилища правок: %v", err)
		log.Fatalf("❌ Ошибка открытия хранилища правок: %v", err)
	}
	defer store.Close()

	opts, err := cfg.WorldOptions()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	overlay := world.NewEditOverlay()
	worldID := uuid.Nil

	// Файл сохранения задаёт сид мира
	save, err := storage.LoadFile(cfg.Storage.SaveFile)
	switch {
	case err == nil:
		if save.Header.Seed != opts.Seed {
			logging.Warn("Сид сохранения %d заменяет сид конфигурации %d", save.Header.Seed, opts.Seed)
			opts.Seed = save.Header.Seed
		}
		worldID = save.Header.WorldID
	case errors.Is(err, os.ErrNotExist):
		save = nil
	default:
		log.Fatalf("❌ Ошибка чтения сохранения: %v", err)
	}

	// Правки хранилища новее правок сохранения
	fromSave, fromStore, err := storage.RestoreOverlay(ctx, overlay, save, store)
	if err != nil {
		log.Fatalf("❌ Ошибка восстановления правок: %v", err)
	}
	overlay.SetStore(store)
	logging.Info("💾 Правки восстановлены: сохранение %s (мир %s) - %d, хранилище %s - %d",
		cfg.Storage.SaveFile, worldID, fromSave, cfg.Storage.Backend, fromStore)

	// === МИР ===
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	wm, err := world.NewWorldManager(opts, overlay, world.NewMetrics(reg))
	if err != nil {
		log.Fatalf("❌ Ошибка создания мира: %v", err)
	}

	// === ЛЕНТА ПРАВОК ===
	feed, err := openFeed(cfg)
	if err != nil {
		log.Fatalf("❌ Ошибка подключения ленты правок: %v", err)
	}
	exporter := editfeed.NewMetricsExporter(feed, reg)
	exporter.Start(time.Second)

	queue, err := editfeed.NewQueue(ctx, feed)
	if err != nil {
		log.Fatalf("❌ Ошибка подписки на ленту правок: %v", err)
	}
	if _, err := editfeed.StartLoggingListener(feed); err != nil {
		logging.Warn("LoggingListener не запущен: %v", err)
	}

	// === ОТЛАДОЧНЫЙ HTTP ===
	var server *api.DebugServer
	if !cfg.Server.Disabled {
		server = api.NewDebugServer(api.Config{World: wm, Feed: feed, Registry: reg})
		server.Start(cfg.Server.GetDebugAddr())
	}

	logging.Info("✅ Мир запущен: seed=%d, render_distance=%d, tick=%dms",
		opts.Seed, cfg.World.RenderDistance, cfg.World.TickMs)

	// Канал для получения сигналов ОС
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var deadline <-chan time.Time
	if *duration > 0 {
		deadline = time.After(*duration)
	}

	ticker := time.NewTicker(time.Duration(cfg.World.TickMs) * time.Millisecond)
	defer ticker.Stop()

	start := time.Now()
loop:
	for {
		select {
		case <-ticker.C:
			applyEdits(wm, queue.Drain())
			view := viewpoint(time.Since(start), *orbit)
			wm.Update(view, cfg.World.RenderDistance)
		case sig := <-sigCh:
			logging.Info("📡 Получен сигнал %v, завершение работы...", sig)
			break loop
		case <-deadline:
			logging.Info("⏱ Время работы истекло, завершение работы...")
			break loop
		}
	}

	// === GRACEFUL SHUTDOWN ===
	if server != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		if err := server.Stop(shutdownCtx); err != nil {
			logging.Error("❌ Ошибка остановки HTTP сервера: %v", err)
		}
		stop()
	}

	// Правки, принятые до закрытия ленты, применяются до сохранения
	if err := feed.Close(); err != nil {
		logging.Error("❌ Ошибка закрытия ленты правок: %v", err)
	}
	applyEdits(wm, queue.Drain())
	queue.Close()
	exporter.Stop()

	save = storage.NewSave(worldID, opts.Seed, overlay)
	if err := storage.SaveFile(cfg.Storage.SaveFile, save); err != nil {
		logging.Error("❌ Ошибка записи сохранения: %v", err)
	}

	wm.Close()
	logging.Info("👋 voxeld остановлен")
}

// applyEdits применяет правки из ленты на основной горутине
func applyEdits(wm *world.WorldManager, edits []editfeed.Edit) {
	for _, e := range edits {
		if err := wm.ApplyEdit(e.Pos, e.Block); err != nil {
			logging.Warn("Правка %s от %s в %v не применена: %v", e.ID, e.Source, e.Pos, err)
		}
	}
}

// viewpoint ведёт точку обзора по окружности вокруг начала координат
func viewpoint(elapsed time.Duration, radius float64) vec.Vec3Float {
	angle := elapsed.Seconds() * 0.05
	return vec.Vec3Float{
		X: radius * math.Cos(angle),
		Y: 96,
		Z: radius * math.Sin(angle),
	}
}

func openEditStore(ctx context.Context, cfg *config.Config) (world.EditStore, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return storage.NewMemoryEditStore(), nil
	case "redis":
		return storage.NewRedisEditStore(ctx, &storage.RedisConfig{
			Addr:      cfg.Storage.Redis.Addr,
			Password:  cfg.Storage.Redis.Password,
			DB:        cfg.Storage.Redis.DB,
			KeyPrefix: cfg.Storage.Redis.KeyPrefix,
		})
	case "mongo":
		return storage.NewMongoEditStore(ctx, storage.MongoConfig{
			URI:        cfg.Storage.Mongo.URI,
			Database:   cfg.Storage.Mongo.Database,
			Collection: cfg.Storage.Mongo.Collection,
		})
	case "badger":
		return storage.NewBadgerEditStore(cfg.Storage.Path)
	}
	return nil, fmt.Errorf("неизвестный backend хранилища %q", cfg.Storage.Backend)
}

func openFeed(cfg *config.Config) (editfeed.Feed, error) {
	switch cfg.EditFeed.Backend {
	case "nats":
		return editfeed.NewNATSFeed(cfg.EditFeed.NATSURL, cfg.EditFeed.Subject)
	case "memory":
		return editfeed.NewMemoryFeed(cfg.EditFeed.Buffer), nil
	}
	return nil, fmt.Errorf("неизвестный backend ленты %q", cfg.EditFeed.Backend)
}
