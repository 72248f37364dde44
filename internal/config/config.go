package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/annel0/voxelworld/internal/world"
)

// Config корневая структура конфигурации приложения
type Config struct {
	World    WorldConfig    `yaml:"world"`
	Storage  StorageConfig  `yaml:"storage"`
	EditFeed EditFeedConfig `yaml:"editfeed"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type WorldConfig struct {
	Seed                 int64  `yaml:"seed"`
	RenderDistance       int    `yaml:"render_distance"`
	MaxChunks            int    `yaml:"max_chunks"`
	MemoryLimitMB        int    `yaml:"memory_limit_mb"`
	MaxGeneratePerUpdate int    `yaml:"max_generate_per_update"`
	MaxMeshPerUpdate     int    `yaml:"max_mesh_per_update"`
	GenerateWorkers      int    `yaml:"generate_workers"`
	AsyncWorkers         int    `yaml:"async_workers"`
	Eviction             string `yaml:"eviction"`         // distance | lru
	MissingNeighbor      string `yaml:"missing_neighbor"` // opaque | transparent
	TickMs               int    `yaml:"tick_ms"`
}

type StorageConfig struct {
	Backend  string      `yaml:"backend"` // badger | memory | redis | mongo
	Path     string      `yaml:"path"`
	SaveFile string      `yaml:"save_file"`
	Redis    RedisConfig `yaml:"redis"`
	Mongo    MongoConfig `yaml:"mongo"`
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

type EditFeedConfig struct {
	Backend string `yaml:"backend"` // memory | nats
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
	Buffer  int    `yaml:"buffer"`
}

type ServerConfig struct {
	Host      string `yaml:"host"`
	DebugPort int    `yaml:"debug_port"`
	Disabled  bool   `yaml:"disabled"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// TelemetryConfig - экспорт трассировки OpenTelemetry по OTLP/HTTP
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"` // host:port коллектора; пусто - из OTEL_EXPORTER_OTLP_ENDPOINT
	Insecure    bool   `yaml:"insecure"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		World: WorldConfig{
			RenderDistance:       8,
			MaxChunks:            1024,
			MemoryLimitMB:        512,
			MaxGeneratePerUpdate: 8,
			MaxMeshPerUpdate:     16,
			GenerateWorkers:      1,
			Eviction:             "distance",
			MissingNeighbor:      "opaque",
			TickMs:               50,
		},
		Storage: StorageConfig{
			Backend:  "badger",
			Path:     "data",
			SaveFile: "data/world.vxs",
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "voxel:edits",
			},
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "voxelworld",
				Collection: "edits",
			},
		},
		EditFeed: EditFeedConfig{
			Backend: "memory",
			NATSURL: "nats://127.0.0.1:4222",
			Subject: "world.edits",
			Buffer:  256,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "logs",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "voxeld",
			Insecure:    true,
		},
	}
}

// GetDebugPort возвращает порт отладочного HTTP сервера с поддержкой fallback значений
func (s *ServerConfig) GetDebugPort() int {
	return getPortWithEnvFallback(s.DebugPort, "VOXEL_DEBUG_PORT", 8088)
}

// GetDebugAddr возвращает адрес отладочного HTTP сервера
func (s *ServerConfig) GetDebugAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.GetDebugPort())
}

// GetSeed возвращает сид с приоритетом: config -> env VOXEL_SEED -> 0
func (w *WorldConfig) GetSeed() int64 {
	if w.Seed != 0 {
		return w.Seed
	}
	if envVal := os.Getenv("VOXEL_SEED"); envVal != "" {
		if seed, err := strconv.ParseInt(envVal, 10, 64); err == nil {
			return seed
		}
	}
	return 0
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать путь из ENV VOXEL_CONFIG, иначе возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("VOXEL_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор %s: %w", path, err)
	}
	return cfg, nil
}

// WorldOptions переводит секцию world в параметры мира
func (c *Config) WorldOptions() (world.Options, error) {
	eviction, err := world.ParseEvictionPolicy(c.World.Eviction)
	if err != nil {
		return world.Options{}, err
	}
	neighbor, err := world.ParseMissingNeighborPolicy(c.World.MissingNeighbor)
	if err != nil {
		return world.Options{}, err
	}

	opts := world.Options{
		Seed: c.World.GetSeed(),
		Budget: world.Budget{
			MaxChunks:   c.World.MaxChunks,
			MemoryLimit: int64(c.World.MemoryLimitMB) << 20,
		},
		Eviction:             eviction,
		MissingNeighbor:      neighbor,
		MaxGeneratePerUpdate: c.World.MaxGeneratePerUpdate,
		MaxMeshPerUpdate:     c.World.MaxMeshPerUpdate,
		GenerateWorkers:      c.World.GenerateWorkers,
		AsyncWorkers:         c.World.AsyncWorkers,
	}
	if err := opts.Budget.Validate(); err != nil {
		return world.Options{}, err
	}
	return opts, nil
}

// Validate проверяет конфигурацию целиком. Ошибка фатальна для запуска.
func (c *Config) Validate() error {
	if _, err := c.WorldOptions(); err != nil {
		return fmt.Errorf("world: %w", err)
	}
	if c.World.RenderDistance < 0 {
		return fmt.Errorf("world: render_distance=%d не может быть отрицательным", c.World.RenderDistance)
	}
	if c.World.TickMs <= 0 {
		return fmt.Errorf("world: tick_ms=%d должен быть положительным", c.World.TickMs)
	}
	switch c.Storage.Backend {
	case "badger", "memory", "redis", "mongo":
	default:
		return fmt.Errorf("storage: неизвестный backend %q", c.Storage.Backend)
	}
	switch c.EditFeed.Backend {
	case "memory", "nats":
	default:
		return fmt.Errorf("editfeed: неизвестный backend %q", c.EditFeed.Backend)
	}
	if c.Telemetry.Enabled && c.Telemetry.ServiceName == "" {
		return fmt.Errorf("telemetry: service_name обязателен при enabled=true")
	}
	return nil
}
