package logging

import (
	"fmt"
	"sync"
)

// Компоненты с собственным файлом журнала
const (
	ComponentWorld    = "world"
	ComponentStorage  = "storage"
	ComponentAPI      = "api"
	ComponentEditFeed = "editfeed"
)

// LoggerManager хранит логгеры компонентов, по одному файлу на компонент
type LoggerManager struct {
	mu      sync.Mutex
	loggers map[string]*Logger
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = &LoggerManager{loggers: make(map[string]*Logger)}
	})
	return globalManager
}

// GetLogger возвращает логгер компонента, создавая его при первом обращении
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if logger, ok := lm.loggers[component]; ok {
		return logger, nil
	}
	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("logger %s: %w", component, err)
	}
	lm.loggers[component] = logger
	return logger, nil
}

// consoleOnly - логгер без файла, если каталог журналов недоступен
func consoleOnly(component string) *Logger {
	return &Logger{
		component:       component,
		consoleLogger:   defaultLogger.consoleLogger,
		minConsoleLevel: defaultLogger.minConsoleLevel,
		minFileLevel:    ERROR,
	}
}

// CloseAll закрывает файлы всех компонентов и забывает их логгеры
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var firstErr error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("logger %s: %w", component, err)
		}
	}
	lm.loggers = make(map[string]*Logger)
	return firstErr
}

// GetComponentLogger никогда не возвращает nil: при ошибке пишет только в консоль
func GetComponentLogger(component string) *Logger {
	logger, err := GetLoggerManager().GetLogger(component)
	if err != nil {
		return consoleOnly(component)
	}
	return logger
}

func GetWorldLogger() *Logger    { return GetComponentLogger(ComponentWorld) }
func GetStorageLogger() *Logger  { return GetComponentLogger(ComponentStorage) }
func GetAPILogger() *Logger      { return GetComponentLogger(ComponentAPI) }
func GetEditFeedLogger() *Logger { return GetComponentLogger(ComponentEditFeed) }
