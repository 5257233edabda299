package logging

import (
	"fmt"
	"sync"
)

// Имена компонентов симуляции
const (
	ComponentSim   = "sim"
	ComponentWorld = "world"
	ComponentBus   = "eventbus"
)

// Factory создаёт логгер компонента
type Factory func(component string) (*Logger, error)

// LoggerManager кеширует логгеры компонентов
type LoggerManager struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
	factory Factory
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер. Его логгеры пишут
// в консоль и файл глобального логгера с префиксом компонента.
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = NewLoggerManager(func(component string) (*Logger, error) {
			return defaultLogger.child(component), nil
		})
	})
	return globalManager
}

// NewLoggerManager создаёт менеджер с фабрикой логгеров
func NewLoggerManager(factory Factory) *LoggerManager {
	return &LoggerManager{
		loggers: make(map[string]*Logger),
		factory: factory,
	}
}

// GetLogger возвращает логгер компонента, создавая его при первом обращении
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.RLock()
	logger, ok := lm.loggers[component]
	lm.mu.RUnlock()
	if ok {
		return logger, nil
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	if logger, ok := lm.loggers[component]; ok {
		return logger, nil
	}

	logger, err := lm.factory(component)
	if err != nil {
		return nil, fmt.Errorf("логгер компонента %s: %w", component, err)
	}
	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger возвращает логгер компонента или консольный логгер при ошибке фабрики
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err != nil {
		return defaultLogger.child(component)
	}
	return logger
}

// SetLevel меняет порог вывода в консоль у всех созданных логгеров
func (lm *LoggerManager) SetLevel(level LogLevel) {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	for _, logger := range lm.loggers {
		logger.SetLevel(level)
	}
}

// Reset закрывает и забывает все логгеры; следующие обращения создадут их заново
func (lm *LoggerManager) Reset() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var errs []error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("закрытие логгера %s: %w", component, err))
		}
	}
	lm.loggers = make(map[string]*Logger)
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// GetComponentLogger возвращает логгер компонента из глобального менеджера
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

// GetSimLogger логгер степпера и сессии
func GetSimLogger() *Logger {
	return GetComponentLogger(ComponentSim)
}

// GetWorldLogger логгер генерации мира
func GetWorldLogger() *Logger {
	return GetComponentLogger(ComponentWorld)
}

// GetBusLogger логгер шины событий
func GetBusLogger() *Logger {
	return GetComponentLogger(ComponentBus)
}
