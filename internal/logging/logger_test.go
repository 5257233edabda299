package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, DEBUG, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, INFO, lvl, "Пустой уровень — INFO")

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestConsoleLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger("sim", &buf, WARN)

	l.Info("скрытое сообщение")
	l.Warn("видимое %d", 42)

	out := buf.String()
	assert.NotContains(t, out, "скрытое")
	assert.Contains(t, out, "[WARN] [sim] видимое 42")
}

func TestNewLogger_WritesFile(t *testing.T) {
	dir := t.TempDir()
	old := LogDir
	LogDir = dir
	defer func() { LogDir = old }()

	l, err := NewLogger("world")
	require.NoError(t, err)
	l.consoleLogger.SetOutput(&bytes.Buffer{})

	l.Debug("в файл")
	require.NoError(t, l.Close())

	files, err := filepath.Glob(filepath.Join(dir, "world_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1, "Должен появиться один файл логов")

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBUG] [world] в файл")
}

func TestLoggerManager_CachesLoggers(t *testing.T) {
	created := 0
	lm := NewLoggerManager(func(component string) (*Logger, error) {
		created++
		return NewConsoleLogger(component, &bytes.Buffer{}, INFO), nil
	})

	a, err := lm.GetLogger(ComponentSim)
	require.NoError(t, err)
	b, err := lm.GetLogger(ComponentSim)
	require.NoError(t, err)

	assert.Same(t, a, b, "Логгер компонента должен кешироваться")
	assert.Equal(t, 1, created)

	lm.SetLevel(ERROR)
	assert.Equal(t, ERROR, a.minConsoleLevel, "SetLevel применяется к созданным логгерам")

	require.NoError(t, lm.Reset())
	c, err := lm.GetLogger(ComponentSim)
	require.NoError(t, err)
	assert.NotSame(t, a, c, "После Reset логгер создаётся заново")
	assert.Equal(t, 2, created)
}

func TestLoggerManager_Fallback(t *testing.T) {
	lm := NewLoggerManager(func(string) (*Logger, error) {
		return nil, errors.New("нет диска")
	})

	_, err := lm.GetLogger(ComponentWorld)
	assert.ErrorContains(t, err, ComponentWorld)

	l := lm.MustGetLogger(ComponentWorld)
	require.NotNil(t, l, "При ошибке должен возвращаться консольный логгер")
	assert.Equal(t, ComponentWorld, l.component)
}

func TestComponentLoggers_ShareDefaultOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)
	SetLevel(DEBUG)
	defer SetLevel(INFO)

	GetSimLogger().Debug("шаг %d", 7)
	GetWorldLogger().Info("мир готов")
	GetSimLogger().LogPlayerMovement(3, 0, 1, 0, 0.5, 1, 0)

	out := buf.String()
	assert.Contains(t, out, "[DEBUG] [sim] шаг 7")
	assert.Contains(t, out, "[INFO] [world] мир готов")
	assert.NotContains(t, out, "Tick 3 movement", "TRACE ниже порога DEBUG")

	SetLevel(WARN)
	buf.Reset()
	GetSimLogger().Info("скрыто")
	assert.Empty(t, buf.String(), "Уровень глобального логгера применяется к компонентам")
}
