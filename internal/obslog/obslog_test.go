package obslog

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitDefaultsToInfoWhenEnvUnset(t *testing.T) {
	os.Unsetenv("LOG_LEVEL")
	Init()
	assert.True(t, slog.Default().Enabled(nil, slog.LevelInfo))
}

func TestInitIsSafeToCallMultipleTimes(t *testing.T) {
	Init()
	Init()
	assert.NotNil(t, slog.Default())
}
