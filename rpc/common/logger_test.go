package common

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for concurrent writers
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestParseLogLevels(t *testing.T) {
	tests := []struct {
		spec      string
		def       logger.LogLevel
		overrides map[string]logger.LogLevel
	}{
		{"", logger.INFO, map[string]logger.LogLevel{}},
		{"debug", logger.DEBUG, map[string]logger.LogLevel{}},
		{"WARN", logger.WARNING, map[string]logger.LogLevel{}},
		{"warn,transport=debug", logger.WARNING, map[string]logger.LogLevel{"transport": logger.DEBUG}},
		{" pool=error , info ,cache=debug", logger.INFO, map[string]logger.LogLevel{"pool": logger.ERROR, "cache": logger.DEBUG}},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			lv, err := ParseLogLevels(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.def, lv.Default)
			assert.Equal(t, tt.overrides, lv.Overrides)
		})
	}

	for _, spec := range []string{"loud", "info,transport=loud", "info,raft=debug", "=debug"} {
		_, err := ParseLogLevels(spec)
		assert.Error(t, err, spec)
	}
}

func TestLogLevels_For(t *testing.T) {
	lv := LogLevels{Default: logger.WARNING, Overrides: map[string]logger.LogLevel{"pool": logger.DEBUG}}
	assert.Equal(t, logger.DEBUG, lv.For("pool"))
	assert.Equal(t, logger.WARNING, lv.For("server"))
}

func TestInitLoggers(t *testing.T) {
	var out, errOut syncBuffer
	restore := SetLogOutput(&out, &errOut)
	defer restore()

	require.NoError(t, InitLoggers("info,cache=debug"))
	defer func() { _ = InitLoggers("info") }()

	logger.GetLogger("cache").Debugf("cache %d", 1)
	logger.GetLogger("pool").Debugf("pool %d", 2)
	logger.GetLogger("pool").Infof("pool %d", 3)
	logger.GetLogger("server").Warningf("server %d", 4)
	logger.GetLogger("client").Errorf("client %d", 5)

	assert.Contains(t, out.String(), "DEBUG [cache] cache 1")
	assert.NotContains(t, out.String(), "pool 2")
	assert.Contains(t, out.String(), "INFO  [pool] pool 3")
	assert.Equal(t, 2, strings.Count(out.String(), "\n"))

	assert.Contains(t, errOut.String(), "WARN  [server] server 4")
	assert.Contains(t, errOut.String(), "ERROR [client] client 5")

	// levels can be changed again, the factory is installed only once
	require.NoError(t, InitLoggers("error"))
	logger.GetLogger("cache").Debugf("cache %d", 6)
	assert.NotContains(t, out.String(), "cache 6")

	assert.Error(t, InitLoggers("info,nope=debug"))
}

func TestLogger_Panicf(t *testing.T) {
	var out, errOut syncBuffer
	restore := SetLogOutput(&out, &errOut)
	defer restore()

	l := CreateLogger("panic-test")
	assert.PanicsWithValue(t, "boom 7", func() { l.Panicf("boom %d", 7) })
	assert.Contains(t, errOut.String(), "CRIT  [panic-test] boom 7")
}
