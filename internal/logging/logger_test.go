package logging

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, cats map[string]bool) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	Initialize(zap.New(core), cats)
	t.Cleanup(Reset)
	return logs
}

func TestGet_NoopBeforeInitialize(t *testing.T) {
	Reset()
	l := Get(CategoryRule)
	assert.Equal(t, CategoryRule, l.Category())
	// Must not panic
	l.Debug("nothing %d", 1)
	l.With("k", "v").Error("still nothing")
	Sync()
}

func TestGet_NamesLoggerAfterCategory(t *testing.T) {
	logs := observe(t, nil)

	Get(CategorySyntax).Info("parsed %s", "core.py")

	entries := logs.FilterMessage("parsed core.py").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "syntax", entries[0].LoggerName)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
}

func TestCategoryToggles(t *testing.T) {
	logs := observe(t, map[string]bool{"rule": false, "guard": true})

	assert.False(t, IsCategoryEnabled(CategoryRule))
	assert.True(t, IsCategoryEnabled(CategoryGuard))
	assert.True(t, IsCategoryEnabled(CategorySource), "unlisted categories default to enabled")

	Rule("dropped")
	Guard("kept")

	assert.Equal(t, 0, logs.FilterMessage("dropped").Len())
	assert.Equal(t, 1, logs.FilterMessage("kept").Len())
}

func TestWith_AttachesFields(t *testing.T) {
	logs := observe(t, nil)

	Get(CategoryGuard).With("case", "api.core/api.file").Warn("violation")

	entries := logs.FilterMessage("violation").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "api.core/api.file", entries[0].ContextMap()["case"])
}

func TestGet_ConcurrentAccess(t *testing.T) {
	observe(t, nil)

	var wg sync.WaitGroup
	got := make([]*Logger, 32)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = Get(CategorySource)
		}(i)
	}
	wg.Wait()

	for _, l := range got[1:] {
		assert.Same(t, got[0], l)
	}
}

func TestBuild(t *testing.T) {
	tests := []struct {
		level, format string
		wantErr       bool
	}{
		{"debug", "text", false},
		{"", "", false},
		{"warning", "json", false},
		{"ERROR", "json", false},
		{"chatty", "text", true},
	}
	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			l, err := Build(tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}
