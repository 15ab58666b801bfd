package logging

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestTrackAnalysis(t *testing.T) {
	s, err := NewStatistics("", false)
	require.NoError(t, err)

	s.TrackVisitor("10.0.0.1")
	s.TrackVisitor("10.0.0.1")
	s.TrackVisitor("10.0.0.2")
	s.TrackAnalysis("home", 10, 80, false)
	s.TrackAnalysis("home", 30, 60, false)
	s.TrackAnalysis("blog", 20, -1, true)

	summary := s.GetStatistics()
	assert.Equal(t, 2, summary["uniqueVisitors24h"])
	assert.Equal(t, 3, summary["totalRequests"])
	assert.InDelta(t, 100.0/3, summary["errorRate"], 1e-9)
	assert.Equal(t, 20.0, summary["averageLoadTime"])
	assert.Equal(t, 70.0, summary["averageScore"])
	assert.NotContains(t, summary, "popularSlugs")
	assert.Equal(t, 3, s.Requests())
}

func TestPopularSlugsInDevMode(t *testing.T) {
	s, err := NewStatistics("", true)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		s.TrackAnalysis("servizi", 1, 50, false)
	}
	s.TrackAnalysis("home", 1, 50, false)

	popular, ok := s.GetStatistics()["popularSlugs"].([]SlugCount)
	require.True(t, ok)
	assert.Equal(t, []SlugCount{{Slug: "servizi", Count: 3}, {Slug: "home", Count: 1}}, popular)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statistics.json")

	s, err := NewStatistics(path, false)
	require.NoError(t, err)
	s.TrackAnalysis("home", 15, 90, false)
	require.NoError(t, s.Save())

	reloaded, err := NewStatistics(path, false)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Requests())
	assert.Equal(t, 90.0, reloaded.GetStatistics()["averageScore"])
}

func TestConcurrentSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statistics.json")
	s, err := NewStatistics(path, false)
	require.NoError(t, err)
	s.TrackAnalysis("home", 10, 80, false)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Save()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := NewStatistics(path, false)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Requests())
}

func TestNewLogger(t *testing.T) {
	for _, dev := range []bool{false, true} {
		logger, err := New("debug", dev)
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	}

	_, err := New("loud", false)
	assert.Error(t, err)
}
