package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

// Statistics collects request statistics for the admin API
type Statistics struct {
	UniqueVisitors   map[string]time.Time `json:"uniqueVisitors"`   // IP -> last visit
	AnalysisRequests int                  `json:"analysisRequests"` // scored profiles and audits
	ErrorCount       int                  `json:"errorCount"`
	PopularSlugs     map[string]int       `json:"popularSlugs"`    // slug -> analyses
	AverageLoadTime  float64              `json:"averageLoadTime"` // milliseconds
	AverageScore     float64              `json:"averageScore"`
	TotalLoadTime    float64              `json:"totalLoadTime"`
	TotalScore       float64              `json:"totalScore"`
	ScoredCount      int                  `json:"scoredCount"`
	LastPersisted    time.Time            `json:"lastPersisted"`

	path       string
	devMode    bool
	mutex      sync.RWMutex
	writeMutex sync.Mutex
}

// NewStatistics creates statistics persisted at path, loading any previous snapshot.
// An empty path keeps them in memory only.
func NewStatistics(path string, devMode bool) (*Statistics, error) {
	s := &Statistics{
		UniqueVisitors: make(map[string]time.Time),
		PopularSlugs:   make(map[string]int),
		LastPersisted:  time.Now(),
		path:           path,
		devMode:        devMode,
	}
	if err := s.Load(); err != nil {
		return s, err
	}
	return s, nil
}

// TrackVisitor records a unique visitor
func (s *Statistics) TrackVisitor(ip string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.UniqueVisitors[ip] = time.Now()
}

// TrackAnalysis records an analysis request. score is ignored when negative.
func (s *Statistics) TrackAnalysis(slug string, loadTime float64, score int, hasError bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.AnalysisRequests++
	if slug != "" {
		s.PopularSlugs[slug]++
	}
	if hasError {
		s.ErrorCount++
	}

	s.TotalLoadTime += loadTime
	s.AverageLoadTime = s.TotalLoadTime / float64(s.AnalysisRequests)

	if score >= 0 && !hasError {
		s.TotalScore += float64(score)
		s.ScoredCount++
		s.AverageScore = s.TotalScore / float64(s.ScoredCount)
	}
}

// Requests returns the number of tracked analysis requests
func (s *Statistics) Requests() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.AnalysisRequests
}

func (s *Statistics) uniqueVisitors24h() int {
	count := 0
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, lastVisit := range s.UniqueVisitors {
		if lastVisit.After(cutoff) {
			count++
		}
	}
	return count
}

// popularSlugs returns the n most analyzed slugs, most popular first
func (s *Statistics) popularSlugs(n int) []SlugCount {
	out := make([]SlugCount, 0, len(s.PopularSlugs))
	for slug, count := range s.PopularSlugs {
		out = append(out, SlugCount{Slug: slug, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Slug < out[j].Slug
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func (s *Statistics) errorRate() float64 {
	if s.AnalysisRequests == 0 {
		return 0
	}
	return float64(s.ErrorCount) / float64(s.AnalysisRequests) * 100
}

// SlugCount is one entry of the popular slugs ranking
type SlugCount struct {
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// Save persists the statistics to their file
func (s *Statistics) Save() error {
	if s.path == "" {
		return nil
	}

	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	s.mutex.Lock()
	s.LastPersisted = time.Now()
	data, err := json.Marshal(s)
	s.mutex.Unlock()
	if err != nil {
		return fmt.Errorf("could not encode statistics: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("could not write statistics file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("could not replace statistics file: %w", err)
	}
	return nil
}

// Load reads the statistics from their file
func (s *Statistics) Load() error {
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("could not open statistics file: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("could not decode statistics: %w", err)
	}
	if s.UniqueVisitors == nil {
		s.UniqueVisitors = make(map[string]time.Time)
	}
	if s.PopularSlugs == nil {
		s.PopularSlugs = make(map[string]int)
	}
	return nil
}

// GetStatistics returns a summary. Popular slugs are only shown in development mode.
func (s *Statistics) GetStatistics() map[string]interface{} {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	summary := map[string]interface{}{
		"uniqueVisitors24h": s.uniqueVisitors24h(),
		"totalRequests":     s.AnalysisRequests,
		"errorRate":         s.errorRate(),
		"averageLoadTime":   s.AverageLoadTime,
		"averageScore":      s.AverageScore,
	}
	if s.devMode {
		summary["popularSlugs"] = s.popularSlugs(5)
	}
	return summary
}
