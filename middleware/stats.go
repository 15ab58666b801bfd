package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/seo-optimizer/seoengine/logging"
)

// Context keys handlers use to report what they analyzed
const (
	SlugKey  = "seo.slug"
	ScoreKey = "seo.score"
)

// persistEvery is how many analysis requests pass between statistics snapshots
const persistEvery = 100

// StatsMiddleware tracks visitors and the latency and score of analysis requests.
// Handlers mark a request as an analysis by setting ScoreKey.
func StatsMiddleware(stats *logging.Statistics, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		stats.TrackVisitor(c.ClientIP())

		c.Next()

		score, ok := c.Get(ScoreKey)
		if !ok {
			return
		}
		n, _ := score.(int)
		loadTime := float64(time.Since(start).Milliseconds())
		stats.TrackAnalysis(c.GetString(SlugKey), loadTime, n, c.Writer.Status() >= 400)

		if stats.Requests()%persistEvery == 0 {
			go func() {
				if err := stats.Save(); err != nil {
					logger.Warn("could not persist statistics", zap.Error(err))
				}
			}()
		}
	}
}
