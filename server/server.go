// Package server exposes the analyzer, the profile store and the live-page
// auditor over the admin HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/seo-optimizer/seoengine/analyzer"
	"github.com/seo-optimizer/seoengine/logging"
	"github.com/seo-optimizer/seoengine/middleware"
	"github.com/seo-optimizer/seoengine/report"
	"github.com/seo-optimizer/seoengine/stats"
	"github.com/seo-optimizer/seoengine/store"
)

// maxBodyBytes caps profile payloads; page content is the large part
const maxBodyBytes = 2 << 20

// Store is the persistence the API needs
type Store interface {
	Get(ctx context.Context, slug string) (store.Record, error)
	Save(ctx context.Context, p analyzer.PageSeoProfile, score int) (store.Record, error)
	List(ctx context.Context) ([]store.Summary, error)
	All(ctx context.Context) ([]store.Record, error)
	Delete(ctx context.Context, slug string) error
}

// Auditor scores live pages
type Auditor interface {
	Audit(ctx context.Context, pageURL, focusKeyword string) (*analyzer.AuditReport, error)
}

// Server wires handlers to their collaborators
type Server struct {
	store       Store
	auditor     Auditor
	counters    *stats.Storage
	statistics  *logging.Statistics
	rateLimiter *middleware.RateLimiter
	logger      *zap.Logger
}

// Options carries the collaborators of a Server. Counters and RateLimiter may be nil.
type Options struct {
	Store       Store
	Auditor     Auditor
	Counters    *stats.Storage
	Statistics  *logging.Statistics
	RateLimiter *middleware.RateLimiter
	Logger      *zap.Logger
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	statistics := opts.Statistics
	if statistics == nil {
		statistics, _ = logging.NewStatistics("", false)
	}
	return &Server{
		store:       opts.Store,
		auditor:     opts.Auditor,
		counters:    opts.Counters,
		statistics:  statistics,
		rateLimiter: opts.RateLimiter,
		logger:      logger,
	}
}

// Router builds the gin engine
func (s *Server) Router() *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorHandler(s.logger))
	r.Use(s.accessLog())
	r.Use(middleware.CORS())
	if s.rateLimiter != nil {
		r.Use(s.rateLimiter.RateLimit())
	}
	r.Use(middleware.StatsMiddleware(s.statistics, s.logger))

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		api.POST("/analyze", s.analyzeProfile)
		api.POST("/audit", s.auditURL)

		api.GET("/pages", s.listPages)
		// slugs are URL paths and may contain slashes
		api.GET("/pages/*slug", s.getPage)
		api.POST("/pages/*slug", s.savePage)
		api.DELETE("/pages/*slug", s.deletePage)

		api.GET("/report.xlsx", s.exportReport)

		api.GET("/statistics", func(c *gin.Context) {
			out := s.statistics.GetStatistics()
			if s.counters != nil {
				out["month"] = s.counters.GetCurrentStats()
			}
			c.JSON(http.StatusOK, out)
		})
	}
	return r
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("requestId", c.GetString(middleware.RequestIDKey)),
		)
	}
}

type pageResponse struct {
	Profile   analyzer.PageSeoProfile `json:"profile"`
	Analysis  analyzer.AnalysisResult `json:"analysis"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func (s *Server) count(counter stats.Counter) {
	if s.counters != nil {
		s.counters.Increment(counter, 1)
	}
}

// readProfile decodes the request body, coercing loosely typed fields
func readProfile(c *gin.Context) (analyzer.PageSeoProfile, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
	if err != nil {
		fail(c, http.StatusBadRequest, "could not read request body")
		return analyzer.PageSeoProfile{}, false
	}
	if len(body) > maxBodyBytes {
		fail(c, http.StatusRequestEntityTooLarge, "profile too large")
		return analyzer.PageSeoProfile{}, false
	}
	p, err := analyzer.DecodeProfile(body)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid profile: expected a JSON object")
		return analyzer.PageSeoProfile{}, false
	}
	return p, true
}

func (s *Server) analyzeProfile(c *gin.Context) {
	p, ok := readProfile(c)
	if !ok {
		return
	}
	result := analyzer.Analyze(p)
	s.count(stats.Analyses)

	c.Set(middleware.SlugKey, p.Slug)
	c.Set(middleware.ScoreKey, result.Score)
	c.JSON(http.StatusOK, result)
}

func (s *Server) auditURL(c *gin.Context) {
	var request struct {
		URL          string `json:"url" binding:"required,url"`
		FocusKeyword string `json:"focusKeyword"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		fail(c, http.StatusBadRequest, "Invalid URL provided")
		return
	}
	if u, err := url.Parse(request.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		fail(c, http.StatusBadRequest, "Invalid URL provided")
		return
	}

	rep, err := s.auditor.Audit(c.Request.Context(), request.URL, request.FocusKeyword)
	if err != nil {
		c.Set(middleware.ScoreKey, -1)
		fail(c, http.StatusBadGateway, "Failed to audit URL: "+err.Error())
		return
	}

	c.Set(middleware.SlugKey, rep.Profile.Slug)
	c.Set(middleware.ScoreKey, rep.Analysis.Score)
	c.JSON(http.StatusOK, rep)
}

func (s *Server) listPages(c *gin.Context) {
	pages, err := s.store.List(c.Request.Context())
	if err != nil {
		s.internal(c, "list pages", err)
		return
	}
	if pages == nil {
		pages = []store.Summary{}
	}
	c.JSON(http.StatusOK, pages)
}

func (s *Server) getPage(c *gin.Context) {
	slug := analyzer.NormalizeSlug(c.Param("slug"))
	rec, err := s.store.Get(c.Request.Context(), slug)
	if errors.Is(err, store.ErrNotFound) {
		fail(c, http.StatusNotFound, fmt.Sprintf("page %q not found", slug))
		return
	}
	if err != nil {
		s.internal(c, "get page", err)
		return
	}

	result := analyzer.Analyze(rec.Profile)
	s.count(stats.Analyses)
	c.Set(middleware.SlugKey, slug)
	c.Set(middleware.ScoreKey, result.Score)
	c.JSON(http.StatusOK, pageResponse{Profile: rec.Profile, Analysis: result, UpdatedAt: rec.UpdatedAt})
}

func (s *Server) savePage(c *gin.Context) {
	p, ok := readProfile(c)
	if !ok {
		return
	}
	p.Slug = analyzer.NormalizeSlug(c.Param("slug"))
	if p.Slug == "" {
		fail(c, http.StatusBadRequest, "slug is required")
		return
	}

	result := analyzer.Analyze(p)
	rec, err := s.store.Save(c.Request.Context(), p, result.Score)
	if err != nil {
		s.internal(c, "save page", err)
		return
	}
	s.count(stats.ProfileSaves)
	s.count(stats.Analyses)

	c.Set(middleware.SlugKey, p.Slug)
	c.Set(middleware.ScoreKey, result.Score)
	c.JSON(http.StatusOK, pageResponse{Profile: rec.Profile, Analysis: result, UpdatedAt: rec.UpdatedAt})
}

func (s *Server) deletePage(c *gin.Context) {
	slug := analyzer.NormalizeSlug(c.Param("slug"))
	err := s.store.Delete(c.Request.Context(), slug)
	if errors.Is(err, store.ErrNotFound) {
		fail(c, http.StatusNotFound, fmt.Sprintf("page %q not found", slug))
		return
	}
	if err != nil {
		s.internal(c, "delete page", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) exportReport(c *gin.Context) {
	records, err := s.store.All(c.Request.Context())
	if err != nil {
		s.internal(c, "load pages", err)
		return
	}
	rows := make([]report.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, report.NewRow(rec.Profile))
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="seo-report.xlsx"`)
	if err := report.Write(c.Writer, rows); err != nil {
		s.logger.Error("export failed", zap.Error(err))
	}
}

func (s *Server) internal(c *gin.Context, op string, err error) {
	s.logger.Error(op+" failed", zap.Error(err), zap.String("requestId", c.GetString(middleware.RequestIDKey)))
	fail(c, http.StatusInternalServerError, "internal error")
}
