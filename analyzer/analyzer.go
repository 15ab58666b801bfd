package analyzer

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"github.com/seo-optimizer/seoengine/stats"
)

const userAgent = "SEOEngine/1.0"

// maxPageBytes bounds how much of a page is read
const maxPageBytes = 10 << 20

var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// Cache entry with expiration
type cacheEntry struct {
	report    *AuditReport
	timestamp time.Time
}

// CacheStats provides statistics about the auditor's cache
type CacheStats struct {
	Entries  int           `json:"entries"`
	Hits     int           `json:"hits"`
	Misses   int           `json:"misses"`
	CacheTTL time.Duration `json:"cacheTTL"`
}

// Auditor fetches live pages, extracts their SEO profile and scores it
type Auditor struct {
	client          *http.Client
	timeout         time.Duration
	cache           map[string]cacheEntry
	cacheMutex      sync.RWMutex
	cacheTTL        time.Duration
	maxCacheSize    int
	lastCleanup     time.Time
	cleanupInterval time.Duration
	stats           *stats.Storage
	logger          *zap.Logger
}

// Option configures an Auditor
type Option func(*Auditor)

// WithTimeout bounds a whole audit, fetch and parse included
func WithTimeout(d time.Duration) Option {
	return func(a *Auditor) {
		a.timeout = d
	}
}

// WithCacheTTL sets how long audit reports are reused
func WithCacheTTL(ttl time.Duration) Option {
	return func(a *Auditor) {
		a.cacheTTL = ttl
	}
}

// WithMaxCacheSize caps the number of cached reports
func WithMaxCacheSize(n int) Option {
	return func(a *Auditor) {
		a.maxCacheSize = n
	}
}

// WithHTTPClient replaces the default pooled client
func WithHTTPClient(c *http.Client) Option {
	return func(a *Auditor) {
		a.client = c
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(a *Auditor) {
		a.logger = l
	}
}

// NewAuditor creates an Auditor. statsStorage may be nil.
func NewAuditor(statsStorage *stats.Storage, opts ...Option) *Auditor {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	a := &Auditor{
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: transport,
		},
		timeout:         30 * time.Second,
		cache:           make(map[string]cacheEntry),
		cacheTTL:        30 * time.Minute,
		maxCacheSize:    1000,
		cleanupInterval: 5 * time.Minute,
		lastCleanup:     time.Now(),
		stats:           statsStorage,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// cleanup removes expired entries and enforces the size limit. Callers hold cacheMutex.
func (a *Auditor) cleanup() {
	now := time.Now()
	for key, entry := range a.cache {
		if now.Sub(entry.timestamp) > a.cacheTTL {
			delete(a.cache, key)
		}
	}

	if len(a.cache) > a.maxCacheSize {
		type aged struct {
			key       string
			timestamp time.Time
		}
		entries := make([]aged, 0, len(a.cache))
		for key, entry := range a.cache {
			entries = append(entries, aged{key, entry.timestamp})
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].timestamp.Before(entries[j].timestamp)
		})
		for i := 0; i < len(entries)-a.maxCacheSize; i++ {
			delete(a.cache, entries[i].key)
		}
	}
	a.lastCleanup = now
}

// ClearCache drops all cached reports
func (a *Auditor) ClearCache() {
	a.cacheMutex.Lock()
	defer a.cacheMutex.Unlock()
	a.cache = make(map[string]cacheEntry)
}

func generateCacheKey(pageURL, keyword string) string {
	hash := md5.Sum([]byte(pageURL + "\x00" + strings.ToLower(strings.TrimSpace(keyword))))
	return hex.EncodeToString(hash[:])
}

// GetCacheStats returns statistics about the cache
func (a *Auditor) GetCacheStats() CacheStats {
	var current stats.MonthlyStats
	if a.stats != nil {
		current = a.stats.GetCurrentStats()
	}

	a.cacheMutex.RLock()
	defer a.cacheMutex.RUnlock()
	return CacheStats{
		Entries:  len(a.cache),
		Hits:     current.AuditCacheHits,
		Misses:   current.AuditCacheMisses,
		CacheTTL: a.cacheTTL,
	}
}

// IsCached reports whether a fresh report exists for the URL and keyword
func (a *Auditor) IsCached(pageURL, keyword string) bool {
	a.cacheMutex.RLock()
	defer a.cacheMutex.RUnlock()

	entry, found := a.cache[generateCacheKey(pageURL, keyword)]
	return found && time.Since(entry.timestamp) < a.cacheTTL
}

// Audit fetches pageURL and scores the profile found in its HTML
func (a *Auditor) Audit(ctx context.Context, pageURL, focusKeyword string) (*AuditReport, error) {
	cacheKey := generateCacheKey(pageURL, focusKeyword)

	a.cacheMutex.RLock()
	if entry, found := a.cache[cacheKey]; found && time.Since(entry.timestamp) < a.cacheTTL {
		a.cacheMutex.RUnlock()
		a.count(stats.AuditCacheHits)
		return entry.report, nil
	}
	a.cacheMutex.RUnlock()
	a.count(stats.AuditCacheMisses)

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	report, err := a.audit(ctx, pageURL, focusKeyword)
	if err != nil {
		a.logger.Warn("audit failed", zap.String("url", pageURL), zap.Error(err))
		return nil, err
	}
	a.count(stats.Audits)

	a.cacheMutex.Lock()
	a.cache[cacheKey] = cacheEntry{report: report, timestamp: time.Now()}
	if len(a.cache) > a.maxCacheSize || time.Since(a.lastCleanup) > a.cleanupInterval {
		a.cleanup()
	}
	a.cacheMutex.Unlock()

	return report, nil
}

func (a *Auditor) audit(ctx context.Context, pageURL, focusKeyword string) (*AuditReport, error) {
	start := time.Now()

	base, err := url.Parse(pageURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("invalid URL: %q", pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch page: unexpected status %d", resp.StatusCode)
	}

	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	if _, err := io.Copy(buf, io.LimitReader(resp.Body, maxPageBytes)); err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	loadTime := time.Since(start)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	profile := ExtractProfile(doc, base)
	profile.FocusKeyword = strings.TrimSpace(focusKeyword)
	profile.PageContent = mainText(buf.Bytes(), base, doc)

	return &AuditReport{
		URL:       pageURL,
		Profile:   profile,
		Analysis:  Analyze(profile),
		PageSize:  buf.Len(),
		LoadTime:  int(loadTime.Milliseconds()),
		FetchedAt: time.Now().Unix(),
	}, nil
}

func (a *Auditor) count(c stats.Counter) {
	if a.stats != nil {
		a.stats.Increment(c, 1)
	}
}

// mainText prefers the readable article body and falls back to all body text.
func mainText(page []byte, base *url.URL, doc *goquery.Document) string {
	article, err := readability.FromReader(bytes.NewReader(page), base)
	if err == nil {
		if text := strings.TrimSpace(article.TextContent); text != "" {
			return strings.Join(strings.Fields(text), " ")
		}
	}
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(body.Text()), " ")
}

// ExtractProfile reads the SEO profile out of a parsed page. base is the page URL.
func ExtractProfile(doc *goquery.Document, base *url.URL) PageSeoProfile {
	p := PageSeoProfile{
		Slug:          NormalizeSlug(base.RequestURI()),
		Title:         strings.TrimSpace(doc.Find("title").First().Text()),
		Description:   metaContent(doc, "meta[name='description']"),
		Keywords:      asList(metaContent(doc, "meta[name='keywords']")),
		OGTitle:       metaContent(doc, "meta[property='og:title']"),
		OGDescription: metaContent(doc, "meta[property='og:description']"),
		OGImage:       metaContent(doc, "meta[property='og:image']"),
	}
	if base.Fragment != "" {
		p.Slug += "#" + base.Fragment
	}

	if href, ok := doc.Find("link[rel='canonical']").First().Attr("href"); ok {
		p.Canonical = resolve(base, href)
	}
	p.Noindex = strings.Contains(strings.ToLower(metaContent(doc, "meta[name='robots']")), "noindex")

	types, faqs := structuredData(doc)
	for _, t := range types {
		if t != "FAQPage" {
			p.SchemaType = t
			break
		}
	}
	if p.SchemaType == "" && len(types) > 0 {
		p.SchemaType = types[0]
	}

	if len(faqs) == 0 {
		doc.Find("details").Each(func(_ int, s *goquery.Selection) {
			summary := s.Find("summary").First()
			q := strings.TrimSpace(summary.Text())
			answer := s.Clone()
			answer.Find("summary").Remove()
			ans := strings.Join(strings.Fields(answer.Text()), " ")
			if q != "" && ans != "" {
				faqs = append(faqs, FAQ{Question: q, Answer: ans})
			}
		})
	}
	p.PageFAQs = faqs
	p.HasFAQ = len(faqs) > 0

	p.VideoURL = videoSource(doc, base)
	p.HasVideo = p.VideoURL != ""

	p.InternalLinks = internalLinks(doc, base)
	p.HasInternalLinks = len(p.InternalLinks) > 0

	p.HasTOC = doc.Find("#toc, .toc, .table-of-contents, [data-toc]").Length() > 0

	return p
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// structuredData collects JSON-LD @type values and FAQPage entries.
func structuredData(doc *goquery.Document) ([]string, []FAQ) {
	var types []string
	var faqs []FAQ

	var walk func(v any)
	walk = func(v any) {
		switch node := v.(type) {
		case []any:
			for _, item := range node {
				walk(item)
			}
		case map[string]any:
			nodeTypes := ldTypes(node["@type"])
			types = append(types, nodeTypes...)
			for _, t := range nodeTypes {
				if t == "FAQPage" {
					faqs = append(faqs, ldFAQs(node["mainEntity"])...)
				}
			}
			if graph, ok := node["@graph"]; ok {
				walk(graph)
			}
		}
	}

	doc.Find("script[type='application/ld+json']").Each(func(_ int, s *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return
		}
		walk(v)
	})
	return types, faqs
}

func ldTypes(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func ldFAQs(v any) []FAQ {
	var entries []any
	switch e := v.(type) {
	case []any:
		entries = e
	case map[string]any:
		entries = []any{e}
	}

	var faqs []FAQ
	for _, entry := range entries {
		q, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		answer, _ := q["acceptedAnswer"].(map[string]any)
		f := FAQ{Question: asString(q["name"]), Answer: PlainText(asString(answer["text"]))}
		if f.Question != "" {
			faqs = append(faqs, f)
		}
	}
	return faqs
}

func videoSource(doc *goquery.Document, base *url.URL) string {
	var src string
	doc.Find("iframe[src], video[src], video source[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("src")
		if goquery.NodeName(s) == "iframe" {
			lower := strings.ToLower(v)
			if !strings.Contains(lower, "youtube") && !strings.Contains(lower, "youtu.be") && !strings.Contains(lower, "vimeo") {
				return true
			}
		}
		src = resolve(base, v)
		return src == ""
	})
	return src
}

func internalLinks(doc *goquery.Document, base *url.URL) []string {
	seen := make(map[string]bool)
	self := strings.TrimSuffix(base.Path, "/")

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		target := base.ResolveReference(ref)
		if !strings.EqualFold(target.Host, base.Host) {
			return
		}
		target.Fragment = ""
		if strings.TrimSuffix(target.Path, "/") == self && target.RawQuery == "" {
			return
		}
		key := target.String()
		if seen[key] {
			return
		}
		seen[key] = true
		links = append(links, key)
	})
	return links
}
