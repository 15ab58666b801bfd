package analyzer

// Status is the outcome of a single check
type Status string

const (
	StatusOK    Status = "ok"
	StatusWarn  Status = "warn"
	StatusError Status = "error"
)

// Band is the color banding of the overall score
type Band string

const (
	BandGood     Band = "good"
	BandWarn     Band = "warn"
	BandCritical Band = "critical"
)

// FAQ is a question/answer pair shown on a page
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// PageSeoProfile holds the SEO metadata and content of one page, keyed by slug
type PageSeoProfile struct {
	Slug             string   `json:"slug"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	FocusKeyword     string   `json:"focusKeyword"`
	Keywords         []string `json:"keywords"`
	SchemaType       string   `json:"schemaType"`
	Canonical        string   `json:"canonical"`
	Noindex          bool     `json:"noindex"`
	OGTitle          string   `json:"ogTitle"`
	OGDescription    string   `json:"ogDescription"`
	OGImage          string   `json:"ogImage"`
	HasFAQ           bool     `json:"hasFaq"`
	PageFAQs         []FAQ    `json:"pageFaqs"`
	HasVideo         bool     `json:"hasVideo"`
	VideoURL         string   `json:"videoUrl"`
	HasInternalLinks bool     `json:"hasInternalLinks"`
	InternalLinks    []string `json:"internalLinks"`
	HasTOC           bool     `json:"hasToc"`
	PageContent      string   `json:"pageContent"`
}

// Item is one line of the checklist rendered by the admin UI
type Item struct {
	Label  string `json:"label"`
	Status Status `json:"status"`
	Hint   string `json:"hint,omitempty"`
}

// Category groups the checks of one rubric section
type Category struct {
	Name     string `json:"name"`
	Score    int    `json:"score"`
	MaxScore int    `json:"maxScore"`
	Items    []Item `json:"items"`
}

// AnalysisResult is derived from a profile snapshot and never stored
type AnalysisResult struct {
	Score      int        `json:"score"`
	Band       Band       `json:"band"`
	Categories []Category `json:"categories"`
	Density    Density    `json:"density"`
}

// DensityBand classifies a keyword density percentage
type DensityBand string

const (
	DensityNone    DensityBand = "none"
	DensityTooLow  DensityBand = "too_low"
	DensityOptimal DensityBand = "optimal"
	DensityTooHigh DensityBand = "too_high"
)

// Density is the focus keyword density of the page content
type Density struct {
	Keyword string      `json:"keyword"`
	Count   int         `json:"count"`
	Tokens  int         `json:"tokens"`
	Percent float64     `json:"percent"`
	Band    DensityBand `json:"band"`
}

// AuditReport is the analysis of a live page
type AuditReport struct {
	URL       string         `json:"url"`
	Profile   PageSeoProfile `json:"profile"`
	Analysis  AnalysisResult `json:"analysis"`
	PageSize  int            `json:"pageSize"`
	LoadTime  int            `json:"loadTime"`
	FetchedAt int64          `json:"fetchedAt"`
}
