package analyzer

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Category weights. They sum to 100.
const (
	TechnicalMax = 20
	OnPageMax    = 35
	SocialMax    = 20
	StrategyMax  = 25
)

// Length bands, in characters. Two threshold sets existed for these checks; this one is
// authoritative pending product confirmation.
const (
	TitleMinLen       = 50
	TitleMaxLen       = 60
	DescriptionMinLen = 140
	DescriptionMaxLen = 160
	MinKeywords       = 5
)

var (
	ctaPattern = regexp.MustCompile(`(?i)scopri|contatta|richiedi|ottieni|inizia`)

	// characters that only show up in a slug when a query string leaked into it
	slugArtifacts = "?&=#"
)

// Analyze scores a profile snapshot. It never fails: missing fields count as absent.
func Analyze(p PageSeoProfile) AnalysisResult {
	categories := []Category{
		technicalCategory(p),
		onPageCategory(p),
		socialCategory(p),
		strategyCategory(p),
	}

	total, possible := 0, 0
	for _, c := range categories {
		total += c.Score
		possible += c.MaxScore
	}

	score := 0
	if possible > 0 {
		score = int(math.Round(100 * float64(total) / float64(possible)))
	}

	return AnalysisResult{
		Score:      score,
		Band:       BandFor(score),
		Categories: categories,
		Density:    KeywordDensity(p.PageContent, p.FocusKeyword),
	}
}

// BandFor maps a 0-100 score to its color band
func BandFor(score int) Band {
	switch {
	case score >= 80:
		return BandGood
	case score >= 50:
		return BandWarn
	default:
		return BandCritical
	}
}

func technicalCategory(p PageSeoProfile) Category {
	c := Category{Name: "Technical foundation", MaxScore: TechnicalMax}

	slug := strings.TrimSpace(p.Slug)
	switch {
	case slug == "":
		c.add(0, Item{Label: "Clean URL", Status: StatusError, Hint: "The page has no slug"})
	case strings.ContainsAny(slug, slugArtifacts):
		c.add(0, Item{Label: "Clean URL", Status: StatusWarn, Hint: "Remove query-string parameters from the slug"})
	default:
		c.add(5, Item{Label: "Clean URL", Status: StatusOK})
	}

	c.add(5, Item{Label: "HTTPS", Status: StatusOK})

	if isSet(p.SchemaType) {
		c.add(10, Item{Label: "Structured data (" + strings.TrimSpace(p.SchemaType) + ")", Status: StatusOK})
	} else {
		c.add(0, Item{Label: "Structured data", Status: StatusError, Hint: "Pick a schema type such as Organization or Service"})
	}

	if p.Noindex {
		c.add(0, Item{Label: "Indexing", Status: StatusWarn, Hint: "noindex is set: search engines will skip this page"})
	}
	return c
}

func onPageCategory(p PageSeoProfile) Category {
	c := Category{Name: "On-page", MaxScore: OnPageMax}
	keyword := strings.TrimSpace(p.FocusKeyword)

	if keyword == "" {
		c.add(0, Item{Label: "Focus keyword", Status: StatusWarn, Hint: "Set a focus keyword to enable placement and density checks"})
	}

	titleLen := runeLen(p.Title)
	switch {
	case titleLen == 0:
		c.add(0, Item{Label: "Title", Status: StatusError, Hint: "Add a title"})
	case titleLen >= TitleMinLen && titleLen <= TitleMaxLen:
		c.add(10, Item{Label: fmt.Sprintf("Title length (%d)", titleLen), Status: StatusOK})
	default:
		c.add(5, Item{
			Label:  fmt.Sprintf("Title length (%d)", titleLen),
			Status: StatusWarn,
			Hint:   fmt.Sprintf("Keep the title between %d and %d characters", TitleMinLen, TitleMaxLen),
		})
	}
	if titleLen > 0 && keyword != "" && !containsFold(p.Title, keyword) {
		c.add(0, Item{Label: "Keyword in title", Status: StatusWarn, Hint: "Use \"" + keyword + "\" in the title"})
	}

	descLen := runeLen(p.Description)
	switch {
	case descLen == 0:
		c.add(0, Item{Label: "Meta description", Status: StatusError, Hint: "Add a meta description"})
	case descLen >= DescriptionMinLen && descLen <= DescriptionMaxLen:
		c.add(10, Item{Label: fmt.Sprintf("Meta description length (%d)", descLen), Status: StatusOK})
	default:
		c.add(5, Item{
			Label:  fmt.Sprintf("Meta description length (%d)", descLen),
			Status: StatusWarn,
			Hint:   fmt.Sprintf("Keep the description between %d and %d characters", DescriptionMinLen, DescriptionMaxLen),
		})
	}
	if descLen > 0 && keyword != "" && !containsFold(p.Description, keyword) {
		c.add(0, Item{Label: "Keyword in description", Status: StatusWarn, Hint: "Use \"" + keyword + "\" in the description"})
	}

	if ctaPattern.MatchString(p.Description) {
		c.add(5, Item{Label: "Call to action", Status: StatusOK})
	} else {
		c.add(0, Item{Label: "Call to action", Status: StatusWarn, Hint: "Start the description with scopri, contatta, richiedi, ottieni or inizia"})
	}

	n := countKeywords(p.Keywords)
	switch {
	case n >= MinKeywords:
		c.add(10, Item{Label: fmt.Sprintf("Keywords (%d)", n), Status: StatusOK})
	case n > 0:
		c.add(5, Item{Label: fmt.Sprintf("Keywords (%d)", n), Status: StatusWarn, Hint: fmt.Sprintf("List at least %d keywords", MinKeywords)})
	default:
		c.add(0, Item{Label: "Keywords", Status: StatusError, Hint: "List the secondary keywords"})
	}
	return c
}

func socialCategory(p PageSeoProfile) Category {
	c := Category{Name: "Social", MaxScore: SocialMax}
	c.flag(isSet(p.OGTitle), 5, "og:title", "Set an Open Graph title")
	c.flag(isSet(p.OGDescription), 5, "og:description", "Set an Open Graph description")
	c.flag(isSet(p.OGImage), 10, "og:image", "Set a sharing image")
	return c
}

func strategyCategory(p PageSeoProfile) Category {
	c := Category{Name: "Strategy signals", MaxScore: StrategyMax}

	c.flag(p.HasFAQ, 8, "FAQ section", "Add an FAQ section")
	if p.HasFAQ && len(validFAQs(p.PageFAQs)) == 0 {
		c.add(0, Item{Label: "FAQ entries", Status: StatusWarn, Hint: "The FAQ section has no questions"})
	}

	c.flag(p.HasVideo, 7, "Video", "Embed a video")
	if p.HasVideo && !isSet(p.VideoURL) {
		c.add(0, Item{Label: "Video URL", Status: StatusWarn, Hint: "The video flag is on but no URL is set"})
	}

	c.flag(p.HasInternalLinks, 5, "Internal links", "Link related pages")
	if p.HasInternalLinks && countKeywords(p.InternalLinks) == 0 {
		c.add(0, Item{Label: "Internal link targets", Status: StatusWarn, Hint: "List the linked pages"})
	}

	c.flag(p.HasTOC, 5, "Table of contents", "Add a table of contents")
	return c
}

func (c *Category) add(points int, item Item) {
	c.Score += points
	if c.Score > c.MaxScore {
		c.Score = c.MaxScore
	}
	c.Items = append(c.Items, item)
}

func (c *Category) flag(present bool, points int, label, hint string) {
	if present {
		c.add(points, Item{Label: label, Status: StatusOK})
		return
	}
	c.add(0, Item{Label: label, Status: StatusError, Hint: hint})
}

func isSet(s string) bool {
	return strings.TrimSpace(s) != ""
}

func runeLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func countKeywords(list []string) int {
	n := 0
	for _, k := range list {
		if isSet(k) {
			n++
		}
	}
	return n
}

func validFAQs(faqs []FAQ) []FAQ {
	var out []FAQ
	for _, f := range faqs {
		if isSet(f.Question) && isSet(f.Answer) {
			out = append(out, f)
		}
	}
	return out
}
