package analyzer

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

// pad extends s with trailing letters until it is n characters long.
func pad(s string, n int) string {
	if missing := n - utf8.RuneCountInString(s); missing > 0 {
		return s + strings.Repeat("a", missing)
	}
	return s
}

func fullProfile() PageSeoProfile {
	return PageSeoProfile{
		Slug:             "consulenza-seo",
		Title:            pad("Consulenza SEO per PMI ", 55),
		Description:      pad("Scopri come la nostra consulenza SEO porta clienti al tuo sito ", 150),
		FocusKeyword:     "seo",
		Keywords:         []string{"seo", "consulenza seo", "posizionamento", "google", "pmi", "audit"},
		SchemaType:       "Service",
		OGTitle:          "Consulenza SEO",
		OGDescription:    "Porta clienti al tuo sito",
		OGImage:          "https://example.com/og.png",
		HasFAQ:           true,
		PageFAQs:         []FAQ{{Question: "Quanto costa?", Answer: "Dipende."}},
		HasVideo:         true,
		VideoURL:         "https://youtube.com/watch?v=1",
		HasInternalLinks: true,
		InternalLinks:    []string{"/contatti"},
		HasTOC:           true,
		PageContent:      "La SEO serve. " + strings.Repeat("parola ", 60),
	}
}

func category(t *testing.T, r AnalysisResult, name string) Category {
	t.Helper()
	for _, c := range r.Categories {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("category %q not found", name)
	return Category{}
}

func findItem(c Category, prefix string) (Item, bool) {
	for _, it := range c.Items {
		if strings.HasPrefix(it.Label, prefix) {
			return it, true
		}
	}
	return Item{}, false
}

func TestAnalyzeFullProfileScores100(t *testing.T) {
	r := Analyze(fullProfile())

	if r.Score != 100 {
		t.Fatalf("expected score 100, got %d: %+v", r.Score, r.Categories)
	}
	if r.Band != BandGood {
		t.Errorf("expected band good, got %s", r.Band)
	}
	for _, c := range r.Categories {
		if c.Score != c.MaxScore {
			t.Errorf("%s: %d/%d", c.Name, c.Score, c.MaxScore)
		}
		for _, it := range c.Items {
			if it.Status != StatusOK {
				t.Errorf("%s: unexpected %s item %q", c.Name, it.Status, it.Label)
			}
		}
	}
}

func TestAnalyzeEmptyProfile(t *testing.T) {
	r := Analyze(PageSeoProfile{})

	if got := category(t, r, "On-page").Score; got != 0 {
		t.Errorf("on-page score = %d, want 0", got)
	}
	if got := category(t, r, "Social").Score; got != 0 {
		t.Errorf("social score = %d, want 0", got)
	}
	if got := category(t, r, "Strategy signals").Score; got != 0 {
		t.Errorf("strategy score = %d, want 0", got)
	}
	// only the flat HTTPS point survives
	if got := category(t, r, "Technical foundation").Score; got != 5 {
		t.Errorf("technical score = %d, want 5", got)
	}
	if r.Score != 5 {
		t.Errorf("score = %d, want 5", r.Score)
	}
	if r.Band != BandCritical {
		t.Errorf("band = %s, want critical", r.Band)
	}
	if r.Density.Band != DensityNone {
		t.Errorf("density band = %s, want none", r.Density.Band)
	}
}

func TestAnalyzeWeights(t *testing.T) {
	for _, p := range []PageSeoProfile{{}, fullProfile(), {Title: strings.Repeat("x", 500), Keywords: make([]string, 50)}} {
		r := Analyze(p)
		total := 0
		for _, c := range r.Categories {
			total += c.MaxScore
			if c.Score > c.MaxScore || c.Score < 0 {
				t.Errorf("%s score %d outside [0, %d]", c.Name, c.Score, c.MaxScore)
			}
		}
		if total != 100 {
			t.Errorf("max scores sum to %d", total)
		}
	}
}

func TestTitleBands(t *testing.T) {
	tests := []struct {
		name   string
		length int
		points int
		status Status
	}{
		{"missing", 0, 0, StatusError},
		{"short", 49, 5, StatusWarn},
		{"lower bound", 50, 10, StatusOK},
		{"upper bound", 60, 10, StatusOK},
		{"long", 61, 5, StatusWarn},
		{"one char", 1, 5, StatusWarn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PageSeoProfile{FocusKeyword: "seo"}
			if tt.length > 0 {
				p.Title = pad("seo", tt.length)
				if tt.length < 3 {
					p.Title = strings.Repeat("s", tt.length)
				}
			}
			c := category(t, Analyze(p), "On-page")

			base := Analyze(PageSeoProfile{FocusKeyword: "seo"})
			if got := c.Score - category(t, base, "On-page").Score; got != tt.points {
				t.Errorf("title points = %d, want %d", got, tt.points)
			}
			item, ok := findItem(c, "Title")
			if !ok {
				t.Fatal("no title item")
			}
			if item.Status != tt.status {
				t.Errorf("status = %s, want %s", item.Status, tt.status)
			}
		})
	}
}

func TestTitleWithKeywordHasNoWarnings(t *testing.T) {
	for n := TitleMinLen; n <= TitleMaxLen; n++ {
		p := PageSeoProfile{Title: pad("Agenzia SEO ", n), FocusKeyword: "seo"}
		c := category(t, Analyze(p), "On-page")
		for _, it := range c.Items {
			if strings.Contains(it.Label, "itle") && it.Status != StatusOK {
				t.Errorf("len %d: unexpected %s item %q", n, it.Status, it.Label)
			}
		}
	}
}

func TestKeywordMissingFromTitleWarns(t *testing.T) {
	p := PageSeoProfile{Title: pad("Agenzia di marketing ", 55), FocusKeyword: "seo"}
	c := category(t, Analyze(p), "On-page")

	item, ok := findItem(c, "Keyword in title")
	if !ok || item.Status != StatusWarn {
		t.Fatalf("expected warn item for keyword in title, got %+v", c.Items)
	}
	if _, ok := findItem(c, "Title length"); !ok {
		t.Fatal("title length item missing")
	}
}

func TestDescriptionBands(t *testing.T) {
	tests := []struct {
		length int
		points int
	}{
		{0, 0},
		{139, 5},
		{140, 10},
		{160, 10},
		{161, 5},
	}
	base := category(t, Analyze(PageSeoProfile{}), "On-page").Score
	for _, tt := range tests {
		p := PageSeoProfile{}
		if tt.length > 0 {
			p.Description = pad("", tt.length)
		}
		if got := category(t, Analyze(p), "On-page").Score - base; got != tt.points {
			t.Errorf("len %d: points = %d, want %d", tt.length, got, tt.points)
		}
	}
}

func TestCallToAction(t *testing.T) {
	for _, desc := range []string{"SCOPRI di più", "Contattaci oggi", "richiedi un preventivo", "Ottieni", "inizia ora"} {
		c := category(t, Analyze(PageSeoProfile{Description: desc}), "On-page")
		if item, _ := findItem(c, "Call to action"); item.Status != StatusOK {
			t.Errorf("%q: CTA not detected", desc)
		}
	}
	c := category(t, Analyze(PageSeoProfile{Description: "Una descrizione qualunque"}), "On-page")
	if item, _ := findItem(c, "Call to action"); item.Status != StatusWarn {
		t.Errorf("CTA detected where there is none")
	}
}

func TestKeywordCount(t *testing.T) {
	tests := []struct {
		keywords []string
		points   int
	}{
		{nil, 0},
		{[]string{"", "  "}, 0},
		{[]string{"a"}, 5},
		{[]string{"a", "b", "c", "d"}, 5},
		{[]string{"a", "b", "c", "d", "e"}, 10},
	}
	base := category(t, Analyze(PageSeoProfile{}), "On-page").Score
	for _, tt := range tests {
		got := category(t, Analyze(PageSeoProfile{Keywords: tt.keywords}), "On-page").Score - base
		if got != tt.points {
			t.Errorf("%v: points = %d, want %d", tt.keywords, got, tt.points)
		}
	}
}

func TestSlugArtifacts(t *testing.T) {
	tests := map[string]int{
		"":                   5,
		"servizi":            10,
		"servizi?utm=x":      5,
		"blog&page=2":        5,
		"landing#section":    5,
		"servizi/consulenza": 10,
	}
	for slug, want := range tests {
		got := category(t, Analyze(PageSeoProfile{Slug: slug}), "Technical foundation").Score
		if got != want {
			t.Errorf("%q: technical = %d, want %d", slug, got, want)
		}
	}
}

func TestOGImageAddsTenPoints(t *testing.T) {
	p := fullProfile()
	p.OGImage = ""
	without := Analyze(p)

	p.OGImage = "https://example.com/og.png"
	with := Analyze(p)

	if diff := with.Score - without.Score; diff != 10 {
		t.Errorf("og:image changed score by %d, want 10", diff)
	}
	if diff := category(t, with, "Social").Score - category(t, without, "Social").Score; diff != 10 {
		t.Errorf("og:image changed social by %d, want 10", diff)
	}
}

func TestStrategySignals(t *testing.T) {
	tests := []struct {
		profile PageSeoProfile
		points  int
	}{
		{PageSeoProfile{HasFAQ: true}, 8},
		{PageSeoProfile{HasVideo: true}, 7},
		{PageSeoProfile{HasInternalLinks: true}, 5},
		{PageSeoProfile{HasTOC: true}, 5},
	}
	for _, tt := range tests {
		if got := category(t, Analyze(tt.profile), "Strategy signals").Score; got != tt.points {
			t.Errorf("%+v: strategy = %d, want %d", tt.profile, got, tt.points)
		}
	}

	c := category(t, Analyze(PageSeoProfile{HasFAQ: true, HasVideo: true}), "Strategy signals")
	if item, ok := findItem(c, "FAQ entries"); !ok || item.Status != StatusWarn {
		t.Error("expected a warning for an FAQ flag without entries")
	}
	if item, ok := findItem(c, "Video URL"); !ok || item.Status != StatusWarn {
		t.Error("expected a warning for a video flag without URL")
	}
}

func TestNoindexWarnsWithoutPenalty(t *testing.T) {
	p := fullProfile()
	p.Noindex = true
	r := Analyze(p)
	if r.Score != 100 {
		t.Errorf("noindex changed the score to %d", r.Score)
	}
	if item, ok := findItem(category(t, r, "Technical foundation"), "Indexing"); !ok || item.Status != StatusWarn {
		t.Error("expected an indexing warning")
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	p := fullProfile()
	p.OGImage = ""
	first := Analyze(p)
	second := Analyze(p)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("results differ (-first +second):\n%s", diff)
	}
}

func TestBandFor(t *testing.T) {
	tests := map[int]Band{0: BandCritical, 49: BandCritical, 50: BandWarn, 79: BandWarn, 80: BandGood, 100: BandGood}
	for score, want := range tests {
		if got := BandFor(score); got != want {
			t.Errorf("BandFor(%d) = %s, want %s", score, got, want)
		}
	}
}
