package analyzer

import (
	"regexp"
	"strings"
)

// Optimal keyword density, in percent, inclusive on both ends.
const (
	DensityMin = 1.0
	DensityMax = 3.0
)

// KeywordDensity measures how often keyword occurs in content.
//
// Two counts are taken: whitespace tokens containing the keyword, and phrase
// matches of the whole keyword. The larger one wins, so multi-word keywords are
// still counted.
func KeywordDensity(content, keyword string) Density {
	keyword = strings.TrimSpace(keyword)
	d := Density{Keyword: keyword, Band: DensityNone}

	tokens := strings.Fields(content)
	d.Tokens = len(tokens)
	if keyword == "" || d.Tokens == 0 {
		return d
	}

	lower := strings.ToLower(keyword)
	tokenHits := 0
	for _, tok := range tokens {
		if strings.Contains(strings.ToLower(tok), lower) {
			tokenHits++
		}
	}

	phrase := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(keyword))
	phraseHits := len(phrase.FindAllStringIndex(content, -1))

	d.Count = max(tokenHits, phraseHits)
	// multiply before dividing so exact boundaries like 1/100 stay exact
	d.Percent = float64(100*d.Count) / float64(d.Tokens)
	d.Band = densityBand(d.Percent)
	return d
}

func densityBand(percent float64) DensityBand {
	switch {
	case percent < DensityMin:
		return DensityTooLow
	case percent > DensityMax:
		return DensityTooHigh
	default:
		return DensityOptimal
	}
}
