package analyzer

import (
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var stripPolicy = bluemonday.StrictPolicy()

// DecodeProfile builds a profile from an untyped JSON object posted by the admin UI.
// Fields of the wrong type are coerced to their zero value instead of rejected, so the
// only error is a payload that is not a JSON object.
func DecodeProfile(data []byte) (PageSeoProfile, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return PageSeoProfile{}, fmt.Errorf("profile must be a JSON object: %w", err)
	}
	if raw == nil {
		return PageSeoProfile{}, fmt.Errorf("profile must be a JSON object")
	}
	return ProfileFromMap(raw), nil
}

// ProfileFromMap coerces a decoded JSON object into a profile.
func ProfileFromMap(m map[string]any) PageSeoProfile {
	p := PageSeoProfile{
		Slug:             asString(m["slug"]),
		Title:            asString(m["title"]),
		Description:      asString(m["description"]),
		FocusKeyword:     asString(m["focusKeyword"]),
		Keywords:         asList(m["keywords"]),
		SchemaType:       asString(m["schemaType"]),
		Canonical:        asString(m["canonical"]),
		Noindex:          asBool(m["noindex"]),
		OGTitle:          asString(m["ogTitle"]),
		OGDescription:    asString(m["ogDescription"]),
		OGImage:          asString(m["ogImage"]),
		HasFAQ:           asBool(m["hasFaq"]),
		PageFAQs:         asFAQs(m["pageFaqs"]),
		HasVideo:         asBool(m["hasVideo"]),
		VideoURL:         asString(m["videoUrl"]),
		HasInternalLinks: asBool(m["hasInternalLinks"]),
		InternalLinks:    asList(m["internalLinks"]),
		HasTOC:           asBool(m["hasToc"]),
		PageContent:      PlainText(asString(m["pageContent"])),
	}
	return p
}

// NormalizeSlug turns a URL path into the slug profiles are stored under:
// surrounding whitespace and slashes go, and the site root becomes "/".
func NormalizeSlug(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if trimmed := strings.Trim(s, "/"); trimmed != "" {
		return trimmed
	}
	return "/"
}

// PlainText strips markup from rich-text content, keeping the words.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	// keep block boundaries as word boundaries before the tags go away
	s = strings.NewReplacer("<", " <", ">", "> ").Replace(s)
	return strings.Join(strings.Fields(html.UnescapeString(stripPolicy.Sanitize(s))), " ")
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && parsed
	case float64:
		return b == 1
	}
	return false
}

// asList accepts a JSON array or a comma separated string.
func asList(v any) []string {
	var out []string
	switch l := v.(type) {
	case string:
		for _, part := range strings.Split(l, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	case []any:
		for _, item := range l {
			if s := strings.TrimSpace(asString(item)); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func asFAQs(v any) []FAQ {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []FAQ
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		f := FAQ{Question: asString(m["question"]), Answer: asString(m["answer"])}
		if f.Question == "" && f.Answer == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}
