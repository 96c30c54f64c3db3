package banter

import (
	"regexp"
	"strconv"
)

var (
	numberPattern  = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	urlPattern     = regexp.MustCompile(`https?://\S+`)
	emailPattern   = regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)
	mentionPattern = regexp.MustCompile(`(?:^|\s)@(\w+)`)
)

// Entities are the simple named things found in a message.
type Entities struct {
	Numbers  []float64 `json:"numbers,omitempty"`
	URLs     []string  `json:"urls,omitempty"`
	Emails   []string  `json:"emails,omitempty"`
	Mentions []string  `json:"mentions,omitempty"`
}

// Empty reports whether nothing was extracted.
func (e Entities) Empty() bool {
	return len(e.Numbers) == 0 && len(e.URLs) == 0 && len(e.Emails) == 0 && len(e.Mentions) == 0
}

// ExtractEntities pulls numbers, URLs, e-mail addresses and @mentions out of
// raw (not normalized) text.
func ExtractEntities(text string) Entities {
	var e Entities

	for _, match := range numberPattern.FindAllString(text, -1) {
		if n, err := strconv.ParseFloat(match, 64); err == nil {
			e.Numbers = append(e.Numbers, n)
		}
	}
	e.URLs = urlPattern.FindAllString(text, -1)
	e.Emails = emailPattern.FindAllString(text, -1)
	for _, match := range mentionPattern.FindAllStringSubmatch(text, -1) {
		e.Mentions = append(e.Mentions, match[1])
	}

	return e
}
