package resolver

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Quality tags recognised in candidate titles
const (
	Quality720p  = "720p"
	Quality1080p = "1080p"
)

// Candidate is one search hit
type Candidate struct {
	Title     string
	Reference string
}

// Selection is the chosen candidate plus what was inferred about it
type Selection struct {
	Candidate
	QualityTag      string
	LanguageMatched bool
	Tier            int
}

// fold normalises s for case-insensitive substring matching. Casers carry
// state, so one is created per call.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// QualityTag returns the quality inferred from a title, or ""
func QualityTag(title string) string {
	switch t := fold(title); {
	case strings.Contains(t, Quality720p):
		return Quality720p
	case strings.Contains(t, Quality1080p):
		return Quality1080p
	default:
		return ""
	}
}

// MatchesLanguage reports whether the language token occurs in the title.
// An empty token never matches.
func MatchesLanguage(title, language string) bool {
	language = strings.TrimSpace(language)
	if language == "" {
		return false
	}
	return strings.Contains(fold(title), fold(language))
}

type tier struct {
	language bool
	quality  string
}

// selectionTiers lists the preference order, best first
var selectionTiers = []tier{
	{language: true, quality: Quality720p},
	{language: true, quality: Quality1080p},
	{language: true},
	{quality: Quality720p},
	{quality: Quality1080p},
	{},
}

func (t tier) accepts(title, language string) bool {
	if t.language && !MatchesLanguage(title, language) {
		return false
	}
	if t.quality != "" && !strings.Contains(fold(title), t.quality) {
		return false
	}
	return true
}

// SelectCandidate picks one candidate using the fixed six-tier precedence:
// language+720p, language+1080p, language, 720p, 1080p, anything. Within a tier
// the first candidate in list order wins. Candidates without a reference are
// never selected.
func SelectCandidate(candidates []Candidate, language string) (Selection, bool) {
	for i, t := range selectionTiers {
		for _, c := range candidates {
			if strings.TrimSpace(c.Reference) == "" {
				continue
			}
			if !t.accepts(c.Title, language) {
				continue
			}
			quality := t.quality
			if quality == "" {
				quality = QualityTag(c.Title)
			}
			return Selection{
				Candidate:       c,
				QualityTag:      quality,
				LanguageMatched: MatchesLanguage(c.Title, language),
				Tier:            i + 1,
			}, true
		}
	}
	return Selection{}, false
}
