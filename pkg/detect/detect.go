// Package detect classifies torrent display text into content types and
// sports categories using ordered pattern matching.
package detect

import (
	"regexp"
	"strings"

	"github.com/cehbz/torrentname"
)

// ContentType is the coarse classification of a torrent.
type ContentType string

const (
	ContentTypeMovie  ContentType = "movie"
	ContentTypeSeries ContentType = "series"
	ContentTypeSports ContentType = "sports"
)

// SportsCategory identifies a sport within sports content.
type SportsCategory string

const (
	SportsFormulaRacing    SportsCategory = "formula_racing"
	SportsAmericanFootball SportsCategory = "american_football"
	SportsBasketball       SportsCategory = "basketball"
	SportsFootball         SportsCategory = "football"
	SportsBaseball         SportsCategory = "baseball"
	SportsHockey           SportsCategory = "hockey"
	SportsFighting         SportsCategory = "fighting"
	SportsRugby            SportsCategory = "rugby"
	SportsMotoGP           SportsCategory = "motogp"
)

// categoryGroup pairs a sports category with the patterns that identify it.
type categoryGroup struct {
	category SportsCategory
	patterns []*regexp.Regexp
}

func compileAll(exprs ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		res[i] = regexp.MustCompile(`(?i)` + e)
	}
	return res
}

// sportsGroups is evaluated in order; the first group with any matching
// pattern wins. Order matters because patterns overlap: "motogp" would also
// match a generic racing pattern, so the more specific racing groups come
// before it and generic tokens live in the earliest group that owns them.
var sportsGroups = []categoryGroup{
	{SportsFormulaRacing, compileAll(`\bformula[ .]?[1234e]\b`, `\bf1\b`, `\bgrand[ .]?prix\b`, `\bnascar\b`, `\bracing\b`)},
	{SportsAmericanFootball, compileAll(`\bnfl\b`, `\bsuper[ .]?bowl\b`, `american[ .]football`, `\bncaa\b`)},
	{SportsBasketball, compileAll(`\bnba\b`, `\bwnba\b`, `basketball`, `\beuroleague\b`)},
	{SportsFootball, compileAll(`\bepl\b`, `premier[ .]league`, `\bla[ .]liga\b`, `bundesliga`, `serie[ .]a\b`, `ligue[ .]1`, `champions[ .]league`, `europa[ .]league`, `\buefa\b`, `\bfifa\b`, `world[ .]cup`, `soccer`)},
	{SportsBaseball, compileAll(`\bmlb\b`, `baseball`, `world[ .]series`)},
	{SportsHockey, compileAll(`\bnhl\b`, `hockey`, `stanley[ .]cup`)},
	{SportsFighting, compileAll(`\bufc\b`, `\bmma\b`, `boxing`, `\bwwe\b`, `\baew\b`, `wrestling`, `fight[ .]night`)},
	{SportsRugby, compileAll(`rugby`, `six[ .]nations`, `\bnrl\b`, `super[ .]rugby`)},
	{SportsMotoGP, compileAll(`motogp`, `moto[ .]gp`, `\bmoto[23]\b`, `\bwsbk\b`, `isle[ .]of[ .]man`)},
}

// seriesPatterns catch episodic markers torrentname occasionally misses
// (date-based releases, "complete" packs without an S prefix).
var seriesPatterns = compileAll(
	`\bs\d{1,2}[ .]?e\d{1,3}\b`,
	`\bseason[ .]?\d{1,2}\b`,
	`\bcomplete[ .](series|season)\b`,
	`\b\d{1,2}x\d{2}\b`,
)

// DetectContentType classifies display text as movie, series, or sports.
// Sports patterns are checked first, then episodic markers; anything else
// defaults to movie. The result is a best-effort guess the user can override.
func DetectContentType(text string) ContentType {
	if text == "" {
		return ContentTypeMovie
	}

	if DetectSportsCategory(text) != "" {
		return ContentTypeSports
	}

	for _, re := range seriesPatterns {
		if re.MatchString(text) {
			return ContentTypeSeries
		}
	}

	if parsed := torrentname.Parse(text); parsed != nil {
		if parsed.Season > 0 || parsed.Episode > 0 || parsed.IsComplete {
			return ContentTypeSeries
		}
	}

	return ContentTypeMovie
}

// DetectSportsCategory returns the sports category for the text, or empty
// when no group matches. Groups are evaluated in a fixed priority order and
// the first match wins; there is no scoring or longest-match tie-break.
func DetectSportsCategory(text string) SportsCategory {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	for _, g := range sportsGroups {
		for _, re := range g.patterns {
			if re.MatchString(text) {
				return g.category
			}
		}
	}
	return ""
}

// Valid reports whether ct is one of the known content types.
func (c ContentType) Valid() bool {
	switch c {
	case ContentTypeMovie, ContentTypeSeries, ContentTypeSports:
		return true
	}
	return false
}
