package sweep

import (
	"github.com/hbollon/go-edlib"

	"github.com/bulkarr/bulkarr/internal/catalog"
	"github.com/bulkarr/bulkarr/pkg/detect"
)

// pickBestMatch selects the analyze candidate whose title is closest to the
// item title under Jaro-Winkler similarity on normalized titles. Jaro-Winkler
// favors shared prefixes, which works well for media titles. Ties keep the
// earlier candidate, preserving the catalog's own ranking.
func pickBestMatch(title string, matches []catalog.Match) (catalog.Match, bool) {
	if len(matches) == 0 {
		return catalog.Match{}, false
	}

	normalized := detect.CleanTitle(title)
	best := matches[0]
	bestScore := float32(-1)

	for _, m := range matches {
		score := edlib.JaroWinklerSimilarity(normalized, detect.CleanTitle(m.Title))
		if score > bestScore {
			best = m
			bestScore = score
		}
	}

	return best, true
}
