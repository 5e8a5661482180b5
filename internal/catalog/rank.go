package catalog

import "strings"

// The weight* constants are the FTS4-style per-column weights the contract fixes:
// title outranks album outranks artist, all else equal.
const (
	weightTitle  = 1.0
	weightArtist = 0.5
	weightAlbum  = 0.75
)

// rankCandidate is a single FTS match candidate carrying the three ranked
// column values alongside the record id, used only to compute rank().
type rankCandidate struct {
	id     int64
	title  string
	author string
	album  string
}

// rank scores each candidate against term using the standard FTS4-style
// formula: for every ranked column, (hits of term in this row's column) /
// (total hits of term across all candidates' values for that column),
// weighted per column, summed. A term that doesn't occur in a column
// contributes 0 for that column. Ties are broken by ascending id
// (insertion order) by the caller's sort.
func rank(candidates []rankCandidate, term string) map[int64]float64 {
	term = strings.ToLower(term)
	scores := make(map[int64]float64, len(candidates))
	if term == "" {
		return scores
	}

	type column struct {
		weight float64
		value  func(rankCandidate) string
	}
	columns := []column{
		{weightTitle, func(c rankCandidate) string { return c.title }},
		{weightArtist, func(c rankCandidate) string { return c.author }},
		{weightAlbum, func(c rankCandidate) string { return c.album }},
	}

	for _, col := range columns {
		var global int
		hits := make(map[int64]int, len(candidates))
		for _, c := range candidates {
			h := strings.Count(strings.ToLower(col.value(c)), term)
			if h == 0 {
				continue
			}
			hits[c.id] = h
			global += h
		}
		if global == 0 {
			continue
		}
		for id, h := range hits {
			scores[id] += col.weight * float64(h) / float64(global)
		}
	}
	return scores
}
