package domain

import (
	"cmp"
	"math"
	"net/url"
	"slices"
	"strings"
	"unicode"
)

const (
	// Scoring weights
	ScoreExactMatch     = 100.0
	ScorePrefixMatch    = 75.0
	ScoreSubstringMatch = 50.0
	ScoreFuzzyMatch     = 25.0

	// Position bonus (earlier is better)
	ScorePositionBonus = 10.0

	// ScoreExactTitleBonus lifts a bookmark whose whole title is the query.
	ScoreExactTitleBonus = 200.0

	// ScorePinnedBonus breaks near-ties in favour of pinned bookmarks.
	ScorePinnedBonus = 5.0
)

// Match is a bookmark with its score against a query.
type Match struct {
	Bookmark Bookmark
	Score    float64
}

// ScoreBookmark scores b against query, matching the title first and the
// URL hostname fragments second. Zero means no match.
func ScoreBookmark(query string, b Bookmark) float64 {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return 0
	}

	score := scoreTitle(query, strings.ToLower(b.Title))
	if host := scoreHost(query, b.URL); host > score {
		score = host
	}
	if score > 0 && b.IsPinned {
		score += ScorePinnedBonus
	}
	return score
}

// RankBookmarks returns the live bookmarks matching query, best first. Ties
// keep collection order.
func RankBookmarks(query string, bookmarks []Bookmark) []Match {
	out := make([]Match, 0, len(bookmarks))
	for _, b := range bookmarks {
		if b.IsArchived {
			continue
		}
		if s := ScoreBookmark(query, b); s > 0 {
			out = append(out, Match{Bookmark: b, Score: s})
		}
	}
	slices.SortStableFunc(out, func(a, b Match) int { return cmp.Compare(b.Score, a.Score) })
	return out
}

func scoreTitle(query, title string) float64 {
	if title == "" {
		return 0
	}

	if query == title {
		return ScoreExactMatch + ScoreExactTitleBonus
	}
	if strings.HasPrefix(title, query) {
		return ScorePrefixMatch
	}
	if i := strings.Index(title, query); i >= 0 {
		// Earlier substring matches get higher score
		return ScoreSubstringMatch + ScorePositionBonus*(1.0-float64(i)/float64(len(title)))
	}

	// Every query word somewhere in the title.
	if words := strings.Fields(query); len(words) > 1 {
		all := true
		for _, w := range words {
			if !strings.Contains(title, w) {
				all = false
				break
			}
		}
		if all {
			return ScoreFuzzyMatch
		}
	}

	if sim := similarity(query, title); sim > 0.5 {
		return ScoreFuzzyMatch * sim
	}
	return 0
}

// scoreHost matches a single-word query against the hostname fragments,
// "go.dev" scoring "go" higher than "dev".
func scoreHost(query, raw string) float64 {
	if strings.ContainsRune(query, ' ') {
		return 0
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return 0
	}

	best := 0.0
	for i, frag := range hostnameFragments(u.Hostname()) {
		if s := scoreFragment(query, frag, i); s > best {
			best = s
		}
	}
	return best
}

func hostnameFragments(hostname string) []string {
	frags := strings.Split(strings.ToLower(hostname), ".")
	if len(frags) > 0 && frags[0] == "www" {
		frags = frags[1:]
	}
	return frags
}

func scoreFragment(query, frag string, position int) float64 {
	query, frag = normalizeFragment(query), normalizeFragment(frag)
	if query == "" || frag == "" {
		return 0
	}

	switch {
	case query == frag:
		return ScoreExactMatch + positionBonus(position)
	case strings.HasPrefix(frag, query):
		return ScorePrefixMatch + positionBonus(position)
	case strings.Contains(frag, query):
		i := strings.Index(frag, query)
		return ScoreSubstringMatch + ScorePositionBonus*(1.0-float64(i)/float64(len(frag)))
	}
	return 0
}

func positionBonus(position int) float64 {
	return ScorePositionBonus * math.Exp(-float64(position)*0.3)
}

// similarity is the share of query runes present in s.
func similarity(query, s string) float64 {
	if query == "" || s == "" {
		return 0
	}
	matches, total := 0, 0
	for _, c := range query {
		total++
		if strings.ContainsRune(s, c) {
			matches++
		}
	}
	return float64(matches) / float64(total)
}

func normalizeFragment(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, s)
}
