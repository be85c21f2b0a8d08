package sharedstrings

import (
	"sort"
	"sync"
	"unicode"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

var initAlgo sync.Once

// Match is a search hit: the index of the string in the table and its score.
type Match struct {
	Index int
	Score int
}

// Search ranks every string against query with the fzf v2 algorithm and
// returns those scoring at least minScore, best first. Equal scores keep
// table order. Matching is case-insensitive unless query contains an
// upper-case letter.
func (t *Table) Search(query string, minScore int) []Match {
	if query == "" {
		return nil
	}
	initAlgo.Do(func() {
		algo.Init("default")
	})

	pattern, caseSensitive := preparePattern(query)
	slab := util.MakeSlab(100*1024, 2048)

	var res []Match
	for i, s := range t.strings {
		chars := util.ToChars([]byte(s))
		r, _ := algo.FuzzyMatchV2(caseSensitive, false, true, &chars, pattern, false, slab)
		if r.Start < 0 || r.Score < minScore {
			continue
		}
		res = append(res, Match{Index: i, Score: r.Score})
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Score > res[j].Score
	})
	return res
}

// SearchIndices is like Search but only returns the indexes.
func (t *Table) SearchIndices(query string, minScore int) []int {
	matches := t.Search(query, minScore)
	res := make([]int, 0, len(matches))
	for _, m := range matches {
		res = append(res, m.Index)
	}
	return res
}

// preparePattern applies smart case: fzf expects a lower-cased pattern for
// case-insensitive matching.
func preparePattern(query string) ([]rune, bool) {
	runes := []rune(query)
	for _, r := range runes {
		if unicode.IsUpper(r) {
			return runes, true
		}
	}
	for i, r := range runes {
		runes[i] = unicode.ToLower(r)
	}
	return runes, false
}
