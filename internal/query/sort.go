package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aidanlsb/pubs/internal/paper"
)

// SortKey selects the ordering used by Sort.
type SortKey string

const (
	ByCitekey SortKey = "citekey"
	ByAdded   SortKey = "added"
	ByYear    SortKey = "year"
)

// ParseSortKey validates a sort key name. An empty name sorts by citekey.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return ByCitekey, nil
	case ByCitekey, ByAdded, ByYear:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sort key %q (want citekey, added or year)", s)
	}
}

// Sort orders papers in place. Ties are broken by citekey.
func Sort(papers []*paper.Paper, by SortKey) {
	less := func(a, b *paper.Paper) bool { return a.Citekey < b.Citekey }
	switch by {
	case ByAdded:
		less = func(a, b *paper.Paper) bool {
			if !a.Meta.Added.Equal(b.Meta.Added) {
				return a.Meta.Added.Before(b.Meta.Added)
			}
			return a.Citekey < b.Citekey
		}
	case ByYear:
		less = func(a, b *paper.Paper) bool {
			ya, yb := yearOf(a), yearOf(b)
			if ya != yb {
				return ya < yb
			}
			return a.Citekey < b.Citekey
		}
	}
	sort.SliceStable(papers, func(i, j int) bool { return less(papers[i], papers[j]) })
}

func yearOf(p *paper.Paper) int {
	y, err := strconv.Atoi(strings.TrimSpace(p.Bib.Year()))
	if err != nil {
		return 0
	}
	return y
}
