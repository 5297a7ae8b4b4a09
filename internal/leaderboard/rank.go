// Package leaderboard turns referral tallies into ranked, reproducible
// leaderboards. Entries are derived on every call and never stored.
package leaderboard

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Tally is an input row: a referrer and its summed count.
type Tally struct {
	ReferrerName string
	Count        int64
}

// Entry is one ranked leaderboard line.
type Entry struct {
	Rank         int             `json:"rank"`
	ReferrerName string          `json:"referrer_name"`
	Count        int64           `json:"referral_count"`
	Share        decimal.Decimal `json:"share"`
	ProfilePic   string          `json:"profile_pic,omitempty"`
}

var hundred = decimal.NewFromInt(100)

// Less is the board order: count descending, then name ascending.
func Less(a, b Tally) bool {
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	return a.ReferrerName < b.ReferrerName
}

// Rank sorts tallies and assigns competition ranks (equal counts share a
// rank, the next rank skips). Share is the percent of the board total,
// rounded to two places. Rows with a non-positive count are dropped.
func Rank(tallies []Tally) []Entry {
	rows := make([]Tally, 0, len(tallies))
	var total int64
	for _, t := range tallies {
		if t.Count <= 0 {
			continue
		}
		rows = append(rows, t)
		total += t.Count
	}

	sort.Slice(rows, func(i, j int) bool { return Less(rows[i], rows[j]) })

	entries := make([]Entry, len(rows))
	totalDec := decimal.NewFromInt(total)
	for i, row := range rows {
		rank := i + 1
		if i > 0 && rows[i-1].Count == row.Count {
			rank = entries[i-1].Rank
		}
		entries[i] = Entry{
			Rank:         rank,
			ReferrerName: row.ReferrerName,
			Count:        row.Count,
			Share:        decimal.NewFromInt(row.Count).Mul(hundred).Div(totalDec).Round(2),
		}
	}
	return entries
}
