// Package stats reduces expense lists over a period into totals, breakdowns
// and chart series. Every function is pure and tolerates empty input.
package stats

import (
	"sort"

	"github.com/shopspring/decimal"

	"expensekeeper/internal/core"
	"expensekeeper/internal/period"
)

// DefaultTopTags is how many tags the tag ranking keeps.
const DefaultTopTags = 5

// Share is an aggregated amount for one category or tag.
type Share struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Point is one bucket of a chart series.
type Point struct {
	Label  string          `json:"label"`
	Start  string          `json:"start"`
	End    string          `json:"end"`
	Amount decimal.Decimal `json:"amount"`
}

// Filter keeps expenses dated within r and, when tag is non-empty, carrying tag.
func Filter(expenses []core.Expense, r period.Range, tag string) []core.Expense {
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if !r.Contains(e.Date) {
			continue
		}
		if tag != "" && !e.HasTag(tag) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func Total(expenses []core.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// ByCategory sums amounts per category, largest first. Equal sums keep the
// order in which their categories were first seen.
func ByCategory(expenses []core.Expense) []Share {
	idx := make(map[string]int)
	var shares []Share
	for _, e := range expenses {
		i, ok := idx[e.Category]
		if !ok {
			i = len(shares)
			idx[e.Category] = i
			shares = append(shares, Share{Name: e.Category, Amount: decimal.Zero})
		}
		shares[i].Amount = shares[i].Amount.Add(e.Amount)
	}
	sortShares(shares)
	return shares
}

// ByTag adds each expense's full amount to every tag it carries, so the sum
// of tag totals can exceed the overall total. Only the top limit tags are
// returned; limit <= 0 keeps them all.
func ByTag(expenses []core.Expense, limit int) []Share {
	idx := make(map[string]int)
	var shares []Share
	for _, e := range expenses {
		for _, tag := range e.Tags {
			i, ok := idx[tag]
			if !ok {
				i = len(shares)
				idx[tag] = i
				shares = append(shares, Share{Name: tag, Amount: decimal.Zero})
			}
			shares[i].Amount = shares[i].Amount.Add(e.Amount)
		}
	}
	sortShares(shares)
	if limit > 0 && len(shares) > limit {
		shares = shares[:limit]
	}
	return shares
}

func sortShares(shares []Share) {
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].Amount.GreaterThan(shares[j].Amount)
	})
}

// AveragePerDay divides total by r.Days().
// A zero-length range averages to zero.
func AveragePerDay(total decimal.Decimal, r period.Range) decimal.Decimal {
	days := r.Days()
	if days <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(days)))
}

// Highest returns the first expense with the largest amount.
func Highest(expenses []core.Expense) (core.Expense, bool) {
	if len(expenses) == 0 {
		return core.Expense{}, false
	}
	best := expenses[0]
	for _, e := range expenses[1:] {
		if e.Amount.GreaterThan(best.Amount) {
			best = e
		}
	}
	return best, true
}

// TopCategory returns the category with the largest aggregated amount.
func TopCategory(expenses []core.Expense) (Share, bool) {
	shares := ByCategory(expenses)
	if len(shares) == 0 {
		return Share{}, false
	}
	return shares[0], true
}

// Series sums amounts per bucket. Bucket bounds are inclusive on both ends.
func Series(expenses []core.Expense, buckets []period.Bucket) []Point {
	points := make([]Point, len(buckets))
	for i, b := range buckets {
		sum := decimal.Zero
		for _, e := range expenses {
			if b.Contains(e.Date) {
				sum = sum.Add(e.Amount)
			}
		}
		points[i] = Point{
			Label:  b.Label,
			Start:  b.Start.Format(dateLayout),
			End:    b.End.Format(dateLayout),
			Amount: sum,
		}
	}
	return points
}

const dateLayout = "2006-01-02"
