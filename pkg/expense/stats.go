package expense

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/ync-lab/intranet/dao/model"
)

type Period string

const (
	PeriodYear  Period = "year"
	PeriodMonth Period = "month"
)

// StatsQuery narrows the statistics; member wins over department, department over division
type StatsQuery struct {
	Period       Period
	ParentDeptID *uint
	DeptID       *uint
	MemberID     *uint
}

type CategoryStats struct {
	Category    string  `json:"category"`
	WelfareFlag string  `json:"welfareFlag"`
	Count       int     `json:"count"`
	Amount      int64   `json:"amount"`
	Percentage  float64 `json:"percentage"`
}

type Stats struct {
	// TotalCount is the number of distinct spenders
	TotalCount    int             `json:"totalCount"`
	TotalAmount   int64           `json:"totalAmount"`
	CategoryStats []CategoryStats `json:"categoryStats"`
}

// periodRange returns the first and last day of the current year or month
func periodRange(period Period, today time.Time) (from, to time.Time) {
	y, m, _ := today.Date()
	if period == PeriodYear {
		return time.Date(y, time.January, 1, 0, 0, 0, 0, today.Location()),
			time.Date(y, time.December, 31, 0, 0, 0, 0, today.Location())
	}
	from = time.Date(y, m, 1, 0, 0, 0, 0, today.Location())
	return from, from.AddDate(0, 1, -1)
}

// percentage rounds amount/total half up to four decimals and scales it to percent
func percentage(amount, total int64) float64 {
	if total <= 0 {
		return 0
	}
	ratio := (2*amount*10_000 + total) / (2 * total)
	return float64(ratio) / 100
}

// scopeMembers returns nil when every member is counted
func (s *Service) scopeMembers(ctx context.Context, q StatsQuery) ([]uint, error) {
	switch {
	case q.MemberID != nil:
		return []uint{*q.MemberID}, nil
	case q.DeptID != nil:
		members, err := s.store.ListMembersByDepartments(ctx, []uint{*q.DeptID})
		if err != nil {
			return nil, fmt.Errorf("list members of department %d: %w", *q.DeptID, err)
		}
		return memberIDs(members), nil
	case q.ParentDeptID != nil:
		children, err := s.store.ListChildDepartments(ctx, *q.ParentDeptID)
		if err != nil {
			return nil, fmt.Errorf("list departments of division %d: %w", *q.ParentDeptID, err)
		}
		ids := lo.Map(children, func(d *model.Department, _ int) uint { return d.ID })
		if len(ids) == 0 {
			return []uint{}, nil
		}
		members, err := s.store.ListMembersByDepartments(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("list members of division %d: %w", *q.ParentDeptID, err)
		}
		return memberIDs(members), nil
	}
	return nil, nil
}

func memberIDs(members []*model.Member) []uint {
	ids := lo.Map(members, func(m *model.Member, _ int) uint { return m.ID })
	if ids == nil {
		return []uint{}
	}
	return ids
}

// Stats aggregates the settled ledger of the current year or month by account
func (s *Service) Stats(ctx context.Context, q StatsQuery) (*Stats, error) {
	from, to := periodRange(q.Period, s.now().In(s.loc))
	scope, err := s.scopeMembers(ctx, q)
	if err != nil {
		return nil, err
	}
	stats := &Stats{CategoryStats: []CategoryStats{}}
	if scope != nil && len(scope) == 0 {
		return stats, nil
	}
	entries, err := s.store.ListLedgerEntries(ctx, from, to, scope)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}

	type key struct{ account, welfare string }
	categories := map[key]*CategoryStats{}
	spenders := map[uint]struct{}{}
	for _, e := range entries {
		spenders[e.MemberID] = struct{}{}
		stats.TotalAmount += e.Amount
		flag := e.WelfareFlag
		if flag == "" {
			flag = model.FlagNo
		}
		k := key{e.Account, flag}
		c, ok := categories[k]
		if !ok {
			c = &CategoryStats{Category: e.Account, WelfareFlag: flag}
			categories[k] = c
		}
		c.Count++
		c.Amount += e.Amount
	}
	stats.TotalCount = len(spenders)
	for _, c := range categories {
		c.Percentage = percentage(c.Amount, stats.TotalAmount)
		stats.CategoryStats = append(stats.CategoryStats, *c)
	}
	sort.Slice(stats.CategoryStats, func(i, j int) bool {
		a, b := stats.CategoryStats[i], stats.CategoryStats[j]
		if a.Amount != b.Amount {
			return a.Amount > b.Amount
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.WelfareFlag < b.WelfareFlag
	})
	return stats, nil
}
