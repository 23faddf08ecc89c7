package expense

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/ync-lab/intranet/dao/model"
)

// Quarterly welfare budgets in KRW
const (
	SeniorQuarterBudget int64 = 400_000
	JuniorQuarterBudget int64 = 300_000
)

type QuarterUsage struct {
	Year      int   `json:"year"`
	Quarter   int   `json:"quarter"`
	Budget    int64 `json:"budget"`
	Used      int64 `json:"used"`
	Remaining int64 `json:"remaining"`
}

type WelfareSummary struct {
	MemberID        uint           `json:"memberId"`
	MemberName      string         `json:"memberName"`
	Year            int            `json:"year"`
	Quarters        []QuarterUsage `json:"quarters"`
	AnnualBudget    int64          `json:"annualBudget"`
	AnnualUsed      int64          `json:"annualUsed"`
	AnnualRemaining int64          `json:"annualRemaining"`
}

// quarterBudget is the senior budget once the member has worked a full year
func quarterBudget(hireDate *time.Time, today time.Time) int64 {
	if hireDate != nil && !hireDate.AddDate(1, 0, 0).After(today) {
		return SeniorQuarterBudget
	}
	return JuniorQuarterBudget
}

// allocate fills the quarters in order, each up to its budget
func allocate(year int, budget, used int64) []QuarterUsage {
	quarters := make([]QuarterUsage, 0, 4)
	left := used
	for q := 1; q <= 4; q++ {
		spent := min(max(left, 0), budget)
		left -= spent
		quarters = append(quarters, QuarterUsage{
			Year:      year,
			Quarter:   q,
			Budget:    budget,
			Used:      spent,
			Remaining: budget - spent,
		})
	}
	return quarters
}

// WelfareSummary sums the welfare items of the member used in the year
func (s *Service) WelfareSummary(ctx context.Context, memberID uint, year int) (*WelfareSummary, error) {
	member, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, lookupError(err, "member", memberID)
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, s.loc)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, s.loc)
	items, err := s.store.ListItems(ctx, ItemFilter{
		MemberID:    &memberID,
		WelfareOnly: true,
		From:        &from,
		To:          &to,
	})
	if err != nil {
		return nil, fmt.Errorf("list welfare items of member %d: %w", memberID, err)
	}

	budget := quarterBudget(member.HireDate, s.now().In(s.loc))
	used := lo.SumBy(items, func(item *model.ExpenseItem) int64 { return item.Amount })
	return &WelfareSummary{
		MemberID:        member.ID,
		MemberName:      member.Name,
		Year:            year,
		Quarters:        allocate(year, budget, used),
		AnnualBudget:    budget * 4,
		AnnualUsed:      used,
		AnnualRemaining: budget*4 - used,
	}, nil
}
