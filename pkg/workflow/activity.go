package workflow

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"k8s.io/utils/ptr"

	"github.com/ync-lab/intranet/dao/model"
)

const recentActivityLimit = 5

// Activity is the dashboard summary of a member
type Activity struct {
	Documents []*model.Document
	Approvals []*model.ApprovalLine
	Schedules []*model.Schedule
}

// RecentActivity returns the latest documents, decisions and schedules of the member
func (s *Service) RecentActivity(ctx context.Context, memberID uint) (*Activity, error) {
	activity := &Activity{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		docs, err := s.store.ListDocumentsByAuthor(ctx, memberID, recentActivityLimit)
		if err != nil {
			return fmt.Errorf("recent documents: %w", err)
		}
		activity.Documents = docs
		return nil
	})
	g.Go(func() error {
		lines, err := s.store.ListApprovalLinesByApprover(ctx, ApprovalFilter{
			ApproverID:      memberID,
			Decisions:       []model.ApprovalDecision{model.ApprovalDecisionApproved, model.ApprovalDecisionRejected},
			RecentlyDecided: true,
			Limit:           recentActivityLimit,
		})
		if err != nil {
			return fmt.Errorf("recent approvals: %w", err)
		}
		activity.Approvals = lines
		return nil
	})
	g.Go(func() error {
		schedules, err := s.store.ListSchedules(ctx, ScheduleFilter{
			MemberID:    ptr.To(memberID),
			NewestFirst: true,
			Limit:       recentActivityLimit,
		})
		if err != nil {
			return fmt.Errorf("recent schedules: %w", err)
		}
		activity.Schedules = schedules
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return activity, nil
}
