// Package workflow implements the approval state machine of intranet documents and keeps
// linked schedules consistent with the outcome of their approvals.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ync-lab/intranet/dao/model"
)

// Service coordinates documents, approval lines and schedules
type Service struct {
	store    Store
	notifier Notifier
	loc      *time.Location
	now      func() time.Time
}

func NewService(store Store, notifier Notifier, loc *time.Location) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store:    store,
		notifier: notifier,
		loc:      loc,
		now:      time.Now,
	}
}

// Location returns the time zone dates and times are interpreted in
func (s *Service) Location() *time.Location {
	return s.loc
}

// hooks collects notifications that are sent once the transaction has committed
type hooks []func(ctx context.Context)

func (h *hooks) add(f func(ctx context.Context)) {
	*h = append(*h, f)
}

func (s *Service) transaction(ctx context.Context, fn func(tx Store, after *hooks) error) error {
	var after hooks
	err := s.store.Transaction(ctx, func(tx Store) error {
		after = after[:0]
		return fn(tx, &after)
	})
	if err != nil {
		return err
	}
	for _, f := range after {
		f(ctx)
	}
	return nil
}

// lookupError maps a missing row onto ErrNotFound
func lookupError(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("get %s %d: %w", what, id, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrNotFound)
}

type nopNotifier struct{}

func (nopNotifier) ApprovalRequested(context.Context, uint, *model.Document) {}
func (nopNotifier) ApprovalApproved(context.Context, *model.Document, string) {}
func (nopNotifier) ApprovalRejected(context.Context, *model.Document, string, string) {}
