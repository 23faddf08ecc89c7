package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/pkg/logutils"
	"github.com/ync-lab/intranet/pkg/workflow"
)

var _ workflow.Notifier = (*Service)(nil)

func (s *Service) notify(ctx context.Context, in CreateInput) {
	if _, err := s.Create(ctx, in); err != nil {
		logutils.Log.WithError(err).WithFields(logutils.Fields{
			"memberID": in.MemberID,
			"type":     in.Type,
		}).Error("create notification")
		return
	}
	logutils.Log.WithFields(logutils.Fields{
		"memberID": in.MemberID,
		"type":     in.Type,
	}).Info("notification created")
}

func (s *Service) authorName(ctx context.Context, doc *model.Document) string {
	if doc.Author.ID != 0 && doc.Author.Name != "" {
		return doc.Author.Name
	}
	author, err := s.store.GetMember(ctx, doc.AuthorID)
	if err != nil {
		return ""
	}
	return author.Name
}

func withReason(content, reason string) string {
	if strings.TrimSpace(reason) == "" {
		return content
	}
	return fmt.Sprintf("%s (사유: %s)", content, reason)
}

func (s *Service) ApprovalRequested(ctx context.Context, approverID uint, doc *model.Document) {
	title := "새로운 결재 요청"
	if doc.Type.IsLeave() {
		title = "새로운 휴가 신청"
	}
	s.notify(ctx, CreateInput{
		MemberID: approverID,
		Type:     model.NotificationTypeApprovalRequest,
		Title:    title,
		Content:  fmt.Sprintf("%s님이 결재를 요청했습니다: %s", s.authorName(ctx, doc), doc.Title),
		LinkURL:  LinkApprovalPending,
	})
}

func (s *Service) ApprovalApproved(ctx context.Context, doc *model.Document, approverName string) {
	s.notify(ctx, CreateInput{
		MemberID: doc.AuthorID,
		Type:     model.NotificationTypeApprovalApproved,
		Title:    "결재 승인",
		Content:  fmt.Sprintf("%s님이 결재를 승인했습니다: %s", approverName, doc.Title),
		LinkURL:  LinkMyDocuments,
	})
}

func (s *Service) ApprovalRejected(ctx context.Context, doc *model.Document, approverName, reason string) {
	s.notify(ctx, CreateInput{
		MemberID: doc.AuthorID,
		Type:     model.NotificationTypeApprovalRejected,
		Title:    "결재 반려",
		Content:  withReason(fmt.Sprintf("%s님이 결재를 반려했습니다: %s", approverName, doc.Title), reason),
		LinkURL:  LinkMyDocuments,
	})
}
