package alert

import (
	"context"

	"github.com/ync-lab/intranet/dao/model"
)

// AlertInterface forwards in-app notifications to a channel outside the intranet.
// Only e-mail is wired today.
type AlertInterface interface {
	NotificationAlert(ctx context.Context, receiver *model.Member, notification *model.Notification) error
}

// alertHandlerInterface is implemented by every concrete delivery channel
type alertHandlerInterface interface {
	SendMessageTo(ctx context.Context, receiver *model.Member, subject, body string) error
}
