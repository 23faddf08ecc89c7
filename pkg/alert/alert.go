package alert

import (
	"context"
	"strings"
	"sync"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/pkg/config"
)

type alertMgr struct {
	handler alertHandlerInterface
	host    string
}

var (
	once    sync.Once
	alerter AlertInterface
)

// GetAlertMgr returns the configured alert manager, or nil when SMTP is disabled
func GetAlertMgr() AlertInterface {
	once.Do(func() {
		cfg := config.GetConfig()
		if !cfg.SMTP.Enable {
			return
		}
		alerter = &alertMgr{
			handler: newSMTPAlerter(),
			host:    strings.TrimSuffix(cfg.Host, "/"),
		}
	})
	return alerter
}

func (a *alertMgr) NotificationAlert(ctx context.Context, receiver *model.Member, notification *model.Notification) error {
	subject := "[인트라넷] " + notification.Title
	body := notification.Content
	if notification.LinkURL != "" {
		body += "\n\n" + a.host + notification.LinkURL
	}
	return a.handler.SendMessageTo(ctx, receiver, subject, body)
}
