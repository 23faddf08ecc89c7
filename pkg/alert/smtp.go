package alert

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/pkg/config"
	"github.com/ync-lab/intranet/pkg/logutils"
)

type SMTPAlerter struct {
	from   string
	dialer *gomail.Dialer
}

func newSMTPAlerter() alertHandlerInterface {
	smtpConfig := config.GetConfig().SMTP
	from := smtpConfig.From
	if from == "" {
		from = smtpConfig.User
	}
	return &SMTPAlerter{
		from:   from,
		dialer: gomail.NewDialer(smtpConfig.Host, smtpConfig.Port, smtpConfig.User, smtpConfig.Password),
	}
}

func (sa *SMTPAlerter) SendMessageTo(ctx context.Context, receiver *model.Member, subject, body string) error {
	if receiver.Email == "" {
		logutils.Log.Warnf("%s does not have an email address", receiver.Name)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", sa.from)
	msg.SetHeader("To", receiver.Email)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := sa.dialer.DialAndSend(msg); err != nil {
		logutils.Log.Errorf("Failed to send email to %s: %v", receiver.Email, err)
		return fmt.Errorf("send email: %w", err)
	}

	logutils.Log.Infof("Sent email to %s", receiver.Email)
	return nil
}
