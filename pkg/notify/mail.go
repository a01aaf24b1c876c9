package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/mailjet/mailjet-apiv3-go/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"nairaramp_back/models"
)

const subject = "New conversion pending approval"

func pendingBody(count int, latest *models.Transaction, dashboardURL string) string {
	details := ""
	if latest != nil {
		payout := "-"
		if latest.ToAmount.Valid && latest.ToCurrency != nil {
			payout = latest.ToAmount.Decimal.StringFixed(2) + " " + *latest.ToCurrency
		}
		details = fmt.Sprintf(`<table cellpadding="0" cellspacing="0" border="0" style="width:100%%;margin-bottom:24px;">
  <tr><td style="font-family:Arial,sans-serif;font-size:16px;color:#555;padding:6px 0;">Signature:</td><td style="font-family:Arial,sans-serif;font-size:16px;color:#111;font-weight:bold;padding:6px 0;">%s</td></tr>
  <tr><td style="font-family:Arial,sans-serif;font-size:16px;color:#555;padding:6px 0;">Amount:</td><td style="font-family:Arial,sans-serif;font-size:16px;color:#111;font-weight:bold;padding:6px 0;">%s %s</td></tr>
  <tr><td style="font-family:Arial,sans-serif;font-size:16px;color:#555;padding:6px 0;">Payout:</td><td style="font-family:Arial,sans-serif;font-size:16px;color:#111;font-weight:bold;padding:6px 0;">%s</td></tr>
</table>`, html.EscapeString(latest.TransactionID), latest.FromAmount.String(), html.EscapeString(latest.FromCurrency), html.EscapeString(payout))
	}

	return fmt.Sprintf(`<body style="margin:0;padding:0;background:#f6f6f6;">
  <table width="100%%" cellpadding="0" cellspacing="0" border="0" style="max-width:600px;background:#f3f2f0;border-radius:28px;">
    <tr>
      <td style="padding:32px;text-align:left;">
        <h1 style="margin:0 0 12px 0;font-family:Arial,sans-serif;font-size:28px;font-weight:700;color:#111;">%s</h1>
        %s
        <div style="text-align:center;">
          <a href="%s" style="display:inline-block;padding:18px 0;width:100%%;max-width:320px;background:#111;color:#fff;font-family:Arial,sans-serif;font-size:20px;font-weight:600;text-decoration:none;border-radius:20px;">Review</a>
        </div>
      </td>
    </tr>
  </table>
</body>`, Message(count), details, html.EscapeString(dashboardURL))
}

type MailjetNotifier struct {
	send         func(*mailjet.MessagesV31) error
	from         string
	fromName     string
	to           []string
	dashboardURL string
}

func NewMailjet(cfg Config) (*MailjetNotifier, error) {
	if cfg.MailjetAPIKey == "" || cfg.MailjetSecretKey == "" {
		return nil, errors.New("mailjet api key and secret key are required")
	}
	if cfg.From == "" || len(cfg.To) == 0 {
		return nil, errors.New("mail from and to addresses are required")
	}
	client := mailjet.NewMailjetClient(cfg.MailjetAPIKey, cfg.MailjetSecretKey)
	return &MailjetNotifier{
		send: func(m *mailjet.MessagesV31) error {
			_, err := client.SendMailV31(m)
			return err
		},
		from:         cfg.From,
		fromName:     cfg.FromName,
		to:           cfg.To,
		dashboardURL: cfg.DashboardURL,
	}, nil
}

func (n *MailjetNotifier) NotifyPending(_ context.Context, count int, latest *models.Transaction) error {
	to := make(mailjet.RecipientsV31, 0, len(n.to))
	for _, addr := range n.to {
		to = append(to, mailjet.RecipientV31{Email: addr})
	}
	messages := &mailjet.MessagesV31{Info: []mailjet.InfoMessagesV31{{
		From:     &mailjet.RecipientV31{Email: n.from, Name: n.fromName},
		To:       &to,
		Subject:  subject,
		TextPart: Message(count),
		HTMLPart: pendingBody(count, latest, n.dashboardURL),
	}}}
	if err := n.send(messages); err != nil {
		return errors.Wrap(err, "mailjet: send pending notification")
	}
	logrus.WithField("recipients", len(n.to)).Info("mailjet: pending notification sent")
	return nil
}

type SMTPNotifier struct {
	dialer       *gomail.Dialer
	sender       gomail.Sender
	from         string
	to           []string
	dashboardURL string
}

func NewSMTP(cfg Config) (*SMTPNotifier, error) {
	if cfg.SMTPHost == "" || cfg.From == "" || len(cfg.To) == 0 {
		return nil, errors.New("smtp host, from and to addresses are required")
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	user := cfg.SMTPUser
	if user == "" {
		user = cfg.From
	}
	return &SMTPNotifier{
		dialer:       gomail.NewDialer(cfg.SMTPHost, port, user, cfg.SMTPPassword),
		from:         cfg.From,
		to:           cfg.To,
		dashboardURL: cfg.DashboardURL,
	}, nil
}

func (n *SMTPNotifier) NotifyPending(_ context.Context, count int, latest *models.Transaction) error {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", n.to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", Message(count))
	m.AddAlternative("text/html", pendingBody(count, latest, n.dashboardURL))

	var err error
	if n.sender != nil {
		err = gomail.Send(n.sender, m)
	} else {
		err = n.dialer.DialAndSend(m)
	}
	if err != nil {
		return errors.Wrap(err, "smtp: send pending notification")
	}
	logrus.WithField("recipients", len(n.to)).Info("smtp: pending notification sent")
	return nil
}
