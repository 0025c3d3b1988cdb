// Package notify provides notifier implementations for the escalation
// engine: an SMTP mail notifier with HTML templates and a structured-log
// notifier used when mail is not configured.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/openhrm/escalation-engine/pkg/config"
	"github.com/openhrm/escalation-engine/pkg/workflow"
)

// MailNotifier delivers reminders and escalation notices over SMTP. Each
// Deliver is a single attempt; retry policy belongs to the dispatcher.
type MailNotifier struct {
	dialer        *gomail.Dialer
	senderAddress string
	senderName    string
	log           *zap.SugaredLogger
}

// NewMailNotifier builds a mail notifier from the mail configuration.
func NewMailNotifier(cfg config.Mail, log *zap.SugaredLogger) *MailNotifier {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	if cfg.InsecureSkipVerify {
		log.Warn("InsecureSkipVerify is enabled for mail TLS connection")
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 - explicit operator opt-in
	}

	senderAddr := cfg.SenderAddress
	if senderAddr == "" {
		senderAddr = "hr-workflow-noreply@localhost"
	}
	senderName := cfg.SenderName
	if senderName == "" {
		senderName = "HR Workflow"
	}

	return &MailNotifier{
		dialer:        d,
		senderAddress: senderAddr,
		senderName:    senderName,
		log:           log.Named("mail-notifier"),
	}
}

func (m *MailNotifier) Deliver(_ context.Context, msg workflow.Notification) error {
	if len(msg.Recipients) == 0 {
		return fmt.Errorf("no recipients for instance %s", msg.InstanceID)
	}

	mail := gomail.NewMessage()
	mail.SetAddressHeader("From", m.senderAddress, m.senderName)
	mail.SetHeader("Bcc", msg.Recipients...)
	mail.SetHeader("Subject", msg.Subject)
	mail.SetBody("text/html", msg.Body)

	if err := m.dialer.DialAndSend(mail); err != nil {
		return fmt.Errorf("sending %s mail for instance %s: %w", msg.Kind, msg.InstanceID, err)
	}
	m.log.Debugw("Notification mail sent",
		"instance", msg.InstanceID,
		"kind", msg.Kind,
		"recipients", len(msg.Recipients))
	return nil
}

func (m *MailNotifier) Name() string { return "mail" }

// LogNotifier writes notifications to the structured log instead of
// delivering them. Used when no mail host is configured.
type LogNotifier struct {
	log *zap.SugaredLogger
}

func NewLogNotifier(log *zap.SugaredLogger) *LogNotifier {
	return &LogNotifier{log: log.Named("log-notifier")}
}

func (l *LogNotifier) Deliver(_ context.Context, msg workflow.Notification) error {
	l.log.Infow("Notification (mail disabled)",
		"instance", msg.InstanceID,
		"kind", msg.Kind,
		"recipients", msg.Recipients,
		"subject", msg.Subject)
	return nil
}

func (l *LogNotifier) Name() string { return "log" }
