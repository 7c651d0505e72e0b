// Package notify mails a short run summary to the dataset maintainers.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"bbmp-grievances/lib/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("internal/notify")

type SmtpConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	Recipients   []string `json:"recipients"`
}

// Field is a single line of a summary.
type Field struct {
	Name  string
	Value any
}

// Summary is what a stage reports when it is done.
type Summary struct {
	Title  string
	Fields []Field
}

// Table renders the summary fields as a plain text table.
func (s Summary) Table() string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{s.Title, ""})
	for _, f := range s.Fields {
		t.AppendRow(table.Row{f.Name, f.Value})
	}
	return t.Render()
}

type Notifier struct {
	config SmtpConfig
}

func New(config SmtpConfig) Notifier {
	return Notifier{config: config}
}

// Enabled is false without an SMTP server or recipients, Send is then a no-op.
func (n Notifier) Enabled() bool {
	return n.config.Server != "" && len(n.config.Recipients) > 0
}

// Compose builds the notification mail for a summary.
func (n Notifier) Compose(summary Summary) *email.Email {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("BBMP Grievances <%s>", n.config.EmailAddress)
	mail.To = n.config.Recipients
	mail.Subject = fmt.Sprintf("[bbmp-grievances] %s", summary.Title)
	mail.Text = []byte(summary.Table() + "\n")
	return mail
}

func (n Notifier) Send(ctx context.Context, summary Summary) error {
	if !n.Enabled() {
		return nil
	}

	_, span := tracer.Start(ctx, "Send")
	defer span.End()

	mail := n.Compose(summary)
	addr := fmt.Sprintf("%s:%d", n.config.Server, n.config.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", n.config.EmailAddress, n.config.Password, n.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}
