package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mmdatafocus/disaster_backend/models"
	"github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"
)

var ErrMailerNotConfigured = errors.New("smtp mailer is not configured")

const (
	statusSubject    = "Update on Your Disaster Report"
	broadcastSubject = "Disaster Report Pending Verification"
	contactSubject   = "New Organization Contact Submission"
	timeLayout       = "02 Jan 2006 15:04 MST"

	defaultSendTimeout = 30 * time.Second
)

type sendFunc func(ctx context.Context, msg *mail.Msg) error

// Mailer sends HTML mail over SMTP with PLAIN auth.
type Mailer struct {
	Host       string
	Port       int
	Username   string
	Password   string
	FromName   string
	AdminEmail string
	// Timeout bounds one delivery, dial included. 0 leaves only the caller's context.
	Timeout time.Duration
	Logger  *logrus.Logger

	send sendFunc
}

// NewMailerFromEnv reads SMTP_HOST, SMTP_PORT, EMAIL_USER, EMAIL_PASS and ADMIN_EMAIL.
func NewMailerFromEnv(logger *logrus.Logger) *Mailer {
	port, err := strconv.Atoi(strings.TrimSpace(os.Getenv("SMTP_PORT")))
	if err != nil || port <= 0 {
		port = 587
	}
	return &Mailer{
		Host:       strings.TrimSpace(os.Getenv("SMTP_HOST")),
		Port:       port,
		Username:   strings.TrimSpace(os.Getenv("EMAIL_USER")),
		Password:   os.Getenv("EMAIL_PASS"),
		FromName:   "Disaster-Watch",
		AdminEmail: strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
		Timeout:    defaultSendTimeout,
		Logger:     logger,
	}
}

// Notify tells the submitter about a status change of their report.
func (m *Mailer) Notify(ctx context.Context, contact string, displayName string, report *models.Report) error {
	if contact == "" {
		return errors.New("notify: submitter has no email address")
	}
	data := reportData(report)
	data.Name = displayName
	data.Status = statusLabel(string(report.Status))
	if report.VerificationNote != nil {
		data.Note = *report.VerificationNote
	}
	body, err := render(statusMailTemplate, data)
	if err != nil {
		return err
	}
	return m.deliver(ctx, statusSubject, body, func(msg *mail.Msg) error {
		return msg.To(contact)
	})
}

// Broadcast sends one BCC mail about a new pending report to every recipient.
func (m *Mailer) Broadcast(ctx context.Context, recipients []string, report *models.Report) error {
	if len(recipients) == 0 {
		return nil
	}
	data := reportData(report)
	data.Note = report.Note
	body, err := render(broadcastMailTemplate, data)
	if err != nil {
		return err
	}
	err = m.deliver(ctx, broadcastSubject, body, func(msg *mail.Msg) error {
		return msg.Bcc(recipients...)
	})
	if err != nil {
		return err
	}
	if m.Logger != nil {
		m.Logger.WithFields(logrus.Fields{
			"field":      "Mailer",
			"report_id":  report.ID,
			"recipients": len(recipients),
		}).Info("new report mail sent")
	}
	return nil
}

// SendContactSubmission forwards an organization contact form to ADMIN_EMAIL.
func (m *Mailer) SendContactSubmission(ctx context.Context, contact *models.Contact) error {
	if m.AdminEmail == "" {
		return fmt.Errorf("%w: ADMIN_EMAIL is empty", ErrMailerNotConfigured)
	}
	body, err := render(contactMailTemplate, contact)
	if err != nil {
		return err
	}
	return m.deliver(ctx, contactSubject, body, func(msg *mail.Msg) error {
		return msg.To(m.AdminEmail)
	})
}

func (m *Mailer) deliver(ctx context.Context, subject string, body []byte, address func(*mail.Msg) error) error {
	if m.Host == "" || m.Username == "" {
		return ErrMailerNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(m.FromName, m.Username); err != nil {
		return fmt.Errorf("mail sender %q: %w", m.Username, err)
	}
	if err := address(msg); err != nil {
		return fmt.Errorf("mail recipients: %w", err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextHTML, string(body))

	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}
	send := m.send
	if send == nil {
		send = m.dialAndSend
	}
	if err := send(ctx, msg); err != nil {
		return fmt.Errorf("smtp send %q: %w", subject, err)
	}
	return nil
}

func (m *Mailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(m.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.Username),
		mail.WithPassword(m.Password),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if m.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(m.Timeout))
	}
	client, err := mail.NewClient(m.Host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

func reportData(report *models.Report) reportMailData {
	return reportMailData{
		ReportedOn: report.CreatedAt.Format(timeLayout),
		Location:   report.Location,
		Category:   string(report.Category),
		Severity:   string(report.Severity),
		ImageUrl:   report.ImageUrl,
	}
}

func render(t *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s mail: %w", t.Name(), err)
	}
	return buf.Bytes(), nil
}
