package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// NewEmailSender implements usecase.EmailService over SMTP.
func NewEmailSender(host string, port int, user, password, from, dashboard string) *EmailSender {
	return &EmailSender{
		Host:      host,
		Port:      port,
		User:      user,
		Password:  password,
		From:      from,
		Dashboard: dashboard,
	}
}

func (s *EmailSender) Configured() bool {
	return s.Host != "" && s.From != ""
}

func (s *EmailSender) SendLink(to, leadName, linkLabel, link string) error {
	data := LinkEmailData{LeadName: firstName(leadName), LinkLabel: linkLabel, Link: link}
	return s.deliver(to, fmt.Sprintf("Your %s link", linkLabel), "link.html", data)
}

func (s *EmailSender) SendNewLeadAlert(to, agentName string, lead *entity.Lead) error {
	data := NewLeadEmailData{
		AgentName: agentName,
		LeadName:  lead.Name,
		Email:     lead.Email,
		Phone:     lead.Phone,
		Status:    string(lead.Status),
		LeadID:    lead.ID,
		Dashboard: s.Dashboard,
	}
	return s.deliver(to, fmt.Sprintf("New lead: %s", lead.Name), "new_lead.html", data)
}

func (s *EmailSender) deliver(to, subject, tmpl string, data any) error {
	if !s.Configured() {
		return fmt.Errorf("email sender is not configured")
	}

	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, tmpl, data); err != nil {
		return fmt.Errorf("render %s: %w", tmpl, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body.String())

	send := s.send
	if send == nil {
		d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
		send = func(m *gomail.Message) error { return d.DialAndSend(m) }
	}
	if err := send(m); err != nil {
		return fmt.Errorf("send email via SMTP: %w", err)
	}
	return nil
}

func firstName(name string) string {
	for i, r := range name {
		if r == ' ' {
			return name[:i]
		}
	}
	return name
}
