package mail

import "gopkg.in/gomail.v2"

type LinkEmailData struct {
	LeadName  string
	LinkLabel string
	Link      string
}

type NewLeadEmailData struct {
	AgentName string
	LeadName  string
	Email     string
	Phone     string
	Status    string
	LeadID    string
	Dashboard string
}

type EmailSender struct {
	Host      string
	Port      int
	User      string
	Password  string
	From      string
	Dashboard string

	// send delivers a built message; nil means dial Host over SMTP.
	send func(m *gomail.Message) error
}
