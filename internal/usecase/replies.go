package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

// Date format used in every SMS reply (M/D/YYYY).
const replyDateLayout = "1/2/2006"

const (
	msgNameRequired       = "❌ Please provide a lead name. Example: Add lead: Jane Smith, jane@example.com, 555-987-6543"
	msgUpdateIDRequired   = "❌ Please provide a lead name, email, phone, or ID to update. Example: Update lead Jane Smith status qualified"
	msgUpdateFields       = "❌ Please specify what to update (status, email, or phone). Example: Update lead Jane Smith status qualified"
	msgFollowUpIDRequired = "❌ Please provide a lead name, email, phone, or ID to follow up with. Example: Follow up Jane Smith in 3 days"
	msgDaysRequired       = "❌ Please specify when to follow up, between 1 day and 10 years. Example: Follow up Jane Smith in 3 days"
	msgStatusIDRequired   = "Please provide a lead name, email, phone, or ID. Example: Show status for Jane Smith"
	msgNoLeads            = "No leads found."
	msgUnknown            = "❓ Unknown command. Send \"help\" to see what I can do."

	msgGenericNotFound = "❌ Lead not found. Check name/ID and try again."
	msgAccountIssue    = "❌ There is a problem with your account. Please contact support."
	msgMissingInfo     = "❌ Some required information is missing. Send \"help\" for examples."
	msgConfiguration   = "❌ This feature is not configured yet. Please contact your administrator."
)

const msgHelp = `📖 Commands:
1. Add lead: Jane Smith, jane@example.com, 555-987-6543, status qualified, follow up in 3 days
2. Update lead Jane Smith status contacted, email jane@new.com, phone 555-111-2222
3. Follow up Jane Smith in 2 weeks
4. Show status for Jane Smith
5. List leads (or: List qualified leads)
6. Send booking link to Jane Smith
7. Send review link to Jane Smith
Identify a lead by name, email, phone number, or ID.
Statuses: new, contacted, qualified, proposal_sent, closed, lost`

func dashboardLine(dashboardURL string) string {
	return "📊 Dashboard: " + dashboardURL
}

func withDashboard(body, dashboardURL string) string {
	return body + "\n\n" + dashboardLine(dashboardURL)
}

func notFoundReply(identifier string) string {
	return "❌ Lead not found: " + identifier
}

func ambiguousReply(count int, label, identifier string) string {
	return fmt.Sprintf("⚠️ Found %d leads matching %s \"%s\". Please use a more specific identifier (email, phone, or ID).",
		count, label, identifier)
}

func createdReply(lead *entity.Lead, followUpDays int, dashboardURL string) string {
	var b strings.Builder
	b.WriteString("✅ Created: " + lead.Name)
	if lead.Status != entity.StatusNew {
		b.WriteString(" (" + string(lead.Status) + ")")
	}
	if followUpDays > 0 {
		fmt.Fprintf(&b, "\n📅 Follow-up in %d %s", followUpDays, plural(followUpDays, "day", "days"))
	}
	return withDashboard(b.String(), dashboardURL)
}

func updatedReply(lead *entity.Lead, fields []string, dashboardURL string) string {
	return withDashboard(fmt.Sprintf("✅ Updated %s: %s", lead.Name, strings.Join(fields, ", ")), dashboardURL)
}

func followUpReply(lead *entity.Lead, date time.Time, dashboardURL string) string {
	return withDashboard(fmt.Sprintf("📅 Follow-up set for %s on %s", lead.Name, date.Format(replyDateLayout)), dashboardURL)
}

func statusReply(lead *entity.Lead, loc *time.Location, dashboardURL string) string {
	var b strings.Builder
	b.WriteString("📋 " + lead.Name)
	b.WriteString("\nStatus: " + string(lead.Status))
	if lead.Email != "" {
		b.WriteString("\nEmail: " + lead.Email)
	}
	if lead.Phone != "" {
		b.WriteString("\nPhone: " + lead.Phone)
	}
	if f, ok := lead.LatestFollowUp(); ok {
		b.WriteString("\nFollow-up: " + f.ScheduledDate.In(loc).Format(replyDateLayout))
	}
	return withDashboard(b.String(), dashboardURL)
}

func latestLeadReply(lead *entity.Lead, loc *time.Location, dashboardURL string) string {
	var b strings.Builder
	b.WriteString("📋 Most recent lead:")
	b.WriteString("\nName: " + lead.Name)
	b.WriteString("\nStatus: " + string(lead.Status))
	if lead.Email != "" {
		b.WriteString("\nEmail: " + lead.Email)
	}
	if lead.Phone != "" {
		b.WriteString("\nPhone: " + lead.Phone)
	}
	b.WriteString("\nID: " + lead.ID)
	b.WriteString("\nCreated: " + lead.CreatedAt.In(loc).Format(replyDateLayout))
	b.WriteString("\n\nSee all leads on the dashboard: " + dashboardURL)
	return b.String()
}

func linkUsageReply(label string) string {
	return fmt.Sprintf("❌ Usage: Send %s link to <lead name, email, phone, or ID>", label)
}

func linkNotConfiguredReply(label string) string {
	return fmt.Sprintf("❌ No %s link is configured. Please contact your administrator.", label)
}

func leadWithoutPhoneReply(lead *entity.Lead) string {
	return fmt.Sprintf("❌ %s has no phone number on file.", lead.Name)
}

func linkSentReply(label string, lead *entity.Lead, channels []string) string {
	return fmt.Sprintf("✅ %s link sent to %s via %s.", capitalize(label), lead.Name, strings.Join(channels, " and "))
}

func genericErrorReply(err error) string {
	return "❌ Error processing request: " + err.Error()
}

func followUpNotice(lead *entity.Lead, agent *entity.Agent) string {
	return fmt.Sprintf("Hi %s, %s here following up. Let me know if you have any questions!", firstName(lead.Name), agent.Name)
}

func linkMessage(lead *entity.Lead, label, link string) string {
	return fmt.Sprintf("Hi %s, here is your %s link: %s", firstName(lead.Name), label, link)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return name
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
