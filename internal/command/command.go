// Package command turns the text of an inbound SMS into a structured Command.
//
// Parsing never fails: text that matches no known shape becomes KindUnknown.
package command

import (
	"context"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

type Kind string

const (
	KindCreateLead      Kind = "create_lead"
	KindUpdateLead      Kind = "update_lead"
	KindSetFollowUp     Kind = "set_followup"
	KindGetLeadStatus   Kind = "get_lead_status"
	KindListLeads       Kind = "list_leads"
	KindHelp            Kind = "help"
	KindSendBookingLink Kind = "send_booking_link"
	KindSendReviewLink  Kind = "send_review_link"
	KindUnknown         Kind = "unknown"
)

var kinds = map[Kind]bool{
	KindCreateLead: true, KindUpdateLead: true, KindSetFollowUp: true,
	KindGetLeadStatus: true, KindListLeads: true, KindHelp: true,
	KindSendBookingLink: true, KindSendReviewLink: true, KindUnknown: true,
}

func (k Kind) Valid() bool { return kinds[k] }

// StatusFilterAll is the list_leads filter when no status is given.
const StatusFilterAll = "all"

type Field string

const (
	FieldStatus Field = "status"
	FieldEmail  Field = "email"
	FieldPhone  Field = "phone"
)

type FieldUpdate struct {
	Field Field  `json:"field"`
	Value string `json:"value"`
}

// FollowUp is a "follow up in N days" directive, already converted to days.
type FollowUp struct {
	Days int `json:"days"`
}

// Command is a tagged variant: Kind says which of the payload fields apply.
//
//	create_lead       Name, Email, Phone, Status, FollowUp
//	update_lead       Identifier, IdentifierType, Updates
//	set_followup      Identifier, IdentifierType, FollowUp
//	get_lead_status   Identifier, IdentifierType
//	list_leads        StatusFilter
//	send_*_link       Identifier, IdentifierType
type Command struct {
	Kind           Kind              `json:"command"`
	Name           string            `json:"name,omitempty"`
	Email          string            `json:"email,omitempty"`
	Phone          string            `json:"phone,omitempty"`
	Status         entity.LeadStatus `json:"status,omitempty"`
	Identifier     string            `json:"identifier,omitempty"`
	IdentifierType IdentifierType    `json:"identifier_type,omitempty"`
	Updates        []FieldUpdate     `json:"updates,omitempty"`
	FollowUp       *FollowUp         `json:"follow_up,omitempty"`
	StatusFilter   string            `json:"status_filter,omitempty"`
}

func Unknown() Command {
	return Command{Kind: KindUnknown}
}

// Parser is implemented by both the regex grammar and the model-backed
// parser wrapped in a FallbackParser.
type Parser interface {
	Parse(ctx context.Context, text string) Command
}

// ModelParser is an AI-assisted parser. Its errors are never shown to users;
// FallbackParser substitutes the regex grammar instead.
type ModelParser interface {
	ParseCommand(ctx context.Context, text string) (Command, error)
}

// Normalize enforces the invariants every parser output must satisfy.
func Normalize(c Command) Command {
	if !c.Kind.Valid() {
		return Unknown()
	}
	if c.Identifier != "" {
		c.Identifier = trimPhrase(c.Identifier)
		c.IdentifierType = Classify(c.Identifier)
	}
	if c.Status != "" {
		st, ok := entity.ParseLeadStatus(string(c.Status))
		if !ok {
			st = ""
		}
		c.Status = st
	}
	if c.Kind == KindCreateLead && c.Status == "" {
		c.Status = entity.StatusNew
	}
	// An absent clause gets the default; an explicit but unusable one keeps
	// Days at 0 so the executor can reject it.
	if c.FollowUp != nil && !ValidFollowUpDays(c.FollowUp.Days) {
		c.FollowUp = &FollowUp{}
	}
	if c.Kind == KindSetFollowUp && c.FollowUp == nil {
		c.FollowUp = &FollowUp{Days: defaultFollowUpDays}
	}
	if c.Kind == KindListLeads {
		if st, ok := entity.ParseLeadStatus(c.StatusFilter); ok {
			c.StatusFilter = string(st)
		} else {
			c.StatusFilter = StatusFilterAll
		}
	}
	if len(c.Updates) > 0 {
		c.Updates = mergeUpdates(c.Updates)
	}
	return c
}

func ValidFollowUpDays(days int) bool {
	return days > 0 && days <= MaxFollowUpDays
}

// mergeUpdates keeps the first-appearance order of each field while letting the
// last value win. Invalid status values are dropped.
func mergeUpdates(in []FieldUpdate) []FieldUpdate {
	out := make([]FieldUpdate, 0, len(in))
	pos := make(map[Field]int)
	for _, u := range in {
		if u.Field != FieldStatus && u.Field != FieldEmail && u.Field != FieldPhone {
			continue
		}
		u.Value = trimPhrase(u.Value)
		if u.Value == "" {
			continue
		}
		if u.Field == FieldStatus {
			st, ok := entity.ParseLeadStatus(u.Value)
			if !ok {
				continue
			}
			u.Value = string(st)
		}
		if i, seen := pos[u.Field]; seen {
			out[i].Value = u.Value
			continue
		}
		pos[u.Field] = len(out)
		out = append(out, u)
	}
	return out
}
