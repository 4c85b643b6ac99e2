package command

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

const (
	defaultFollowUpDays = 1

	// MaxFollowUpDays bounds every follow-up directive, about ten years.
	MaxFollowUpDays = 3650
)

var (
	whitespace = regexp.MustCompile(`\s+`)

	createTrigger = regexp.MustCompile(`(?i)\b(?:add|create)\b`)
	updateTrigger = regexp.MustCompile(`(?i)\bupdate\b`)
	listTrigger   = regexp.MustCompile(`(?i)\blist\b`)
	leadWord      = regexp.MustCompile(`(?i)\bleads?\b`)
	statusTrigger = regexp.MustCompile(`(?i)\b(?:show\s+status(?:\s+(?:for|of))?|status\s+for)\b\s*:?\s*`)
	followTrigger = regexp.MustCompile(`(?i)\bfollow[\s-]?up\b\s*:?\s*(?:(?:with|on|for)\s+)?`)
	bookingLink   = regexp.MustCompile(`(?i)\bbooking\s+link\b`)
	reviewLink    = regexp.MustCompile(`(?i)\breview\s+link\b`)

	createIntro = regexp.MustCompile(`(?i)\b(?:add|create)\b(?:\s+(?:a|an|new|the))*\s+leads?\b\s*:?\s*(?:(?:named|called)\s+)?`)
	updateIntro = regexp.MustCompile(`(?i)\bupdate\b(?:\s+(?:a|the))*\s+leads?\b\s*:?\s*`)

	// Words that end the name segment of a create_lead command.
	createStop   = regexp.MustCompile(`(?i)(?:^|\s)(?:status|email|phone|follow[\s-]?up|with)\b`)
	statusToken  = regexp.MustCompile(`(?i)\bstatus\s*(?:is\s+|to\s+|[:=]\s*)?([a-z]+(?:[\s_-]sent)?)\b`)
	createFollow = regexp.MustCompile(`(?i)\bfollow[\s-]?up\s+in\s+(\d+|an?|one)\s*(days?|weeks?|months?)\b`)
	inDuration   = regexp.MustCompile(`(?i)\bin\s+(\d+|an?|one)\s*(days?|weeks?|months?)\b`)
	inWord       = regexp.MustCompile(`(?i)(?:^|\s)in(?:\s|$)`)
	toWord       = regexp.MustCompile(`(?i)(?:^|\s)to\s+`)
	fieldKeyword = regexp.MustCompile(`(?i)(?:^|[\s,;])(status|email|phone)(?:\s*(?:to\b|[:=])|\s|$)`)
	listFilter   = regexp.MustCompile(`(?i)\blist\s+(?:(?:all|my)\s+)*([a-z_]+(?:\s+sent)?)\s+leads?\b`)
)

// RegexParser is the deterministic grammar. Its behaviour is the reference
// that every other Parser must agree with.
type RegexParser struct{}

func NewRegexParser() *RegexParser {
	return &RegexParser{}
}

func (p *RegexParser) Parse(_ context.Context, text string) Command {
	return Normalize(parseText(text))
}

func parseText(raw string) Command {
	text := whitespace.ReplaceAllString(strings.TrimSpace(raw), " ")
	if text == "" {
		return Unknown()
	}
	lower := strings.ToLower(text)

	switch {
	case lower == "help":
		return Command{Kind: KindHelp}
	case createTrigger.MatchString(text) && leadWord.MatchString(text):
		return parseCreate(text)
	case updateTrigger.MatchString(text) && leadWord.MatchString(text):
		return parseUpdate(text)
	case listTrigger.MatchString(text) && leadWord.MatchString(text):
		return parseList(text)
	case statusTrigger.MatchString(text):
		return parseStatus(text)
	case followTrigger.MatchString(text):
		return parseFollowUp(text)
	case bookingLink.MatchString(text):
		return Command{Kind: KindSendBookingLink, Identifier: identifierAfterTo(text, bookingLink)}
	case reviewLink.MatchString(text):
		return Command{Kind: KindSendReviewLink, Identifier: identifierAfterTo(text, reviewLink)}
	}
	return Unknown()
}

func parseCreate(text string) Command {
	cmd := Command{Kind: KindCreateLead}

	if loc := createIntro.FindStringIndex(text); loc != nil {
		cmd.Name = extractName(text[loc[1]:])
	}

	cmd.Email = findEmail(text)
	cmd.Phone = findPhone(emailToken.ReplaceAllString(text, " "))

	if m := statusToken.FindStringSubmatch(text); m != nil {
		if st, ok := entity.ParseLeadStatus(m[1]); ok {
			cmd.Status = st
		}
	}

	if m := createFollow.FindStringSubmatch(text); m != nil {
		cmd.FollowUp = &FollowUp{Days: toDays(m[1], m[2])}
	}
	return cmd
}

// extractName takes the text after "add lead" up to the first comma, keyword,
// email or phone. A segment that is empty before the first comma stays empty.
func extractName(rest string) string {
	seg := rest
	if i := strings.IndexAny(seg, ",;"); i >= 0 {
		seg = seg[:i]
	}
	end := len(seg)
	if loc := createStop.FindStringIndex(seg); loc != nil && loc[0] < end {
		end = loc[0]
	}
	if loc := emailToken.FindStringIndex(seg); loc != nil && loc[0] < end {
		end = loc[0]
	}
	for _, loc := range phoneCandidate.FindAllStringIndex(seg, -1) {
		if countDigits(seg[loc[0]:loc[1]]) >= 10 {
			if loc[0] < end {
				end = loc[0]
			}
			break
		}
	}
	return trimPhrase(seg[:end])
}

func parseUpdate(text string) Command {
	cmd := Command{Kind: KindUpdateLead}

	loc := updateIntro.FindStringIndex(text)
	if loc == nil {
		return cmd
	}
	rest := text[loc[1]:]

	matches := fieldKeyword.FindAllStringSubmatchIndex(rest, -1)

	idEnd := len(rest)
	if i := strings.IndexAny(rest, ",;"); i >= 0 {
		idEnd = i
	}
	if len(matches) > 0 && matches[0][0] < idEnd {
		idEnd = matches[0][0]
	}
	cmd.Identifier = trimPhrase(rest[:idEnd])

	for i, m := range matches {
		field := Field(strings.ToLower(rest[m[2]:m[3]]))
		valueEnd := len(rest)
		if i+1 < len(matches) {
			valueEnd = matches[i+1][0]
		}
		value := rest[m[1]:valueEnd]
		if j := strings.IndexAny(value, ",;"); j >= 0 {
			value = value[:j]
		}
		value = trimPhrase(value)

		switch field {
		case FieldEmail:
			if e := findEmail(value); e != "" {
				value = e
			}
		case FieldPhone:
			if p := findPhone(value); p != "" {
				value = p
			}
		}
		cmd.Updates = append(cmd.Updates, FieldUpdate{Field: field, Value: value})
	}
	return cmd
}

func parseFollowUp(text string) Command {
	cmd := Command{Kind: KindSetFollowUp}

	loc := followTrigger.FindStringIndex(text)
	rest := text[loc[1]:]

	id := rest
	if l := inWord.FindStringIndex(id); l != nil {
		id = id[:l[0]]
	}
	if i := strings.IndexAny(id, ",;"); i >= 0 {
		id = id[:i]
	}
	cmd.Identifier = trimPhrase(id)

	if m := inDuration.FindStringSubmatch(rest); m != nil {
		cmd.FollowUp = &FollowUp{Days: toDays(m[1], m[2])}
	}
	return cmd
}

func parseStatus(text string) Command {
	loc := statusTrigger.FindStringIndex(text)
	return Command{Kind: KindGetLeadStatus, Identifier: trimPhrase(text[loc[1]:])}
}

func parseList(text string) Command {
	cmd := Command{Kind: KindListLeads, StatusFilter: StatusFilterAll}
	if m := listFilter.FindStringSubmatch(text); m != nil {
		if st, ok := entity.ParseLeadStatus(m[1]); ok {
			cmd.StatusFilter = string(st)
		}
	}
	return cmd
}

func identifierAfterTo(text string, trigger *regexp.Regexp) string {
	loc := trigger.FindStringIndex(text)
	rest := text[loc[1]:]
	to := toWord.FindStringIndex(rest)
	if to == nil {
		return ""
	}
	return trimPhrase(rest[to[1]:])
}

// toDays converts "2 weeks" style durations. Months count as 30 days.
// Zero, unparsable and out of range amounts all yield 0.
func toDays(amount, unit string) int {
	var n int
	switch strings.ToLower(amount) {
	case "a", "an", "one":
		n = 1
	default:
		v, err := strconv.Atoi(amount)
		if err != nil || v <= 0 || v > MaxFollowUpDays {
			return 0
		}
		n = v
	}

	switch u := strings.ToLower(unit); {
	case strings.HasPrefix(u, "week"):
		n *= 7
	case strings.HasPrefix(u, "month"):
		n *= 30
	}
	if n > MaxFollowUpDays {
		return 0
	}
	return n
}

func trimPhrase(s string) string {
	return strings.Trim(strings.TrimSpace(s), " \t:;,.-\"'")
}
