package command

import (
	"regexp"
	"strings"
)

type IdentifierType string

const (
	IdentifierName  IdentifierType = "name"
	IdentifierEmail IdentifierType = "email"
	IdentifierPhone IdentifierType = "phone"
	IdentifierID    IdentifierType = "id"
)

// Label is the wording used in replies, e.g. "2 leads match that phone number".
func (t IdentifierType) Label() string {
	switch t {
	case IdentifierID:
		return "ID"
	case IdentifierEmail:
		return "email"
	case IdentifierPhone:
		return "phone number"
	default:
		return "name"
	}
}

var (
	recordIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
	emailExact      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[A-Za-z]{2,}$`)
	emailToken      = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneCandidate  = regexp.MustCompile(`\+?\(?\d[\d\s().\-]*\d\)?`)
)

// Classify decides how a lead identifier should be looked up. First match
// wins in the order id, email, phone, name.
func Classify(raw string) IdentifierType {
	s := strings.TrimSpace(raw)
	switch {
	case recordIDPattern.MatchString(s):
		return IdentifierID
	case emailExact.MatchString(s):
		return IdentifierEmail
	case findPhone(s) != "":
		return IdentifierPhone
	default:
		return IdentifierName
	}
}

// findPhone returns the first digit run (separators allowed) carrying at
// least ten digits.
func findPhone(s string) string {
	for _, m := range phoneCandidate.FindAllString(s, -1) {
		if countDigits(m) >= 10 {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

func findEmail(s string) string {
	return emailToken.FindString(s)
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
