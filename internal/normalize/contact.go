package normalize

import (
	"regexp"
	"strings"
)

// Contact holds best-effort contact details pulled from a free-text blob.
type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phoneRe = regexp.MustCompile(`\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	nameRe  = regexp.MustCompile(`^[A-Z][\w'.-]*(?:\s+[A-Z][\w'.-]*){0,2}$`)

	// Filler words stripped before deciding whether the leftover text is a
	// person's name.
	contactFiller = regexp.MustCompile(`(?i)\b(contact|call|email|phone|info|or|at)\b|[:;()]`)
)

// ExtractContact pulls one email, one phone number, and a best-effort contact
// name from a free-text blob. Fields it cannot find stay empty.
func ExtractContact(raw string) Contact {
	var c Contact

	s := strings.TrimSpace(raw)
	if s == "" {
		return c
	}

	if m := emailRe.FindString(s); m != "" {
		c.Email = m
		s = strings.Replace(s, m, " ", 1)
	}
	if m := phoneRe.FindString(s); m != "" {
		c.Phone = m
		s = strings.Replace(s, m, " ", 1)
	}

	// Whatever text remains after removing email, phone, and filler words is
	// a name only if it looks like 1-3 capitalized words.
	s = contactFiller.ReplaceAllString(s, " ")
	s = strings.Trim(spaceRe.ReplaceAllString(s, " "), " ,.-")
	if nameRe.MatchString(s) {
		c.Name = s
	}

	return c
}
