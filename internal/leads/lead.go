// Package leads accepts contact form submissions.
//
// A submission is checked against a honeypot field, rate limited per client
// IP, validated and then delivered to a Sink, normally the CRM webhook.
package leads

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Lead is a validated contact request.
type Lead struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company,omitempty"`
	Message   string    `json:"message,omitempty"`
	Source    string    `json:"source,omitempty"`
	IP        string    `json:"ip,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Submission is the raw form input.
type Submission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
	Message string `json:"message"`
	Source  string `json:"source"`

	// Website is the honeypot. People never see it, so any value means a bot.
	Website string `json:"website"`
}

// IsSpam reports whether the honeypot was filled.
func (s Submission) IsSpam() bool {
	return strings.TrimSpace(s.Website) != ""
}

// Normalize trims every field and lowercases the email.
func (s Submission) Normalize() Submission {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))
	s.Company = strings.TrimSpace(s.Company)
	s.Message = strings.TrimSpace(s.Message)
	s.Source = strings.TrimSpace(s.Source)
	return s
}

// Lead builds a Lead with a fresh ID.
func (s Submission) Lead(ip string, now time.Time) Lead {
	return Lead{
		ID:        uuid.NewString(),
		Name:      s.Name,
		Email:     s.Email,
		Company:   s.Company,
		Message:   s.Message,
		Source:    s.Source,
		IP:        ip,
		CreatedAt: now.UTC(),
	}
}
