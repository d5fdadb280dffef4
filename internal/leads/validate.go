package leads

import (
	"fmt"
	"regexp"
	"strings"
)

// Validator checks one field value.
type Validator interface {
	Validate(value string) error
}

// ValidatorFunc is a function that implements Validator.
type ValidatorFunc func(value string) error

func (f ValidatorFunc) Validate(value string) error {
	return f(value)
}

// ValidationError is a failed field check.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ValidationErrors is every failed check of one submission.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return "leads: invalid submission: " + strings.Join(msgs, "; ")
}

// Required validates that the value is not blank.
func Required(msg string) Validator {
	if msg == "" {
		msg = "This field is required"
	}
	return ValidatorFunc(func(value string) error {
		if strings.TrimSpace(value) == "" {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// MaxLength validates that a string has at most n characters.
func MaxLength(n int, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must be at most %d characters", n)
	}
	return ValidatorFunc(func(value string) error {
		if len([]rune(value)) > n {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Email validates a plausible email address. Empty values pass; combine
// with Required.
func Email(msg string) Validator {
	if msg == "" {
		msg = "Invalid email address"
	}
	return ValidatorFunc(func(value string) error {
		if value != "" && !emailRE.MatchString(value) {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

type fieldRules struct {
	field string
	value func(Submission) string
	rules []Validator
}

var submissionRules = []fieldRules{
	{"name", func(s Submission) string { return s.Name }, []Validator{Required(""), MaxLength(200, "")}},
	{"email", func(s Submission) string { return s.Email }, []Validator{Required(""), Email(""), MaxLength(254, "")}},
	{"company", func(s Submission) string { return s.Company }, []Validator{MaxLength(200, "")}},
	{"message", func(s Submission) string { return s.Message }, []Validator{MaxLength(5000, "")}},
	{"source", func(s Submission) string { return s.Source }, []Validator{MaxLength(64, "")}},
}

// Validate runs the submission rules. Only the first failure per field is
// reported. The result is nil or a ValidationErrors.
func Validate(s Submission) error {
	var errs ValidationErrors
	for _, fr := range submissionRules {
		for _, rule := range fr.rules {
			if err := rule.Validate(fr.value(s)); err != nil {
				ve := ValidationError{Field: fr.field, Message: err.Error()}
				if v, ok := err.(ValidationError); ok {
					ve.Message = v.Message
				}
				errs = append(errs, ve)
				break
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
