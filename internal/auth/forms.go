// Package auth validates the login and register forms. No credentials are
// checked and no session is issued.
package auth

import (
	"regexp"
	"strings"
	"unicode"
)

// Form field messages.
const (
	MsgRequired         = "is required"
	MsgInvalidEmail     = "enter a valid email address"
	MsgPasswordTooShort = "must be at least 8 characters"
	MsgPasswordUpper    = "must contain an uppercase letter"
	MsgPasswordDigit    = "must contain a number"
	MsgPasswordSpecial  = "must contain a special character"
	MsgPasswordMismatch = "passwords do not match"
)

// PasswordMinLength applies to both forms.
const PasswordMinLength = 8

// EmailRegex is the local@domain.tld shape both forms require.
var EmailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// State is the outcome of validating a form: per-field messages and whether
// the submit button is enabled.
type State struct {
	Errors    map[string]string
	CanSubmit bool
}

// Error returns the message for field, or "".
func (s State) Error(field string) string {
	return s.Errors[field]
}

// RegisterForm mirrors the register page inputs.
type RegisterForm struct {
	Name     string
	Email    string
	Password string
	Confirm  string
}

// Validate reports every problem, including empty fields.
func (f RegisterForm) Validate() State {
	return f.validate(false)
}

// LiveValidate is used while the user types: empty fields still block
// submission but carry no message yet.
func (f RegisterForm) LiveValidate() State {
	return f.validate(true)
}

func (f RegisterForm) validate(live bool) State {
	errs := make(map[string]string)
	missing := false

	check := func(field, value string, rule func(string) string) {
		if strings.TrimSpace(value) == "" {
			missing = true
			if !live {
				errs[field] = MsgRequired
			}
			return
		}
		if rule != nil {
			if msg := rule(value); msg != "" {
				errs[field] = msg
			}
		}
	}

	check("name", f.Name, nil)
	check("email", f.Email, emailRule)
	check("password", f.Password, func(p string) string {
		if len([]rune(p)) < PasswordMinLength {
			return MsgPasswordTooShort
		}
		return ""
	})
	check("confirm", f.Confirm, func(c string) string {
		if c != f.Password {
			return MsgPasswordMismatch
		}
		return ""
	})

	return State{Errors: errs, CanSubmit: len(errs) == 0 && !missing}
}

// LoginForm mirrors the login page inputs.
type LoginForm struct {
	Email    string
	Password string
}

// Validate checks the email shape and password strength: at least 8
// characters with an uppercase letter, a digit and a special character.
func (f LoginForm) Validate() State {
	errs := make(map[string]string)
	if strings.TrimSpace(f.Email) == "" {
		errs["email"] = MsgRequired
	} else if msg := emailRule(f.Email); msg != "" {
		errs["email"] = msg
	}
	if f.Password == "" {
		errs["password"] = MsgRequired
	} else if msg := passwordStrength(f.Password); msg != "" {
		errs["password"] = msg
	}
	return State{Errors: errs, CanSubmit: len(errs) == 0}
}

func emailRule(email string) string {
	if !EmailRegex.MatchString(strings.TrimSpace(email)) {
		return MsgInvalidEmail
	}
	return ""
}

// passwordStrength returns the first unmet rule.
func passwordStrength(p string) string {
	if len([]rune(p)) < PasswordMinLength {
		return MsgPasswordTooShort
	}
	var hasUpper, hasDigit, hasSpecial bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	switch {
	case !hasUpper:
		return MsgPasswordUpper
	case !hasDigit:
		return MsgPasswordDigit
	case !hasSpecial:
		return MsgPasswordSpecial
	}
	return ""
}
