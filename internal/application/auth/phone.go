package auth

import (
	"regexp"
)

var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

// PhoneFormat matches "+<country code><10 digits>" for one fixed country code.
type PhoneFormat struct {
	re *regexp.Regexp
}

func NewPhoneFormat(countryCode string) PhoneFormat {
	return PhoneFormat{re: regexp.MustCompile(`^\+` + regexp.QuoteMeta(countryCode) + `[0-9]{10}$`)}
}

func (f PhoneFormat) Match(phone string) bool { return f.re.MatchString(phone) }

// validCode reports whether code is exactly six ASCII digits.
func validCode(code string) bool { return codePattern.MatchString(code) }

// maskPhone keeps the last four digits for logs.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}
