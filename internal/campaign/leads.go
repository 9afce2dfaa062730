package campaign

import (
	"regexp"
	"strings"

	"github.com/bvrai/campaign-console/pkg/sparkai"
)

// DefaultInitialMessage seeds new drafts so they never miss an opening line
const DefaultInitialMessage = "Hi {{firstName}}, this is Spark calling. Do you have a moment to chat?"

var (
	countryCodePattern = regexp.MustCompile(`^\+[0-9]{1,4}$`)
	phonePattern       = regexp.MustCompile(`^\+?[0-9][0-9 ().-]{5,}[0-9]$`)
	placeholderPattern = regexp.MustCompile(`\{\{\s*firstName\s*\}\}|\{\s*firstName\s*\}`)
)

// LeadWarning is a soft problem with a lead that does not block saving
type LeadWarning struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// WarningMissingCountryCode flags a contact number without a leading +
const WarningMissingCountryCode = "missing country code"

// LeadWarnings lists soft warnings for leads
func LeadWarnings(leads []sparkai.Lead) []LeadWarning {
	var out []LeadWarning
	for i, l := range leads {
		if !strings.HasPrefix(strings.TrimSpace(l.ContactNo), "+") {
			out = append(out, LeadWarning{Index: i, Message: WarningMissingCountryCode})
		}
	}
	return out
}

// ValidateLead checks the required lead fields
func ValidateLead(l sparkai.Lead) error {
	if strings.TrimSpace(l.FirstName) == "" {
		return &ValidationError{Field: "firstName", Message: "is required"}
	}
	if strings.TrimSpace(l.ContactNo) == "" {
		return &ValidationError{Field: "contactNo", Message: "is required"}
	}
	return nil
}

// NormalizeCountryCode accepts "44", "+44" or " +44 " and returns "+44"
func NormalizeCountryCode(code string) (string, error) {
	code = strings.ReplaceAll(strings.TrimSpace(code), " ", "")
	if !strings.HasPrefix(code, "+") {
		code = "+" + code
	}
	if !countryCodePattern.MatchString(code) {
		return "", &ValidationError{Field: "countryCode", Message: "must be 1 to 4 digits"}
	}
	return code, nil
}

// ApplyCountryCode returns a copy of leads where every contact number lacking
// a leading + has its leading zeros stripped and code prefixed. Applying it
// again changes nothing.
func ApplyCountryCode(leads []sparkai.Lead, code string) ([]sparkai.Lead, int, error) {
	code, err := NormalizeCountryCode(code)
	if err != nil {
		return nil, 0, err
	}

	out := make([]sparkai.Lead, len(leads))
	changed := 0
	for i, l := range leads {
		contact := strings.TrimSpace(l.ContactNo)
		if !strings.HasPrefix(contact, "+") {
			contact = code + strings.TrimLeft(contact, "0")
			changed++
		}
		l.ContactNo = contact
		out[i] = l
	}
	return out, changed, nil
}

// ValidatePhone rejects numbers a test call could never reach
func ValidatePhone(phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return &ValidationError{Field: "phoneNumber", Message: "is required"}
	}
	if !phonePattern.MatchString(phone) {
		return &ValidationError{Field: "phoneNumber", Message: "is not a valid phone number"}
	}
	return nil
}

// RenderInitialMessage substitutes the lead's first name into the template
func RenderInitialMessage(template string, lead sparkai.Lead) string {
	name := strings.TrimSpace(lead.FirstName)
	if name == "" {
		name = "there"
	}
	return placeholderPattern.ReplaceAllLiteralString(template, name)
}
