package identity

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used for numbers written without a country code
const DefaultPhoneRegion = "US"

// NormalizePhone parses number and formats it as E.164.
// Numbers without a leading + are interpreted in region.
func NormalizePhone(number, region string) (string, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return "", fmt.Errorf("phone number is empty")
	}
	if region == "" {
		region = DefaultPhoneRegion
	}

	parsed, err := phonenumbers.Parse(number, strings.ToUpper(region))
	if err != nil {
		return "", fmt.Errorf("parse phone number: %w", err)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", fmt.Errorf("phone number %q is not valid", number)
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

// LooksLikePhone reports whether credential should be tried as a phone number
func LooksLikePhone(credential string) bool {
	credential = strings.TrimSpace(credential)
	if credential == "" || strings.Contains(credential, "@") {
		return false
	}
	digits := 0
	for _, r := range credential {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return false
		}
	}
	return digits >= 4
}
