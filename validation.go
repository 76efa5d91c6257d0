package identity

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/nyaruka/phonenumbers"
)

const phoneRegion = "KE"

var (
	kenyanE164   = regexp.MustCompile(`^\+254[0-9]{9}$`)
	nationalIDRe = regexp.MustCompile(`^[0-9]{7,8}$`)
)

// KenyanPhone accepts numbers that normalise to +254XXXXXXXXX
var KenyanPhone = validation.NewStringRule(func(s string) bool {
	_, ok := NormalizePhone(s)
	return ok
}, "must be a valid Kenyan phone number (+254XXXXXXXXX)")

// NationalID accepts 7 or 8 digit national id numbers
var NationalID = validation.Match(nationalIDRe).Error("must be 7-8 digits")

// NormalizePhone parses a Kenyan number written in local or international
// form and returns it in E.164.
func NormalizePhone(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	num, err := phonenumbers.Parse(raw, phoneRegion)
	if err != nil {
		return "", false
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", false
	}
	e164 := phonenumbers.Format(num, phonenumbers.E164)
	if !kenyanE164.MatchString(e164) {
		return "", false
	}
	return e164, true
}

func normalizePhoneOrKeep(raw string) string {
	if out, ok := NormalizePhone(raw); ok {
		return out
	}
	return strings.TrimSpace(raw)
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
