// Package format holds the pure field formatters and validators used by the
// application wizard. Formatters are total functions: any input yields a
// best-effort partial format, and re-applying a formatter to its own output
// is a no-op.
package format

import (
	"regexp"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
)

var personNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z\s\-']+$`)

// digits strips everything but digits and truncates to max.
func digits(s string, max int) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == max {
				break
			}
		}
	}
	return b.String()
}

// FormatEIN reformats raw input as ##-#######.
func FormatEIN(raw string) string {
	d := digits(raw, 9)
	if len(d) <= 2 {
		return d
	}
	return d[:2] + "-" + d[2:]
}

// FormatPhone reformats raw input as (###) ###-####.
func FormatPhone(raw string) string {
	d := digits(raw, 10)
	switch {
	case len(d) == 0:
		return ""
	case len(d) <= 3:
		return "(" + d
	case len(d) <= 6:
		return "(" + d[:3] + ") " + d[3:]
	default:
		return "(" + d[:3] + ") " + d[3:6] + "-" + d[6:]
	}
}

// FormatZip reformats raw input as ##### or #####-####.
func FormatZip(raw string) string {
	d := digits(raw, 9)
	if len(d) <= 5 {
		return d
	}
	return d[:5] + "-" + d[5:]
}

// FormatSSN reformats raw input as ###-##-####.
func FormatSSN(raw string) string {
	d := digits(raw, 9)
	switch {
	case len(d) <= 3:
		return d
	case len(d) <= 5:
		return d[:3] + "-" + d[3:]
	default:
		return d[:3] + "-" + d[3:5] + "-" + d[5:]
	}
}

func IsValidEmail(s string) bool {
	return govalidator.IsEmail(strings.TrimSpace(s))
}

func IsValidPhone(s string) bool {
	return len(digits(s, 11)) == 10
}

func IsValidZip(s string) bool {
	n := len(digits(s, 10))
	return n == 5 || n == 9
}

func IsValidEIN(s string) bool {
	return len(digits(s, 10)) == 9
}

func IsValidSSN(s string) bool {
	return len(digits(s, 10)) == 9
}

func IsValidBusinessName(s string) bool {
	return len(strings.TrimSpace(s)) >= 2
}

func IsValidPersonName(s string) bool {
	trimmed := strings.TrimSpace(s)
	return len(trimmed) >= 2 && personNameRegex.MatchString(trimmed)
}

// Reason strings returned by the date validators. The wizard surfaces these
// verbatim so the copy lives in one place.
const (
	ReasonInvalidDate     = "Enter a valid date"
	ReasonDOBInFuture     = "Date of birth cannot be in the future"
	ReasonUnderEighteen   = "Applicant must be at least 18 years old"
	ReasonStartInFuture   = "Business start date cannot be in the future"
	ReasonStartBefore1900 = "Business start date cannot be before 1900"
)

const dateLayout = "2006-01-02"

// ValidateDateOfBirth checks a YYYY-MM-DD date of birth against now. It
// returns false with a human-readable reason on failure; an applicant turning
// 18 today passes.
func ValidateDateOfBirth(raw string, now time.Time) (bool, string) {
	dob, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return false, ReasonInvalidDate
	}
	now = now.UTC()
	if dob.After(now) {
		return false, ReasonDOBInFuture
	}
	if ageAt(dob, now) < 18 {
		return false, ReasonUnderEighteen
	}
	return true, ""
}

// ValidateBusinessStartDate checks a YYYY-MM-DD business start date: not in
// the future and not before 1900.
func ValidateBusinessStartDate(raw string, now time.Time) (bool, string) {
	start, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return false, ReasonInvalidDate
	}
	if start.After(now.UTC()) {
		return false, ReasonStartInFuture
	}
	if start.Year() < 1900 {
		return false, ReasonStartBefore1900
	}
	return true, ""
}

func ageAt(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	anniversary := dob.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}
