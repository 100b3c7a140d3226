// Package matching turns customer identities into comparable text, scores
// embedding similarity and ranks candidate matches into confidence tiers.
package matching

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const phoneDigits = 10

// Identity holds the identity attributes used for matching. All fields are
// optional.
type Identity struct {
	GivenName  string
	FamilyName string
	Email      string
	Phone      string
}

// Normalize builds the canonical matching string for id: first name, last
// name, email, email local part and the last 10 phone digits, lowercased and
// space-joined. Empty fields are skipped. An empty result means the identity
// is not embeddable.
func Normalize(id Identity) string {
	f := fieldsOf(id)

	parts := make([]string, 0, 5)
	for _, p := range []string{f.first, f.last, f.email, f.local, f.phone} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// emailLocalPart returns the text before the first '@', or the whole string
// when there is none.
func emailLocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// lastPhoneDigits strips non-digits and returns the trailing 10 digits, or ""
// when fewer than 10 remain.
func lastPhoneDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < phoneDigits {
		return ""
	}
	return digits[len(digits)-phoneDigits:]
}

// normalizedFields is the per-field view Explain compares on.
type normalizedFields struct {
	first, last, email, local, phone string
}

func fieldsOf(id Identity) normalizedFields {
	lower := cases.Lower(language.Und)
	fold := func(s string) string {
		return lower.String(norm.NFC.String(strings.TrimSpace(s)))
	}

	f := normalizedFields{
		first: fold(id.GivenName),
		last:  fold(id.FamilyName),
		email: fold(id.Email),
		phone: lastPhoneDigits(id.Phone),
	}
	if f.email != "" {
		f.local = emailLocalPart(f.email)
	}
	return f
}
