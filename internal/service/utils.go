package service

import (
	"strings"
	"unicode/utf8"

	"keeper/internal/matching"
	"keeper/internal/models"
)

const maxTitleRunes = 200

// sanitizeUTF8 drops invalid byte sequences so PostgreSQL accepts the text.
func sanitizeUTF8(s string) string {
	return strings.ToValidUTF8(s, "")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func identityOf(c *models.Customer) matching.Identity {
	return matching.Identity{
		GivenName:  c.GivenName,
		FamilyName: c.FamilyName,
		Email:      c.Email,
		Phone:      c.Phone,
	}
}
