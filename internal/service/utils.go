package service

import "strings"

// cleanText drops invalid UTF-8 and NUL bytes, both of which Postgres
// rejects in text columns. Statement exports from some banks carry either.
func cleanText(s string) string {
	s = strings.ToValidUTF8(s, "")
	if strings.IndexByte(s, 0) >= 0 {
		s = strings.ReplaceAll(s, "\x00", "")
	}
	return s
}
