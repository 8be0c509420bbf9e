package insights

import (
	"errors"
	"regexp"
	"strings"
)

// ErrUnsafeSQL rejects anything that is not a single read statement.
var ErrUnsafeSQL = errors.New("unsafe SQL detected")

var denylist = regexp.MustCompile(`(?i)(;|\b)(insert|update|delete|drop|alter|create|attach|detach|replace|pragma|vacuum)\b`)

var (
	lineComment  = regexp.MustCompile(`--[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	leadingWord  = regexp.MustCompile(`^[A-Za-z]+`)
)

// CheckSQL applies the keyword denylist and then requires a single SELECT or
// WITH statement. It returns the statement with any trailing semicolon
// removed. This is a best-effort filter; the read-only connection is what
// actually prevents writes.
func CheckSQL(query string) (string, error) {
	if denylist.MatchString(query) {
		return "", ErrUnsafeSQL
	}
	stmt := strings.TrimSpace(query)
	stmt = strings.TrimSpace(strings.TrimSuffix(stmt, ";"))
	if stmt == "" || strings.Contains(stmt, ";") {
		return "", ErrUnsafeSQL
	}

	bare := blockComment.ReplaceAllString(lineComment.ReplaceAllString(stmt, " "), " ")
	switch strings.ToUpper(leadingWord.FindString(strings.TrimSpace(bare))) {
	case "SELECT", "WITH":
		return stmt, nil
	default:
		return "", ErrUnsafeSQL
	}
}
