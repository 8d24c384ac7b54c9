package dbutil

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Postgres unique_violation.
const uniqueViolation = "23505"

var limitRegex = regexp.MustCompile(`(?i)LIMIT\s+\?\s*,\s*\?`)

// Finalize rewrites gendry's MySQL-flavored output into Postgres form:
// LIMIT x,y becomes LIMIT ? OFFSET ? (swapping the two args) and all
// placeholders are rebound to $n.
func Finalize(query string, args []interface{}) (string, []interface{}) {
	if loc := limitRegex.FindStringIndex(query); loc != nil {
		placeholders := strings.Count(query[:loc[0]], "?")
		if placeholders+1 < len(args) {
			args[placeholders], args[placeholders+1] = args[placeholders+1], args[placeholders]
			query = limitRegex.ReplaceAllString(query, "LIMIT ? OFFSET ?")
		}
	}
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}

func IsConflict(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
