package db

import (
	"database/sql"

	"github.com/dlclark/regexp2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3_tunebox"

// compiled patterns shared by every connection
var patterns, _ = lru.New[string, *regexp2.Regexp](256)

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("regexp", matchPattern, true)
		},
	})
}

// matchPattern backs the SQL `value REGEXP pattern` operator. Matching is
// case-insensitive.
func matchPattern(pattern, value string) (bool, error) {
	re, ok := patterns.Get(pattern)
	if !ok {
		var err error
		re, err = regexp2.Compile(pattern, regexp2.IgnoreCase)
		if err != nil {
			return false, err
		}
		patterns.Add(pattern, re)
	}
	return re.MatchString(value)
}

// literal turns free text into a pattern that matches it as a substring
func literal(text string) string {
	return regexp2.Escape(text)
}
