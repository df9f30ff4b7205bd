// Package query holds SQL helpers shared by the relational repositories.
package query

import "strings"

// LikeEscape is the escape character used by ContainsPattern. Queries must
// declare it with ESCAPE '\'.
const LikeEscape = `\`

var likeReplacer = strings.NewReplacer(
	`\`, `\\`,
	`%`, `\%`,
	`_`, `\_`,
)

// ContainsPattern builds a LIKE pattern matching values that contain s
// literally. The empty string matches every value.
func ContainsPattern(s string) string {
	return "%" + likeReplacer.Replace(s) + "%"
}
