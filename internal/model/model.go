// Package model holds the entities shared by the store, the rules and the
// HTTP layer. Field names follow the columns of the MySQL schema; the json
// tags are the API representation.
package model

import "fmt"

// displayName renders an entity for logs: its name when it has one,
// otherwise "Type::id".
func displayName(kind string, id uint64, name string) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("%s::%d", kind, id)
}
