package databrowser

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// Plain MySQL identifier, no quoting or qualification
	identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_$]+$`)
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateTableName checks that a table name is a plain identifier
func ValidateTableName(table string) error {
	if table == "" {
		return &ValidationError{"table", "required"}
	}
	if !identifierPattern.MatchString(table) {
		return &ValidationError{"table", "invalid table name"}
	}
	return nil
}

// ValidateStatement checks that a statement uses one of the simple CRUD
// verbs the browser supports
func ValidateStatement(stmt string) error {
	trimmed := strings.TrimSpace(stmt)
	if trimmed == "" {
		return &ValidationError{"statement", "required"}
	}

	verb := strings.ToUpper(strings.Fields(trimmed)[0])
	switch verb {
	case "INSERT", "UPDATE", "DELETE":
		return nil
	default:
		return &ValidationError{"statement", "only INSERT, UPDATE, and DELETE statements are supported"}
	}
}
