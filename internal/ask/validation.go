package ask

import (
	"strconv"
	"strings"

	apierrors "github.com/olgasafonova/smw-ask-mcp-server/internal/errors"
)

const (
	// MaxQueryLength is the maximum accepted ask query length
	MaxQueryLength = 4000

	// MaxDivision caps the number of partition windows per query
	MaxDivision = 100
)

// ValidateQuery validates an ask query.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return apierrors.NewValidationError("query", "", "is required")
	}
	if len(query) > MaxQueryLength {
		return apierrors.NewValidationError("query", "", "exceeds maximum length of "+strconv.Itoa(MaxQueryLength)+" characters")
	}
	if !strings.Contains(query, "[[") {
		return apierrors.NewValidationError("query", query, "must contain at least one [[condition]]")
	}
	return nil
}

// ValidateLimit rejects negative limits; 0 means no limit.
func ValidateLimit(limit int) error {
	if limit < 0 {
		return apierrors.NewValidationError("limit", strconv.Itoa(limit), "must not be negative")
	}
	return nil
}

// ValidateDivision accepts 0 (server default) or 1..MaxDivision.
func ValidateDivision(division int) error {
	if division < 0 || division > MaxDivision {
		return apierrors.NewValidationError("division", strconv.Itoa(division),
			"must be between 1 and "+strconv.Itoa(MaxDivision))
	}
	return nil
}

// ValidateFormat accepts the output formats of Format plus "records".
func ValidateFormat(format string) error {
	switch strings.ToLower(format) {
	case "", FormatRecords, FormatJSON, FormatCSV, FormatYAML, FormatTable:
		return nil
	}
	return apierrors.NewValidationError("format", format, "must be one of records, json, csv, yaml, table")
}
