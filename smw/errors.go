package smw

import "fmt"

// MalformedResponseError indicates the ask response lacks required structure.
// It is a contract violation and is never retried.
type MalformedResponseError struct {
	Missing string // "query", "printrequests" or "results"
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("invalid query result - '%s' missing", e.Missing)
}

// ResultSizeExceededError reports that the wiki's result ceiling was hit
// during pagination. Responses holds everything gathered before the stop.
type ResultSizeExceededError struct {
	Query     string
	Reason    Overflow
	Responses []Response
}

func (e *ResultSizeExceededError) Error() string {
	return fmt.Sprintf("query result size exceeded (%s) after %d responses: %s",
		e.Reason, len(e.Responses), e.Query)
}

// Results returns the partial raw responses carried by the error
func (e *ResultSizeExceededError) Results() []Response {
	return e.Responses
}
