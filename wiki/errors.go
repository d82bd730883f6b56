package wiki

import (
	"fmt"
	"strings"
)

// Error codes for programmatic error handling
type ErrorCode string

const (
	// Authentication error codes
	AuthCodeInvalidCredentials ErrorCode = "AUTH_INVALID_CREDENTIALS"
	AuthCodeTokenExpired       ErrorCode = "AUTH_TOKEN_EXPIRED"
	AuthCodePermissionDenied   ErrorCode = "AUTH_PERMISSION_DENIED"
	AuthCodeSessionConflict    ErrorCode = "AUTH_SESSION_CONFLICT"

	// API error codes
	APICodeError       ErrorCode = "API_ERROR"
	APICodeHTTPStatus  ErrorCode = "API_HTTP_STATUS"
	APICodeInvalidJSON ErrorCode = "API_INVALID_JSON"
)

// APIError is an error object returned by api.php in place of a result
type APIError struct {
	Action string // the requested action, e.g. "ask"
	Code   string // MediaWiki error code, e.g. "smw-api-invalid-parameters"
	Info   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error [%s] for action=%s: %s", e.Code, e.Action, e.Info)
}

// ErrorCode returns the structured error code for programmatic handling
func (e *APIError) ErrorCode() ErrorCode {
	return APICodeError
}

// HTTPError is a non-200 response that was not retried
type HTTPError struct {
	Action     string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("client error %d for action=%s: %s", e.StatusCode, e.Action, body)
}

// ErrorCode returns the structured error code for programmatic handling
func (e *HTTPError) ErrorCode() ErrorCode {
	return APICodeHTTPStatus
}

// AuthenticationError indicates authentication failures with recovery steps
type AuthenticationError struct {
	Code      ErrorCode
	Operation string
	Reason    string
}

func (e *AuthenticationError) Error() string {
	var suggestion string
	switch {
	case strings.Contains(e.Reason, "credentials") || e.Code == AuthCodeInvalidCredentials:
		suggestion = `Check your credentials:
1. Verify MEDIAWIKI_USERNAME is in format "YourUser@BotName"
2. Verify MEDIAWIKI_PASSWORD is the bot password (not your user password)
3. Create a bot password at Special:BotPasswords on your wiki`

	case strings.Contains(e.Reason, "token") || e.Code == AuthCodeTokenExpired:
		suggestion = `Token error - this usually resolves automatically.
If persistent:
1. Check if your wiki session has expired
2. Verify your bot password hasn't been revoked`

	case strings.Contains(e.Reason, "permission") || e.Code == AuthCodePermissionDenied:
		suggestion = `Your bot account lacks required permissions.
To fix:
1. Go to Special:BotPasswords on your wiki
2. Ensure the 'Basic rights' grant is enabled so the bot may read pages`

	default:
		suggestion = `Check your wiki connection and credentials.
1. Verify MEDIAWIKI_URL points to a valid wiki API
2. Test the URL in a browser: <URL>?action=smwinfo&format=json
3. Check if the wiki requires authentication for reading`
	}

	return fmt.Sprintf(`Authentication failed for %s: %s

%s`, e.Operation, e.Reason, suggestion)
}

// ErrorCode returns the structured error code for programmatic handling
func (e *AuthenticationError) ErrorCode() ErrorCode {
	if e.Code == "" {
		return AuthCodeInvalidCredentials
	}
	return e.Code
}
