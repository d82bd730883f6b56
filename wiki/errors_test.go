package wiki

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	err := &APIError{Action: "ask", Code: "smw-api-invalid-parameters", Info: "bad query"}

	errStr := err.Error()
	for _, want := range []string{"ask", "smw-api-invalid-parameters", "bad query"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("Error() = %q, missing %q", errStr, want)
		}
	}
	if err.ErrorCode() != APICodeError {
		t.Errorf("ErrorCode() = %s, want %s", err.ErrorCode(), APICodeError)
	}
}

func TestHTTPError_TruncatesBody(t *testing.T) {
	err := &HTTPError{Action: "ask", StatusCode: 403, Body: strings.Repeat("x", 500)}

	errStr := err.Error()
	if !strings.Contains(errStr, "403") {
		t.Error("Error should contain the status code")
	}
	if strings.Contains(errStr, strings.Repeat("x", 201)) {
		t.Error("Error should truncate long bodies")
	}
	if !strings.HasSuffix(errStr, "...") {
		t.Error("Error should indicate truncation with ...")
	}
}

func TestAuthenticationError_Suggestions(t *testing.T) {
	tests := []struct {
		name string
		err  *AuthenticationError
		want string
	}{
		{
			name: "credentials",
			err:  &AuthenticationError{Operation: "login", Reason: "invalid credentials: Failed"},
			want: "Special:BotPasswords",
		},
		{
			name: "token",
			err:  &AuthenticationError{Code: AuthCodeTokenExpired, Operation: "login", Reason: "no login token in response"},
			want: "Token error",
		},
		{
			name: "permission",
			err:  &AuthenticationError{Code: AuthCodePermissionDenied, Operation: "ask", Reason: "denied"},
			want: "Basic rights",
		},
		{
			name: "fallback",
			err:  &AuthenticationError{Code: AuthCodeSessionConflict, Operation: "login", Reason: "unexpected"},
			want: "MEDIAWIKI_URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()
			if !strings.Contains(errStr, "Authentication failed for "+tt.err.Operation) {
				t.Errorf("Error should name the operation: %q", errStr)
			}
			if !strings.Contains(errStr, tt.want) {
				t.Errorf("Error should contain %q: %q", tt.want, errStr)
			}
		})
	}
}

func TestAuthenticationError_DefaultCode(t *testing.T) {
	err := &AuthenticationError{Operation: "login", Reason: "x"}
	if err.ErrorCode() != AuthCodeInvalidCredentials {
		t.Errorf("ErrorCode() = %s, want %s", err.ErrorCode(), AuthCodeInvalidCredentials)
	}
}

func TestErrorsAs_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("smwinfo request failed: %w", &APIError{Action: "smwinfo", Code: "unknown_action"})

	var apiErr *APIError
	if !errors.As(wrapped, &apiErr) {
		t.Fatal("errors.As should find the APIError")
	}
	if apiErr.Code != "unknown_action" {
		t.Errorf("Code = %q, want unknown_action", apiErr.Code)
	}
}
