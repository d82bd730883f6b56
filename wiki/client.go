// Package wiki is the MediaWiki api.php transport under the ask engine.
// It posts form-encoded actions, keeps a bot-password session in a cookie
// jar and reports API error objects as typed errors.
package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/olgasafonova/smw-ask-mcp-server/internal/base"
	"github.com/olgasafonova/smw-ask-mcp-server/metrics"
	"github.com/olgasafonova/smw-ask-mcp-server/tracing"
)

// SessionTTL is how long a login is trusted before it is checked again
const SessionTTL = 60 * time.Minute

// Error codes MediaWiki returns when a read needs a session it no longer has
var sessionLostCodes = map[string]bool{
	"readapidenied":    true,
	"assertuserfailed": true,
	"assertbotfailed":  true,
}

// Client handles communication with the MediaWiki API
type Client struct {
	*base.Client
	config *Config
	logger *slog.Logger

	// Authentication state
	mu            sync.Mutex
	loggedIn      bool
	sessionExpiry time.Time
}

// NewClient creates a new MediaWiki API client
func NewClient(config *Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		Client: base.NewClient(
			base.WithLogger(logger),
			base.WithTimeout(config.Timeout),
			base.WithRateLimit(config.RateLimit, 1),
			base.WithConcurrency(config.Concurrency),
		),
		config: config,
		logger: logger,
	}
}

// Config returns the connection settings
func (c *Client) Config() *Config {
	return c.config
}

// Request sends one API action and returns the raw JSON body. When
// credentials are configured the client logs in first and logs in again
// once if the wiki reports the session as lost.
func (c *Client) Request(ctx context.Context, params url.Values) ([]byte, error) {
	if !c.config.HasCredentials() {
		return c.apiRequest(ctx, params)
	}

	if err := c.EnsureLoggedIn(ctx); err != nil {
		return nil, err
	}
	body, err := c.apiRequest(ctx, params)

	var apiErr *APIError
	if errors.As(err, &apiErr) && sessionLostCodes[apiErr.Code] {
		c.logger.Warn("Session lost, logging in again", "code", apiErr.Code)
		c.invalidateSession()
		if loginErr := c.EnsureLoggedIn(ctx); loginErr != nil {
			return nil, loginErr
		}
		return c.apiRequest(ctx, params)
	}
	return body, err
}

// apiRequest posts params to api.php with format=json and checks the
// response for an error object.
func (c *Client) apiRequest(ctx context.Context, params url.Values) (_ []byte, err error) {
	form := make(url.Values, len(params)+1)
	for k, v := range params {
		form[k] = append([]string(nil), v...)
	}
	form.Set("format", "json")
	action := form.Get("action")

	ctx, span := tracing.StartWikiSpan(ctx, action)
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	start := time.Now()
	body, status, err := c.DoRequest(ctx, base.RequestConfig{
		URL:       c.config.BaseURL,
		Form:      form,
		UserAgent: c.config.UserAgent,
		MaxRetry:  c.config.MaxRetries + 1,
		Label:     action,
	})
	duration := time.Since(start).Seconds()

	if err != nil {
		metrics.RecordAPICall(action, duration, false, "transport")
		return nil, err
	}
	if status != http.StatusOK {
		metrics.RecordAPICall(action, duration, false, strconv.Itoa(status))
		return nil, &HTTPError{Action: action, StatusCode: status, Body: string(body)}
	}
	if err := checkAPIError(action, body); err != nil {
		code := string(APICodeInvalidJSON)
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			code = apiErr.Code
		}
		metrics.RecordAPICall(action, duration, false, code)
		return nil, err
	}

	metrics.RecordAPICall(action, duration, true, "")
	c.logger.Debug("API request completed", "action", action, "bytes", len(body), "duration", duration)
	return body, nil
}

// checkAPIError reports a body that is not JSON or carries an error object
func checkAPIError(action string, body []byte) error {
	var envelope struct {
		Error *struct {
			Code string `json:"code"`
			Info string `json:"info"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to parse response for action=%s: %w", action, err)
	}
	if envelope.Error != nil {
		return &APIError{Action: action, Code: envelope.Error.Code, Info: envelope.Error.Info}
	}
	return nil
}

// EnsureLoggedIn logs in unless a session is still trusted
func (c *Client) EnsureLoggedIn(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loggedIn && time.Now().Before(c.sessionExpiry) {
		return nil
	}
	if !c.config.HasCredentials() {
		return &AuthenticationError{
			Code:      AuthCodeInvalidCredentials,
			Operation: "login",
			Reason:    "no credentials configured. Set MEDIAWIKI_USERNAME and MEDIAWIKI_PASSWORD",
		}
	}

	// A session restored from cookies must not log in again, the wiki
	// rejects that with a BotPasswordSessionProvider error.
	if c.checkExistingSession(ctx) {
		c.markLoggedIn()
		c.logger.Info("Using existing session")
		return nil
	}

	err := c.login(ctx)
	var authErr *AuthenticationError
	if errors.As(err, &authErr) && authErr.Code == AuthCodeSessionConflict {
		c.logger.Warn("BotPasswordSessionProvider conflict detected, resetting cookies")
		c.ResetCookies()
		err = c.login(ctx)
	}
	if err != nil {
		reason := "request"
		if errors.As(err, &authErr) {
			reason = strings.ToLower(strings.TrimPrefix(string(authErr.ErrorCode()), "AUTH_"))
		}
		metrics.AuthFailures.WithLabelValues(reason).Inc()
		return err
	}

	c.markLoggedIn()
	c.logger.Info("Successfully logged in", "username", c.config.Username)
	return nil
}

func (c *Client) markLoggedIn() {
	c.loggedIn = true
	c.sessionExpiry = time.Now().Add(SessionTTL)
}

func (c *Client) invalidateSession() {
	c.mu.Lock()
	c.loggedIn = false
	c.sessionExpiry = time.Time{}
	c.mu.Unlock()
}

// checkExistingSession reports whether the cookie jar already holds a
// logged in session
func (c *Client) checkExistingSession(ctx context.Context) bool {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("meta", "userinfo")

	body, err := c.apiRequest(ctx, params)
	if err != nil {
		return false
	}
	var resp struct {
		Query struct {
			UserInfo struct {
				ID   int    `json:"id"`
				Name string `json:"name"`
			} `json:"userinfo"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Query.UserInfo.ID == 0 {
		return false
	}

	c.logger.Debug("Found existing session", "user", resp.Query.UserInfo.Name, "id", resp.Query.UserInfo.ID)
	return true
}

// login fetches a login token and authenticates with the bot password
func (c *Client) login(ctx context.Context) error {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("meta", "tokens")
	params.Set("type", "login")

	body, err := c.apiRequest(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to get login token: %w", err)
	}
	var tokenResp struct {
		Query struct {
			Tokens struct {
				LoginToken string `json:"logintoken"`
			} `json:"tokens"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil || tokenResp.Query.Tokens.LoginToken == "" {
		return &AuthenticationError{Code: AuthCodeTokenExpired, Operation: "login", Reason: "no login token in response"}
	}

	params = url.Values{}
	params.Set("action", "login")
	params.Set("lgname", c.config.Username)
	params.Set("lgpassword", c.config.Password)
	params.Set("lgtoken", tokenResp.Query.Tokens.LoginToken)

	body, err = c.apiRequest(ctx, params)
	if err != nil {
		if strings.Contains(err.Error(), "BotPasswordSessionProvider") {
			return &AuthenticationError{Code: AuthCodeSessionConflict, Operation: "login", Reason: err.Error()}
		}
		return fmt.Errorf("login failed: %w", err)
	}
	var loginResp struct {
		Login struct {
			Result string      `json:"result"`
			Reason interface{} `json:"reason"`
		} `json:"login"`
	}
	if err := json.Unmarshal(body, &loginResp); err != nil {
		return fmt.Errorf("unexpected login response: %w", err)
	}

	// Older wikis send the reason as a string, newer ones as a message object
	var why string
	if loginResp.Login.Reason != nil {
		why = fmt.Sprintf("%v", loginResp.Login.Reason)
	}

	switch {
	case loginResp.Login.Result == "Success":
		return nil
	case strings.Contains(why, "BotPasswordSessionProvider"):
		return &AuthenticationError{Code: AuthCodeSessionConflict, Operation: "login", Reason: why}
	default:
		reason := loginResp.Login.Result
		if why != "" {
			reason += " - " + why
		}
		return &AuthenticationError{
			Code:      AuthCodeInvalidCredentials,
			Operation: "login",
			Reason:    "invalid credentials: " + reason,
		}
	}
}
