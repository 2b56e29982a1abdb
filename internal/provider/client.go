// ABOUTME: WhatsApp Cloud (Graph API) client for sends, profiles and webhook checks
// ABOUTME: Every call runs under the client's bounded HTTP timeout

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/2389/wadash/internal/store"
)

const (
	DefaultGraphURL   = "https://graph.facebook.com"
	DefaultAPIVersion = "v17.0"
	DefaultTimeout    = 10 * time.Second

	// verifyChallenge is echoed back by a correctly configured webhook.
	verifyChallenge = "test_challenge"
)

var (
	// ErrIncompleteConfig means the stored settings lack the credentials
	// the call needs.
	ErrIncompleteConfig = errors.New("whatsapp configuration is incomplete")

	// ErrAPI matches every *APIError.
	ErrAPI = errors.New("graph api error")

	// ErrChallengeMismatch means the webhook answered but did not echo the
	// challenge.
	ErrChallengeMismatch = errors.New("webhook did not echo the challenge")
)

// APIError is a non-2xx response from the Graph API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph api: status %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool { return target == ErrAPI }

// Options configures a Client. Zero values use the defaults.
type Options struct {
	GraphURL   string
	APIVersion string
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Client talks to the Graph API on behalf of the configured business.
type Client struct {
	graphURL   string
	apiVersion string
	http       *http.Client
	logger     *slog.Logger
}

func New(opts Options) *Client {
	if opts.GraphURL == "" {
		opts.GraphURL = DefaultGraphURL
	}
	if opts.APIVersion == "" {
		opts.APIVersion = DefaultAPIVersion
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		graphURL:   strings.TrimRight(opts.GraphURL, "/"),
		apiVersion: opts.APIVersion,
		http:       &http.Client{Timeout: opts.Timeout},
		logger:     opts.Logger.With("component", "provider"),
	}
}

// AccessToken exchanges the app credentials for an app access token.
func (c *Client) AccessToken(ctx context.Context, appID, appSecret string) (string, error) {
	if appID == "" || appSecret == "" {
		return "", ErrIncompleteConfig
	}
	q := url.Values{
		"client_id":     {appID},
		"client_secret": {appSecret},
		"grant_type":    {"client_credentials"},
	}
	var tr struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodGet, c.graphURL+"/oauth/access_token?"+q.Encode(), "", nil, &tr); err != nil {
		return "", fmt.Errorf("fetching access token: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("fetching access token: %w", &APIError{Status: http.StatusOK, Message: "missing access_token"})
	}
	return tr.AccessToken, nil
}

type sendRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendText sends a text message from the configured phone number and
// returns the provider's message ID.
func (c *Client) SendText(ctx context.Context, st store.Settings, to, body string) (string, error) {
	if !st.CanSend() {
		return "", ErrIncompleteConfig
	}
	token, err := c.AccessToken(ctx, st.AppID, st.AppSecret)
	if err != nil {
		return "", err
	}

	reqBody, err := json.Marshal(sendRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Text:             textBody{Body: body},
	})
	if err != nil {
		return "", err
	}

	var sr sendResponse
	endpoint := fmt.Sprintf("%s/%s/%s/messages", c.graphURL, c.apiVersion, url.PathEscape(st.PhoneNumberID))
	if err := c.do(ctx, http.MethodPost, endpoint, token, reqBody, &sr); err != nil {
		return "", fmt.Errorf("sending message: %w", err)
	}
	if len(sr.Messages) == 0 || sr.Messages[0].ID == "" {
		return "", fmt.Errorf("sending message: %w", &APIError{Status: http.StatusOK, Message: "missing message id"})
	}

	c.logger.Info("message sent", "to", to, "message_id", sr.Messages[0].ID)
	return sr.Messages[0].ID, nil
}

// BusinessProfile returns the business account object as the Graph API
// describes it.
func (c *Client) BusinessProfile(ctx context.Context, st store.Settings) (map[string]any, error) {
	if !st.CanReadProfile() {
		return nil, ErrIncompleteConfig
	}
	token, err := c.AccessToken(ctx, st.AppID, st.AppSecret)
	if err != nil {
		return nil, err
	}

	q := url.Values{"access_token": {token}}
	endpoint := fmt.Sprintf("%s/%s/%s?%s", c.graphURL, c.apiVersion, url.PathEscape(st.BusinessAccountID), q.Encode())
	var profile map[string]any
	if err := c.do(ctx, http.MethodGet, endpoint, "", nil, &profile); err != nil {
		return nil, fmt.Errorf("fetching profile: %w", err)
	}
	return profile, nil
}

// VerifyWebhook performs the subscription handshake against webhookURL and
// checks the challenge is echoed.
func (c *Client) VerifyWebhook(ctx context.Context, webhookURL, verifyToken string) error {
	if webhookURL == "" || verifyToken == "" {
		return ErrIncompleteConfig
	}
	u, err := url.Parse(webhookURL)
	if err != nil {
		return fmt.Errorf("parsing webhook url: %w", err)
	}
	q := u.Query()
	q.Set("hub.mode", "subscribe")
	q.Set("hub.verify_token", verifyToken)
	q.Set("hub.challenge", verifyChallenge)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling webhook: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != verifyChallenge {
		c.logger.Warn("webhook verification failed", "status", resp.StatusCode, "url", webhookURL)
		return fmt.Errorf("%w: status %d", ErrChallengeMismatch, resp.StatusCode)
	}
	return nil
}

// do sends a request and decodes a JSON response into out. Non-2xx
// responses become *APIError carrying the Graph error message.
func (c *Client) do(ctx context.Context, method, endpoint, bearer string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: graphErrorMessage(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w body=%q", err, string(raw))
	}
	return nil
}

// graphErrorMessage extracts error.message from a Graph error body, falling
// back to the raw body.
func graphErrorMessage(raw []byte) string {
	var ge struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &ge) == nil && ge.Error.Message != "" {
		return ge.Error.Message
	}
	return strings.TrimSpace(string(raw))
}
