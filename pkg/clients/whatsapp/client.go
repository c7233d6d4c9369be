package whatsapp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/farmdesk/internal/config"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultRetries   = 2
	defaultRetryWait = 500 * time.Millisecond
)

// Client exposes WhatsApp Cloud API operations used by the application.
type Client interface {
	SendTextMessage(ctx context.Context, req SendTextMessageRequest) (*SendTextMessageResponse, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	http          *resty.Client
	phoneNumberID string
}

// Option tunes the underlying HTTP client.
type Option func(*resty.Client)

// WithRetry sets how often throttled or failed deliveries are retried.
func WithRetry(count int, wait time.Duration) Option {
	return func(c *resty.Client) {
		c.SetRetryCount(count).SetRetryWaitTime(wait).SetRetryMaxWaitTime(4 * wait)
	}
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// NewClient builds a Cloud API client for the configured phone number.
// Deliveries answered with 429 or a 5xx status are retried.
func NewClient(cfg config.WhatsAppConfig, opts ...Option) *APIClient {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/") + "/" + cfg.APIVersion
	rc := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(cfg.AccessToken).
		SetHeader("Content-Type", "application/json").
		SetTimeout(defaultTimeout).
		SetRetryCount(defaultRetries).
		SetRetryWaitTime(defaultRetryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil || r == nil {
				return false
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})
	for _, opt := range opts {
		opt(rc)
	}
	return &APIClient{http: rc, phoneNumberID: cfg.PhoneNumberID}
}

// SendTextMessageRequest is a plain text message to one phone number.
type SendTextMessageRequest struct {
	To         string
	Body       string
	PreviewURL bool
}

// SendTextMessageResponse carries the ids Meta assigned to the message.
type SendTextMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// APIError is returned when the Cloud API rejects a request.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp api error: status=%d, code=%d, message=%s", e.Status, e.Code, e.Message)
}

type textBody struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url"`
}

type textMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type errorEnvelope struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

// SendTextMessage sends a plain text message to one recipient.
func (c *APIClient) SendTextMessage(ctx context.Context, req SendTextMessageRequest) (*SendTextMessageResponse, error) {
	msg := textMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               req.To,
		Type:             "text",
		Text:             textBody{Body: req.Body, PreviewURL: req.PreviewURL},
	}

	var (
		result   SendTextMessageResponse
		envelope errorEnvelope
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(msg).
		SetResult(&result).
		SetError(&envelope).
		Post(c.phoneNumberID + "/messages")
	if err != nil {
		return nil, fmt.Errorf("send whatsapp message: %w", err)
	}
	if resp.IsError() {
		apiErr := &APIError{Status: resp.StatusCode(), Code: envelope.Error.Code, Message: envelope.Error.Message}
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode()
		}
		return nil, apiErr
	}
	return &result, nil
}
