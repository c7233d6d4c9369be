package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/farmdesk/internal/config"
)

func TestSendTextMessage(t *testing.T) {
	var got struct {
		path, auth string
		body       map[string]any
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	c := NewClient(config.WhatsAppConfig{AccessToken: "tok", PhoneNumberID: "123", BaseURL: srv.URL + "/", APIVersion: "v20.0"})
	resp, err := c.SendTextMessage(context.Background(), SendTextMessageRequest{To: "62812", Body: "hello"})
	require.NoError(t, err)

	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "wamid.1", resp.Messages[0].ID)
	assert.Equal(t, "/v20.0/123/messages", got.path)
	assert.Equal(t, "Bearer tok", got.auth)
	assert.Equal(t, "whatsapp", got.body["messaging_product"])
	assert.Equal(t, "62812", got.body["to"])
	assert.Equal(t, "hello", got.body["text"].(map[string]any)["body"])
}

func TestSendTextMessageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`))
	}))
	defer srv.Close()

	c := NewClient(config.WhatsAppConfig{AccessToken: "bad", PhoneNumberID: "123", BaseURL: srv.URL, APIVersion: "v20.0"}, WithRetry(0, 0))
	_, err := c.SendTextMessage(context.Background(), SendTextMessageRequest{To: "62812", Body: "hello"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, 190, apiErr.Code)
	assert.Contains(t, apiErr.Error(), "Invalid OAuth access token")
}

func TestSendTextMessageRetriesThrottling(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited","code":130429}}`))
			return
		}
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.2"}]}`))
	}))
	defer srv.Close()

	c := NewClient(config.WhatsAppConfig{AccessToken: "tok", PhoneNumberID: "123", BaseURL: srv.URL, APIVersion: "v20.0"},
		WithRetry(2, time.Millisecond), WithTimeout(time.Second))
	resp, err := c.SendTextMessage(context.Background(), SendTextMessageRequest{To: "62812", Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "wamid.2", resp.Messages[0].ID)
	assert.EqualValues(t, 2, calls.Load())
}
