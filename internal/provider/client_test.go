// ABOUTME: Tests for the Graph API client against an httptest server
// ABOUTME: Covers token exchange, sends, profile reads, webhook handshakes and error mapping

package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/wadash/internal/store"
)

func configured() store.Settings {
	return store.Settings{
		AppID:             "app-1",
		AppSecret:         "secret",
		PhoneNumberID:     "106540352242922",
		BusinessAccountID: "102290129340398",
	}
}

// fakeGraph serves the subset of the Graph API the client uses.
func fakeGraph(t *testing.T) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var sent []map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("GET /oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("client_id") != "app-1" || q.Get("client_secret") != "secret" || q.Get("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Error validating client secret."}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-123", "token_type": "bearer"})
	})
	mux.HandleFunc("POST /v17.0/106540352242922/messages", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		sent = append(sent, body)
		_, _ = w.Write([]byte(`{"messaging_product":"whatsapp","messages":[{"id":"wamid.sent.1"}]}`))
	})
	mux.HandleFunc("GET /v17.0/102290129340398", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != "tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"102290129340398","name":"Acme Support"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &sent
}

func TestAccessToken(t *testing.T) {
	srv, _ := fakeGraph(t)
	c := New(Options{GraphURL: srv.URL})

	tok, err := c.AccessToken(context.Background(), "app-1", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", tok)

	_, err = c.AccessToken(context.Background(), "app-1", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAPI)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Error validating client secret.", apiErr.Message)

	_, err = c.AccessToken(context.Background(), "", "secret")
	assert.ErrorIs(t, err, ErrIncompleteConfig)
}

func TestSendText(t *testing.T) {
	srv, sent := fakeGraph(t)
	c := New(Options{GraphURL: srv.URL})

	id, err := c.SendText(context.Background(), configured(), "+15550001", "hello there")
	require.NoError(t, err)
	assert.Equal(t, "wamid.sent.1", id)

	require.Len(t, *sent, 1)
	body := (*sent)[0]
	assert.Equal(t, "whatsapp", body["messaging_product"])
	assert.Equal(t, "+15550001", body["to"])
	assert.Equal(t, map[string]any{"body": "hello there"}, body["text"])
}

func TestSendText_IncompleteConfig(t *testing.T) {
	c := New(Options{GraphURL: "http://127.0.0.1:1"})
	st := configured()
	st.PhoneNumberID = ""

	_, err := c.SendText(context.Background(), st, "+1", "x")
	assert.ErrorIs(t, err, ErrIncompleteConfig)
}

func TestSendText_MissingMessageID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"tok"}`))
	})
	mux.HandleFunc("POST /v17.0/106540352242922/messages", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"messages":[]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := New(Options{GraphURL: srv.URL}).SendText(context.Background(), configured(), "+1", "x")
	assert.ErrorIs(t, err, ErrAPI)
}

func TestBusinessProfile(t *testing.T) {
	srv, _ := fakeGraph(t)
	c := New(Options{GraphURL: srv.URL})

	profile, err := c.BusinessProfile(context.Background(), configured())
	require.NoError(t, err)
	assert.Equal(t, "Acme Support", profile["name"])

	st := configured()
	st.BusinessAccountID = ""
	_, err = c.BusinessProfile(context.Background(), st)
	assert.ErrorIs(t, err, ErrIncompleteConfig)
}

func TestVerifyWebhook(t *testing.T) {
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == "vt" {
			_, _ = w.Write([]byte(q.Get("hub.challenge")))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer hook.Close()

	c := New(Options{})
	require.NoError(t, c.VerifyWebhook(context.Background(), hook.URL+"/webhook", "vt"))

	err := c.VerifyWebhook(context.Background(), hook.URL+"/webhook", "wrong")
	assert.ErrorIs(t, err, ErrChallengeMismatch)

	assert.ErrorIs(t, c.VerifyWebhook(context.Background(), "", "vt"), ErrIncompleteConfig)
}

func TestClient_Timeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()

	c := New(Options{GraphURL: slow.URL, Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := c.AccessToken(context.Background(), "app-1", "secret")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
