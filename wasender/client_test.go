package wasender

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSendTextFormatsRecipient(t *testing.T) {
	t.Parallel()

	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/send-message" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(apiEnvelope{Success: true})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 0)
	if err := c.SendText(context.Background(), "5544990011222@s.whatsapp.net", "olá"); err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
	if got.To != "5544990011222" {
		t.Fatalf("SendText() to = %q, want bare number", got.To)
	}
	if got.Text != "olá" {
		t.Fatalf("SendText() text = %q", got.Text)
	}
}

func TestSendTextRetriesTransient(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(apiEnvelope{Success: true})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 3)
	c.backoff = time.Millisecond
	if err := c.SendText(context.Background(), "5544990011222", "oi"); err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
	if calls != 3 {
		t.Fatalf("SendText() calls = %d, want 3", calls)
	}
}

func TestSendTextAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(apiEnvelope{Success: false, Message: "invalid api key"})
	}))
	defer srv.Close()

	c := New(srv.URL, "bad", 2)
	err := c.SendText(context.Background(), "5544990011222", "oi")
	if err == nil {
		t.Fatalf("SendText() expected error")
	}
}

func TestSendMediaRequiresURL(t *testing.T) {
	t.Parallel()

	c := New("http://unused", "tok", 0)
	err := c.SendMedia(context.Background(), "5544990011222", KindImage, "", "caption")
	if !errors.Is(err, ErrMissingMediaURL) {
		t.Fatalf("SendMedia() error = %v, want ErrMissingMediaURL", err)
	}
}

func TestSendMediaShapes(t *testing.T) {
	t.Parallel()

	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(apiEnvelope{Success: true})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 0)
	if err := c.SendMedia(context.Background(), "5544990011222", KindDocument, "https://files.example/nota.pdf", "sua nota"); err != nil {
		t.Fatalf("SendMedia() error = %v", err)
	}
	if got.DocumentURL != "https://files.example/nota.pdf" || got.Text != "sua nota" {
		t.Fatalf("SendMedia() request = %+v", got)
	}
}

func TestGroups(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/groups" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []map[string]any{
				{"id": "120363012345678901@g.us", "name": "Atendimento"},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 0)
	groups, err := c.Groups(context.Background())
	if err != nil {
		t.Fatalf("Groups() error = %v", err)
	}
	if len(groups) != 1 || groups[0].ID != "120363012345678901@g.us" {
		t.Fatalf("Groups() = %+v", groups)
	}
}
