package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"BoardRelay/internal/domain"
	"BoardRelay/internal/ports"
)

func newTestClient(server *httptest.Server) *Client {
	c := NewClient(server.URL, "TOKEN", "42", time.Millisecond, nil)
	c.client = server.Client()
	return c
}

func TestSendText(t *testing.T) {
	t.Parallel()

	var gotPath, gotText, gotMode string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotText = r.PostForm.Get("text")
		gotMode = r.PostForm.Get("parse_mode")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := newTestClient(server)
	if err := c.SendText(context.Background(), "hello"); err != nil {
		t.Fatalf("SendText error: %v", err)
	}

	if gotPath != "/botTOKEN/sendMessage" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotText != "hello" || gotMode != "HTML" {
		t.Fatalf("unexpected form: text=%q mode=%q", gotText, gotMode)
	}
}

func TestSendMediaGroup(t *testing.T) {
	t.Parallel()

	var payload struct {
		ChatID string `json:"chat_id"`
		Media  []struct {
			Type    string `json:"type"`
			Media   string `json:"media"`
			Caption string `json:"caption"`
		} `json:"media"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMediaGroup" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := newTestClient(server)
	items := []domain.MediaItem{
		{Type: domain.MediaPhoto, URL: "https://x/a.jpg", Caption: "cap"},
		{Type: domain.MediaVideo, URL: "https://x/b.mp4"},
	}
	if err := c.SendMediaGroup(context.Background(), items); err != nil {
		t.Fatalf("SendMediaGroup error: %v", err)
	}

	if payload.ChatID != "42" || len(payload.Media) != 2 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.Media[0].Type != "photo" || payload.Media[0].Caption != "cap" {
		t.Fatalf("unexpected first item: %+v", payload.Media[0])
	}
	if payload.Media[1].Type != "video" || payload.Media[1].Caption != "" {
		t.Fatalf("unexpected second item: %+v", payload.Media[1])
	}
}

func TestNonOKStatusIsRejection(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: wrong file"}`))
	}))
	defer server.Close()

	c := newTestClient(server)
	err := c.SendMediaGroup(context.Background(), []domain.MediaItem{{Type: domain.MediaPhoto, URL: "https://x/a.jpg"}})

	var rej *ports.Rejection
	if !errors.As(err, &rej) {
		t.Fatalf("expected a rejection, got %v", err)
	}
	if rej.Code != 400 || rej.Description != "Bad Request: wrong file" {
		t.Fatalf("unexpected rejection: %+v", rej)
	}
}

func TestMalformedBodyIsRejection(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway error</html>`))
	}))
	defer server.Close()

	c := newTestClient(server)
	err := c.SendText(context.Background(), "hello")

	var rej *ports.Rejection
	if !errors.As(err, &rej) {
		t.Fatalf("expected a rejection, got %v", err)
	}
}

func TestTransportErrorIsNotRejection(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	c := NewClient(server.URL, "TOKEN", "42", time.Millisecond, nil)
	err := c.SendText(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected an error")
	}

	var rej *ports.Rejection
	if errors.As(err, &rej) {
		t.Fatalf("transport failure must not classify as rejection: %v", err)
	}
}
