package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPublishDigestPostsForm(t *testing.T) {
	t.Parallel()

	var gotPath, gotChat, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotChat = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, "abc:123", "42", srv.Client())
	if err := n.PublishDigest(context.Background(), "Processed: 2"); err != nil {
		t.Fatalf("PublishDigest: %v", err)
	}

	if gotPath != "/botabc:123/sendMessage" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotChat != "42" || gotText != "Processed: 2" {
		t.Fatalf("unexpected form chat=%q text=%q", gotChat, gotText)
	}
}

func TestPublishDigestReportsAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, "token", "chat", srv.Client())
	err := n.PublishDigest(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestPublishDigestMisconfigured(t *testing.T) {
	t.Parallel()

	n := NewNotifier("", "", "", nil)
	if err := n.PublishDigest(context.Background(), "x"); err == nil {
		t.Fatalf("expected misconfiguration error")
	}
}

func TestPublishDigestTruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	var gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotText = r.PostForm.Get("text")
	}))
	defer srv.Close()

	// Two-byte runes put the byte limit in the middle of one.
	digest := strings.Repeat("é", maxMessageLen)
	n := NewNotifier(srv.URL, "token", "chat", srv.Client())
	if err := n.PublishDigest(context.Background(), digest); err != nil {
		t.Fatalf("PublishDigest: %v", err)
	}

	if !utf8.ValidString(gotText) {
		t.Fatalf("truncated digest is not valid UTF-8")
	}
	if len(gotText) > maxMessageLen || !strings.HasSuffix(gotText, "...") {
		t.Fatalf("unexpected truncation: %d bytes", len(gotText))
	}
}

func TestTruncateKeepsShortMessages(t *testing.T) {
	t.Parallel()

	if got := truncate("héllo", 10); got != "héllo" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("héllo", 5); got != "h..." {
		t.Fatalf("truncate = %q, want %q", got, "h...")
	}
}
