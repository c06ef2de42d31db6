package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClientTimeout(t *testing.T) {
	c := NewClient(45*time.Second, nil)
	if c.Timeout() != 45*time.Second {
		t.Errorf("Timeout() = %v, want 45s", c.Timeout())
	}
}

func TestGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != defaultUserAgent {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Write([]byte("hello"))
	}))
	defer server.Close()

	c := NewClient(5*time.Second, nil)
	body, err := c.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(body) != "hello" {
		t.Errorf("body = %q", body)
	}
}

func TestGet_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	c := NewClient(5*time.Second, nil)
	_, err := c.Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Get() expected error for 403")
	}
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %T, want *TransportError", err)
	}
	if terr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", terr.StatusCode)
	}
}

func TestGet_SlowServerHitsBackstop(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	c := NewClient(100*time.Millisecond, nil)
	_, err := c.Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Get() expected timeout error")
	}
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %T, want *TransportError", err)
	}
}
