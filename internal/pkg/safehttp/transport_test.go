package safehttp

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewClient_RefusesLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewClient(5 * time.Second)
	resp, err := client.Get(ts.URL)
	if err == nil {
		resp.Body.Close()
		t.Fatal("expected loopback dial to be refused")
	}
	if !strings.Contains(err.Error(), "is denied") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewClient_Timeout(t *testing.T) {
	if got := NewClient(7 * time.Second).Timeout; got != 7*time.Second {
		t.Errorf("Timeout = %v, want 7s", got)
	}
}
