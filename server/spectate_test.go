package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startTestHub(t *testing.T) (*SpectatorHub, *httptest.Server) {
	t.Helper()
	h := NewSpectatorHub()
	go h.Run()
	t.Cleanup(h.Stop)
	srv := httptest.NewServer(h.Handler())
	t.Cleanup(srv.Close)
	return h, srv
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

// waitClaims blocks until the hub holds n per-IP claims for localhost; the
// claim lands moments after the dialer sees the 101 response.
func waitClaims(t *testing.T, h *SpectatorHub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.mu.RLock()
		got := h.ipConns["127.0.0.1"]
		h.mu.RUnlock()
		if got >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("per-IP claims never reached %d", n)
}

func TestFailedUpgradesDoNotConsumeSlots(t *testing.T) {
	h, srv := startTestHub(t)

	// Plain GETs fail the websocket handshake. None of them may hold a
	// slot afterwards, no matter how many arrive from one IP.
	for i := 0; i < maxSpectatorsPerIP+1; i++ {
		resp, err := http.Get(srv.URL)
		if err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusServiceUnavailable {
			t.Fatalf("request %d refused as over-capacity; failed handshakes are holding slots", i+1)
		}
	}
	h.mu.RLock()
	leaked := h.ipConns["127.0.0.1"]
	h.mu.RUnlock()
	if leaked != 0 {
		t.Fatalf("%d per-IP claims held with zero spectators connected", leaked)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv.URL), nil)
	if err != nil {
		t.Fatalf("viewer refused after failed handshakes: %v", err)
	}
	conn.Close()
}

func TestPerIPLimitStillHolds(t *testing.T) {
	h, srv := startTestHub(t)

	conns := make([]*websocket.Conn, 0, maxSpectatorsPerIP)
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()
	for i := 0; i < maxSpectatorsPerIP; i++ {
		c, _, err := websocket.DefaultDialer.Dial(wsURL(srv.URL), nil)
		if err != nil {
			t.Fatalf("viewer %d refused: %v", i+1, err)
		}
		conns = append(conns, c)
		waitClaims(t, h, i+1)
	}

	if c, resp, err := websocket.DefaultDialer.Dial(wsURL(srv.URL), nil); err == nil {
		c.Close()
		t.Fatal("viewer past the per-IP limit was accepted")
	} else if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("over-limit dial failed with %v, want a service-unavailable refusal", err)
	}
}

func TestStoppedHubRefusesViewers(t *testing.T) {
	h, srv := startTestHub(t)
	h.Stop()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d after shutdown", resp.StatusCode, http.StatusServiceUnavailable)
	}
}
