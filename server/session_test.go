package server

import (
	"fmt"
	"net"
	"testing"

	"github.com/DirusLupito/Light-Year-Wars-C-sub000/game"
)

func testAddr(t *testing.T, port int) *net.UDPAddr {
	t.Helper()
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return addr
}

func TestJoinAssignsFactionsFirstFit(t *testing.T) {
	table := NewPlayerTable(4, 4)
	for i := 0; i < 4; i++ {
		p := table.Join(testAddr(t, 9000+i), fmt.Sprintf("P%d", i))
		if p == nil {
			t.Fatalf("join %d refused", i)
		}
		if p.Faction != int32(i) {
			t.Errorf("player %d bound to faction %d, want %d", i, p.Faction, i)
		}
		if !p.AwaitingFull {
			t.Errorf("player %d not awaiting full sync", i)
		}
	}
	if table.Count() != 4 {
		t.Errorf("count = %d, want 4", table.Count())
	}
}

func TestJoinRefusedWhenFull(t *testing.T) {
	table := NewPlayerTable(2, 2)
	table.Join(testAddr(t, 9100), "A")
	table.Join(testAddr(t, 9101), "B")
	if p := table.Join(testAddr(t, 9102), "C"); p != nil {
		t.Errorf("third join got faction %d, want refusal", p.Faction)
	}
}

func TestJoinRebindsExistingAddress(t *testing.T) {
	table := NewPlayerTable(4, 4)
	first := table.Join(testAddr(t, 9200), "A")
	first.AwaitingFull = false
	first.InactiveFor = 50

	again := table.Join(testAddr(t, 9200), "A")
	if again == nil {
		t.Fatal("rebind refused")
	}
	if again.Faction != first.Faction {
		t.Errorf("rebind moved faction %d -> %d", first.Faction, again.Faction)
	}
	if !again.AwaitingFull {
		t.Error("rebind should re-flag awaiting full sync")
	}
	if again.InactiveFor != 0 {
		t.Errorf("rebind left inactivity at %v", again.InactiveFor)
	}
	if table.Count() != 1 {
		t.Errorf("count = %d after rebind, want 1 (no duplicate)", table.Count())
	}
}

func TestTimeoutFreesFactionForNextJoin(t *testing.T) {
	table := NewPlayerTable(2, 2)
	table.Join(testAddr(t, 9300), "A")
	table.Join(testAddr(t, 9301), "B")

	// A goes silent; B keeps talking.
	for i := 0; i < 10; i++ {
		table.Touch(testAddr(t, 9301))
		removed := table.Tick(1, 5)
		for _, p := range removed {
			if p.Name != "A" {
				t.Errorf("removed %q, want only A", p.Name)
			}
		}
	}
	if table.Count() != 1 {
		t.Fatalf("count = %d, want 1 after timeout", table.Count())
	}
	if table.ByFaction(0) != nil {
		t.Error("faction 0 still bound after timeout")
	}

	p := table.Join(testAddr(t, 9302), "C")
	if p == nil {
		t.Fatal("join refused after a slot was freed")
	}
	if p.Faction != 0 {
		t.Errorf("new player bound to faction %d, want freed faction 0", p.Faction)
	}
}

func TestTouchUnknownEndpoint(t *testing.T) {
	table := NewPlayerTable(2, 2)
	if p, ok := table.Touch(testAddr(t, 9400)); p != nil || ok {
		t.Error("unknown endpoint should not resolve to a session")
	}
}

func TestZeroTimeoutKeepsIdleSessions(t *testing.T) {
	table := NewPlayerTable(1, 1)
	table.Join(testAddr(t, 9500), "A")
	for i := 0; i < 100; i++ {
		if removed := table.Tick(10, 0); len(removed) != 0 {
			t.Fatal("timeout 0 must never remove sessions")
		}
	}
	if table.Count() != 1 {
		t.Errorf("count = %d, want 1", table.Count())
	}
}

func TestFreeFactionSkipsBoundOnes(t *testing.T) {
	table := NewPlayerTable(3, 3)
	a := table.Join(testAddr(t, 9600), "A")
	table.Join(testAddr(t, 9601), "B")
	if a.Faction != 0 {
		t.Fatalf("first join got faction %d", a.Faction)
	}

	// Free faction 0 via timeout, keep faction 1 bound.
	a.InactiveFor = 100
	table.Tick(1, 5)
	c := table.Join(testAddr(t, 9602), "C")
	if c == nil || c.Faction != 0 {
		t.Errorf("expected refill of faction 0, got %+v", c)
	}
	d := table.Join(testAddr(t, 9603), "D")
	if d == nil || d.Faction != 2 {
		t.Errorf("expected faction 2 next, got %+v", d)
	}
	if got := table.freeFaction(); got != game.NoFaction {
		t.Errorf("freeFaction = %d with every faction bound, want none", got)
	}
}
