package server

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/DirusLupito/Light-Year-Wars-C-sub000/game"
)

func TestSaveAndLoadMatch(t *testing.T) {
	db, err := OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var lvl game.Level
	if err := lvl.Generate(game.GenConfig{FactionCount: 2, PlanetCount: 6, MapName: "dbtest"}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	lvl.SpawnStarship(game.Vec2{X: 10, Y: 20}, game.Vec2{X: 1, Y: 2}, 0, 3)

	rec := MatchRecord{
		ID:        uuid.New().String(),
		MapName:   "dbtest",
		StartedAt: time.Now().Add(-3 * time.Minute),
		Duration:  180,
		Winner:    1,
		Players:   2,
	}
	if err := db.SaveMatch(rec, &lvl); err != nil {
		t.Fatalf("save: %v", err)
	}

	matches, err := db.Matches()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("%d matches stored, want 1", len(matches))
	}
	got := matches[0]
	if got.ID != rec.ID || got.MapName != "dbtest" || got.Winner != 1 || got.Players != 2 {
		t.Errorf("stored record %+v does not match %+v", got, rec)
	}

	arch, err := db.LoadArchive(rec.ID)
	if err != nil {
		t.Fatalf("load archive: %v", err)
	}
	if arch.Winner != 1 {
		t.Errorf("archive winner = %d, want 1", arch.Winner)
	}
	if len(arch.Planets) != len(lvl.Planets) || len(arch.Factions) != len(lvl.Factions) {
		t.Fatalf("archive counts %d/%d, want %d/%d",
			len(arch.Planets), len(arch.Factions), len(lvl.Planets), len(lvl.Factions))
	}
	if len(arch.Ships) != 1 {
		t.Fatalf("archive has %d ships, want 1", len(arch.Ships))
	}
	if arch.Ships[0].Pos != [2]float32{10, 20} || arch.Ships[0].Target != 3 {
		t.Errorf("archived ship = %+v", arch.Ships[0])
	}
	for i, ps := range arch.Planets {
		p := &lvl.Planets[i]
		if ps.Pos != [2]float32{p.Pos.X, p.Pos.Y} || ps.Owner != p.Owner {
			t.Errorf("archived planet %d = %+v, want %+v", i, ps, *p)
		}
	}
}

func TestLoadArchiveUnknownID(t *testing.T) {
	db, err := OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if _, err := db.LoadArchive("nope"); err == nil {
		t.Error("expected error for unknown match id")
	}
}
