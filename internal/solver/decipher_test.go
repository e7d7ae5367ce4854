package solver

import (
	"context"
	"testing"
)

func TestDecipherFallsBackToIdentityWhenNoSolverReady(t *testing.T) {
	d := NewDecipherer()
	defer d.Close()

	if err := d.LoadPlayer(context.Background(), "not a player script at all", "badplayer"); err != nil {
		t.Fatalf("LoadPlayer should not error on unrecognized shape: %v", err)
	}
	if d.Ready("badplayer") {
		t.Fatal("expected Ready to be false")
	}

	if got := d.DecipherSignature(context.Background(), "badplayer", "xyz123"); got != "xyz123" {
		t.Errorf("expected identity fallback, got %q", got)
	}
	if got := d.TransformN(context.Background(), "badplayer", "abc"); got != "abc" {
		t.Errorf("expected identity fallback, got %q", got)
	}
}

func TestDecipherLoadsAndSolvesRealisticPlayer(t *testing.T) {
	d := NewDecipherer()
	defer d.Close()

	if err := d.LoadPlayer(context.Background(), fakePlayerSource, "playerX"); err != nil {
		t.Fatalf("LoadPlayer: %v", err)
	}
	if !d.Ready("playerX") {
		t.Fatal("expected Ready to be true")
	}

	out := d.DecipherSignature(context.Background(), "playerX", "abcdef")
	if out == "" {
		t.Error("expected a non-empty deciphered signature")
	}
}
