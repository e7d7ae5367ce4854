package ytdlpp

import (
	"context"
	"testing"
)

func TestSearchRejectsNonSearchURL(t *testing.T) {
	d := New()
	_, matched, err := d.Search(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if matched {
		t.Fatal("expected a non-ytsearch URL to not match")
	}
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	d := New()
	_, matched, err := d.Search(context.Background(), "ytsearch:")
	if !matched {
		t.Fatal("expected ytsearch: to match the grammar")
	}
	if err == nil {
		t.Fatal("expected an error for an empty query")
	}
}

func TestWithFormatIsChainable(t *testing.T) {
	d := New().WithFormat("best").WithMergeFormat(".MKV").WithRateLimit(-5)
	if d.opts.formatSelector != "best" {
		t.Errorf("got %q", d.opts.formatSelector)
	}
	if d.opts.mergeFormat != "mkv" {
		t.Errorf("got %q", d.opts.mergeFormat)
	}
	if d.opts.rateLimitBps != 0 {
		t.Errorf("expected negative rate limit to clamp to 0, got %d", d.opts.rateLimitBps)
	}
}

func TestWithClientOrderIsStored(t *testing.T) {
	d := New().WithClientOrder([]string{"web", "tv"})
	if len(d.opts.clientOrder) != 2 || d.opts.clientOrder[0] != "web" {
		t.Errorf("got %v", d.opts.clientOrder)
	}
}
