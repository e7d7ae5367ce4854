package player

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ytget/ytdlpp/internal/httpengine"
)

func TestExtractPlayerURLAssetsJS(t *testing.T) {
	html := `<html>ytcfg.set({"assets":{"js":"/s/player/abc123/base.js"}});</html>`
	u, ok := ExtractPlayerURL(html)
	if !ok {
		t.Fatal("expected a match")
	}
	want := "https://www.youtube.com/s/player/abc123/base.js"
	if u != want {
		t.Errorf("got %q, want %q", u, want)
	}
}

func TestExtractPlayerURLBasePathFallback(t *testing.T) {
	html := `<script src="https://www.youtube.com/s/player/zz9/base.js"></script>`
	u, ok := ExtractPlayerURL(html)
	if !ok {
		t.Fatal("expected a match")
	}
	if u != "https://www.youtube.com/s/player/zz9/base.js" {
		t.Errorf("got %q", u)
	}
}

func TestExtractPlayerURLRegexFallback(t *testing.T) {
	html := `var cfg = {"jsUrl":"\/s\/player\/deadbeef\/base.js"};`
	u, ok := ExtractPlayerURL(html)
	if !ok {
		t.Fatal("expected a match")
	}
	if u != "https://www.youtube.com/s/player/deadbeef/base.js" {
		t.Errorf("got %q", u)
	}
}

func TestExtractPlayerURLNoMatch(t *testing.T) {
	if _, ok := ExtractPlayerURL("<html>nothing here</html>"); ok {
		t.Fatal("expected no match")
	}
}

func TestPlayerID(t *testing.T) {
	id, ok := PlayerID("https://www.youtube.com/s/player/abc123/base.js")
	if !ok || id != "abc123" {
		t.Fatalf("got (%q, %v)", id, ok)
	}
}

func TestFetcherFetchCachesToDiskAndMemory(t *testing.T) {
	const script = "var decipher = function(a){return a;};"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(script))
	}))
	defer srv.Close()

	dir := t.TempDir()
	eng := httpengine.New(httpengine.Config{})
	f := New(eng, dir)

	c, err := f.Fetch(context.Background(), srv.URL+"/s/player/mytestplayer/base.js")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if c.Source != script {
		t.Errorf("got source %q, want %q", c.Source, script)
	}

	diskPath := filepath.Join(dir, "mytestplayer.js")
	b, err := os.ReadFile(diskPath)
	if err != nil {
		t.Fatalf("expected disk cache file: %v", err)
	}
	if string(b) != script {
		t.Errorf("disk cache content mismatch: %q", string(b))
	}

	c2, err := f.Fetch(context.Background(), srv.URL+"/s/player/mytestplayer/base.js")
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if c2 != c {
		t.Error("expected second fetch to hit the in-memory cache and return the same pointer")
	}
}

func TestFetcherReadsExistingDiskCacheWithoutRefetching(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "precached.js"), []byte("var x=1;"), 0o644); err != nil {
		t.Fatal(err)
	}
	eng := httpengine.New(httpengine.Config{})
	f := New(eng, dir)

	c, err := f.Fetch(context.Background(), "https://example.invalid/s/player/precached/base.js")
	if err != nil {
		t.Fatalf("Fetch should use disk cache without a network call: %v", err)
	}
	if c.Source != "var x=1;" {
		t.Errorf("got %q", c.Source)
	}
}
