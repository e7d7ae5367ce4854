// Package player implements the Player-Script Fetcher: it downloads the
// watch page, extracts the base.js URL and player_id, fetches base.js, and
// persists it to an on-disk cache keyed by player_id.
package player

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ytget/ytdlpp/errs"
	"github.com/ytget/ytdlpp/internal/httpengine"
)

const ytBase = "https://www.youtube.com"

// Cached is a CachedPlayer: the raw JavaScript text for a given player_id,
// with the fetch time recorded for diagnostics.
type Cached struct {
	PlayerID   string
	Source     string
	FetchedAt  time.Time
}

// playerURLStrategies are tried in order, first match wins, mirroring the
// fallback chain real watch-page markup has used across YouTube's own
// frontend revisions.
var playerURLStrategies = []*regexp.Regexp{
	regexp.MustCompile(`"jsUrl":"([^"]+)"`),
	regexp.MustCompile(`"PLAYER_JS_URL":"([^"]+)"`),
	regexp.MustCompile(`src="([^"]*/player/[^"]+/base\.js)"`),
}

var playerIDRe = regexp.MustCompile(`/player/([^/]+)/`)

// Fetcher fetches and caches player scripts. A Fetcher is safe for
// concurrent use; cache population races are resolved optimistically (the
// last writer to finish simply overwrites the file — see spec's player
// cache contention note).
type Fetcher struct {
	engine   *httpengine.Engine
	cacheDir string

	mu    sync.Mutex
	mem   map[string]*Cached
}

// New builds a Fetcher using engine for HTTP and cacheDir as the on-disk
// cache root (created on demand). An empty cacheDir defaults to
// os.TempDir()/ytdlpp_cache.
func New(engine *httpengine.Engine, cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "ytdlpp_cache")
	}
	return &Fetcher{engine: engine, cacheDir: cacheDir, mem: make(map[string]*Cached)}
}

// ExtractPlayerURL locates the base.js URL inside watch-page HTML using the
// fast-path string searches first, then the regex fallbacks, returning a
// URL resolved against ytBase when the match was a relative path.
func ExtractPlayerURL(html string) (string, bool) {
	if u, ok := fastExtractAssetsJS(html); ok {
		return resolvePlayerURL(u), true
	}
	if u, ok := fastExtractBasePath(html); ok {
		return resolvePlayerURL(u), true
	}
	for _, re := range playerURLStrategies {
		m := re.FindStringSubmatch(html)
		if len(m) == 2 && m[1] != "" {
			return resolvePlayerURL(unescapeSlashes(m[1])), true
		}
	}
	return "", false
}

func fastExtractAssetsJS(html string) (string, bool) {
	const marker = `"assets":{"js":"`
	idx := strings.Index(html, marker)
	if idx < 0 {
		return "", false
	}
	start := idx + len(marker)
	end := strings.IndexByte(html[start:], '"')
	if end < 0 {
		return "", false
	}
	return unescapeSlashes(html[start : start+end]), true
}

func fastExtractBasePath(html string) (string, bool) {
	const marker = "/s/player/"
	idx := strings.Index(html, marker)
	if idx < 0 {
		return "", false
	}
	end := strings.Index(html[idx:], "base.js")
	if end < 0 {
		return "", false
	}
	return html[idx : idx+end+len("base.js")], true
}

func unescapeSlashes(s string) string {
	return strings.ReplaceAll(s, `\/`, "/")
}

func resolvePlayerURL(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return ytBase + u
}

// PlayerID extracts the slug between "/player/" and the following "/" from
// a base.js URL.
func PlayerID(playerURL string) (string, bool) {
	m := playerIDRe.FindStringSubmatch(playerURL)
	if len(m) != 2 || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// FetchWatchPage retrieves the watch page HTML for videoID.
func (f *Fetcher) FetchWatchPage(ctx context.Context, videoID string) (string, error) {
	u := ytBase + "/watch?v=" + videoID
	resp, err := f.engine.Get(ctx, u, nil)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != 200 {
		return "", errs.New(errs.KindHTTPError, "watch page returned status "+strconv.Itoa(resp.StatusCode))
	}
	return string(resp.Body), nil
}

// Fetch resolves playerURL's player_id, returning a cached copy if either
// the in-memory or on-disk cache already has it, else downloading,
// persisting, and returning the fresh copy.
func (f *Fetcher) Fetch(ctx context.Context, playerURL string) (*Cached, error) {
	playerID, ok := PlayerID(playerURL)
	if !ok {
		playerID = fallbackPlayerID(playerURL)
	}

	f.mu.Lock()
	if c, ok := f.mem[playerID]; ok {
		f.mu.Unlock()
		return c, nil
	}
	f.mu.Unlock()

	if src, ok := f.readDiskCache(playerID); ok {
		c := &Cached{PlayerID: playerID, Source: src, FetchedAt: time.Now()}
		f.mu.Lock()
		f.mem[playerID] = c
		f.mu.Unlock()
		return c, nil
	}

	resp, err := f.engine.Get(ctx, playerURL, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, errs.New(errs.KindHTTPError, "player script fetch returned status "+strconv.Itoa(resp.StatusCode))
	}
	src := string(resp.Body)

	f.writeDiskCache(playerID, src) // best-effort; cache misses never fail extraction

	c := &Cached{PlayerID: playerID, Source: src, FetchedAt: time.Now()}
	f.mu.Lock()
	f.mem[playerID] = c
	f.mu.Unlock()
	return c, nil
}

func fallbackPlayerID(playerURL string) string {
	h := 0
	for _, r := range playerURL {
		h = h*31 + int(r)
	}
	return "unknown" + strconv.Itoa(h)
}

func (f *Fetcher) cachePath(playerID string) string {
	return filepath.Join(f.cacheDir, playerID+".js")
}

func (f *Fetcher) readDiskCache(playerID string) (string, bool) {
	b, err := os.ReadFile(f.cachePath(playerID))
	if err != nil {
		return "", false
	}
	return string(b), true
}

// writeDiskCache writes via a temp file plus rename so concurrent writers
// for the same player_id never observe a partially written file.
func (f *Fetcher) writeDiskCache(playerID, source string) {
	if err := os.MkdirAll(f.cacheDir, 0o755); err != nil {
		return
	}
	tmp, err := os.CreateTemp(f.cacheDir, playerID+".*.tmp")
	if err != nil {
		return
	}
	tmpPath := tmp.Name()
	_, werr := tmp.WriteString(source)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmpPath)
		return
	}
	if err := os.Rename(tmpPath, f.cachePath(playerID)); err != nil {
		os.Remove(tmpPath)
	}
}

// ClearCache drops both the in-memory and on-disk entries for playerID.
func (f *Fetcher) ClearCache(playerID string) error {
	f.mu.Lock()
	delete(f.mem, playerID)
	f.mu.Unlock()
	err := os.Remove(f.cachePath(playerID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear player cache: %w", err)
	}
	return nil
}
