// Package extraction implements the Extraction Session: the per-URL state
// machine that turns a video id into a fully reconstructed VideoInfo.
package extraction

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ytget/ytdlpp/errs"
	"github.com/ytget/ytdlpp/internal/httpengine"
	"github.com/ytget/ytdlpp/internal/logger"
	"github.com/ytget/ytdlpp/internal/player"
	"github.com/ytget/ytdlpp/internal/potoken"
	"github.com/ytget/ytdlpp/internal/solver"
	"github.com/ytget/ytdlpp/types"
	"github.com/ytget/ytdlpp/youtube/innertube"
)

var videoIDRe = regexp.MustCompile(`(?:v=|youtu\.be/|/shorts/|/embed/)([a-zA-Z0-9_-]{11})`)

// ParseVideoID extracts an 11-character video id from a watch, short-link,
// shorts, or embed URL, or a bare id.
func ParseVideoID(rawURL string) (string, bool) {
	if m := videoIDRe.FindStringSubmatch(rawURL); len(m) == 2 {
		return m[1], true
	}
	if len(rawURL) == 11 && !strings.ContainsAny(rawURL, "/:?&=") {
		return rawURL, true
	}
	return "", false
}

// Extractor owns the long-lived resources an Extraction Session borrows: the
// HTTP Engine, the Player-Script Fetcher's cache, and the Signature
// Decipherer's JS Sandbox. One Extractor typically serves a whole process.
type Extractor struct {
	engine     *httpengine.Engine
	fetcher    *player.Fetcher
	decipherer *solver.Decipherer
	itClient   *innertube.Client

	poProvider potoken.Provider
	poMode     potoken.Mode
	poCache    potoken.Cache

	clientOrder []string

	shutdown atomic.Bool
}

// WithClientOrder overrides the default {android_sdkless, tv, web_safari,
// web} fan-out priority order, mainly for tests that want to pin which
// client's response wins ties deterministically.
func (e *Extractor) WithClientOrder(order []string) *Extractor {
	e.clientOrder = order
	return e
}

// order returns the fan-out priority order to walk: the Extractor's override
// if set, otherwise innertube.FanOutOrder.
func (e *Extractor) order() []string {
	if len(e.clientOrder) > 0 {
		return e.clientOrder
	}
	return innertube.FanOutOrder
}

// WithPOToken configures the PO-Token attestation slot: a Provider called
// per the Mode (Off/Auto/Force) to fill in Tokens.POToken when the watch
// page's scraped value is missing or when Mode is Force, with an optional
// Cache to avoid re-attesting identical inputs.
func (e *Extractor) WithPOToken(provider potoken.Provider, mode potoken.Mode, cache potoken.Cache) *Extractor {
	e.poProvider = provider
	e.poMode = mode
	e.poCache = cache
	return e
}

// resolvePOToken applies the configured Mode on top of a scraped token.
func (e *Extractor) resolvePOToken(ctx context.Context, scraped string, videoID, playerID string) string {
	if e.poProvider == nil || e.poMode == potoken.Off {
		return scraped
	}
	if scraped != "" && e.poMode == potoken.Auto {
		return scraped
	}

	in := potoken.Input{ClientName: "web", VisitorID: playerID, PageURL: "https://www.youtube.com/watch?v=" + videoID}
	key := potoken.KeyFromInput(in)
	if e.poCache != nil {
		if out, ok := e.poCache.Get(key); ok {
			return out.Token
		}
	}
	out, err := e.poProvider.Fetch(ctx, in)
	if err != nil || out.Token == "" {
		return scraped
	}
	if e.poCache != nil {
		e.poCache.Set(key, out)
	}
	return out.Token
}

// NewExtractor wires an Extractor from an existing HTTP Engine and cache
// directory (empty defaults to the OS temp dir, per the Player-Script
// Fetcher's contract).
func NewExtractor(engine *httpengine.Engine, cacheDir string) *Extractor {
	return &Extractor{
		engine:     engine,
		fetcher:    player.New(engine, cacheDir),
		decipherer: solver.NewDecipherer(),
		itClient:   innertube.NewClient(engine),
	}
}

// Shutdown sets the cancellation flag every outstanding session checks at
// each transition, and tears down the sandbox.
func (e *Extractor) Shutdown() {
	e.shutdown.Store(true)
	e.decipherer.Close()
}

// session is the per-extraction state carried between transitions.
type session struct {
	ex      *Extractor
	videoID string

	playerID     string
	tokens       innertube.Tokens
	solverReady  bool
}

func (s *session) cancelled() bool { return s.ex.shutdown.Load() }

// Extract runs the full state machine for videoURL and returns the
// resulting VideoInfo, or an error kind per spec §4.4.
func (e *Extractor) Extract(ctx context.Context, videoURL string) (*types.VideoInfo, error) {
	log := logger.WithComponent(logger.ComponentInnertube)

	// Start -> ParseUrl
	videoID, ok := ParseVideoID(videoURL)
	if !ok {
		return nil, errs.New(errs.KindInvalidURL, "could not parse a video id from "+videoURL)
	}
	s := &session{ex: e, videoID: videoID}
	if s.cancelled() {
		return nil, errs.ErrCancelled
	}

	// FetchWatchPage
	html, err := e.fetcher.FetchWatchPage(ctx, videoID)
	if err != nil {
		return nil, errs.Wrap(errs.KindRequestFailed, "fetching watch page", err)
	}
	if s.cancelled() {
		return nil, errs.ErrCancelled
	}

	// ExtractPlayerUrl -> {LoadSolver(skip) | ExtractTokens -> LoadSolver}
	if playerURL, found := player.ExtractPlayerURL(html); found {
		s.playerID, _ = player.PlayerID(playerURL)
		s.tokens = extractTokens(html)
		s.tokens.POToken = e.resolvePOToken(ctx, s.tokens.POToken, videoID, s.playerID)

		cached, err := e.fetcher.Fetch(ctx, playerURL)
		if err != nil {
			log.Warn().Err(err).Msg("player script fetch failed; falling back to identity solver")
		} else {
			if err := e.decipherer.LoadPlayer(ctx, cached.Source, s.playerID); err != nil {
				log.Warn().Err(err).Msg("solver load failed; falling back to identity")
			}
			s.solverReady = e.decipherer.Ready(s.playerID)
		}
	} else {
		log.Warn().Str("video_id", videoID).Msg("no player script found; identity decipher only")
	}
	if s.cancelled() {
		return nil, errs.ErrCancelled
	}

	// FetchTvConfig is a best-effort enrichment step some original clients
	// use to pick up a fresher INNERTUBE_CONTEXT; since every fan-out
	// client already carries its own hardcoded client context, this
	// session treats it as a no-op probe that never blocks the fan-out.

	// FanOutClients -> JoinResponses
	responses := e.fanOut(ctx, videoID, s)
	if s.cancelled() {
		return nil, errs.ErrCancelled
	}

	primary := firstAccepted(responses, e.order())
	if primary == nil {
		return nil, errs.New(errs.KindVideoNotFound, "all clients unplayable for "+videoID)
	}

	// BuildFormats (ProcessFormat per format) -> Finalize
	info := buildVideoInfo(primary)
	info.Formats = s.buildFormats(ctx, responses)

	return info, nil
}

// fanOut issues one POST per client in the priority order concurrently and
// collects every response that didn't fail outright. Per-client failures
// are logged and simply omitted from the join — the session only fails if
// every client fails.
func (e *Extractor) fanOut(ctx context.Context, videoID string, s *session) []*innertube.PlayerResponse {
	log := logger.WithComponent(logger.ComponentInnertube)
	order := e.order()
	results := make([]*innertube.PlayerResponse, len(order))

	g, gctx := errgroup.WithContext(ctx)
	for i, key := range order {
		i, key := i, key
		g.Go(func() error {
			resp, err := e.itClient.PostPlayer(gctx, key, videoID, s.tokens)
			if err != nil {
				log.Warn().Err(err).Str("client", key).Msg("innertube player request failed")
				return nil // non-fatal: this client's slot just stays nil
			}
			results[i] = resp
			return nil
		})
	}
	_ = g.Wait() // errors are already swallowed per-client above; g.Wait() only awaits completion

	var out []*innertube.PlayerResponse
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// firstAccepted walks responses in the given client-priority order and
// returns the first one with Accepted == true — the primary metadata
// source, deterministic regardless of arrival order.
func firstAccepted(responses []*innertube.PlayerResponse, order []string) *innertube.PlayerResponse {
	byClient := make(map[string]*innertube.PlayerResponse, len(responses))
	for _, r := range responses {
		byClient[r.ClientKey] = r
	}
	for _, key := range order {
		if r, ok := byClient[key]; ok && r.Accepted {
			return r
		}
	}
	return nil
}

func buildVideoInfo(primary *innertube.PlayerResponse) *types.VideoInfo {
	info := &types.VideoInfo{
		ID:         primary.VideoID,
		Title:      primary.Title,
		FullTitle:  primary.Title,
		Uploader:   primary.Author,
		ChannelID:  primary.ChannelID,
		Duration:   primary.Duration,
		ViewCount:  primary.ViewCount,
		IsLive:     primary.IsLive,
		WasLive:    primary.WasLive,
		Thumbnails: primary.Thumbnails,
		WebpageURL: "https://www.youtube.com/watch?v=" + primary.VideoID,
	}
	switch {
	case primary.IsLive:
		info.LiveStatus = types.LiveStatusIsLive
	case primary.WasLive:
		info.LiveStatus = types.LiveStatusWasLive
	default:
		info.LiveStatus = types.LiveStatusNotLive
	}
	info.Availability = types.AvailabilityPublic
	return info
}

// buildFormats runs ProcessFormat over every format in every accepted
// response, warns per-client on drops, and dedups by itag with first-wins
// in client-priority order.
func (s *session) buildFormats(ctx context.Context, responses []*innertube.PlayerResponse) []types.VideoFormat {
	log := logger.WithComponent(logger.ComponentFormat)

	order := s.ex.order()
	priority := make(map[string]int, len(order))
	for i, k := range order {
		priority[k] = i
	}
	byClient := make(map[string]*innertube.PlayerResponse)
	for _, r := range responses {
		if r.Accepted {
			byClient[r.ClientKey] = r
		}
	}

	var ordered []*innertube.PlayerResponse
	for _, key := range order {
		if r, ok := byClient[key]; ok {
			ordered = append(ordered, r)
		}
	}

	dropWarnings := make(map[string]int)
	seen := make(map[int]bool)
	var out []types.VideoFormat

	for _, r := range ordered {
		for _, rfc := range r.RawFormats {
			vf, ok := innertube.BuildVideoFormat(rfc,
				func(sig string) string { return s.ex.decipherer.DecipherSignature(ctx, s.playerID, sig) },
				func(n string) string { return s.ex.decipherer.TransformN(ctx, s.playerID, n) },
			)
			if !ok {
				dropWarnings[rfc.ClientKey]++
				continue
			}
			if seen[vf.Itag] {
				continue
			}
			seen[vf.Itag] = true
			out = append(out, vf)
		}
	}

	for client, n := range dropWarnings {
		diagnostic := "generic"
		if client == "web" || client == "web_safari" {
			diagnostic = "SABR streaming (web)"
		} else if client == "tv" {
			diagnostic = "SABR streaming (tv)"
		}
		log.Warn().Str("client", client).Int("dropped", n).Str("diagnostic", diagnostic).Msg("formats dropped: empty url after solving")
	}
	return out
}

// extractTokens locates ytcfg.set({...}) by brace-matching, parses it as
// JSON, and pulls VISITOR_DATA / INNERTUBE_CONTEXT.client.visitorData, plus
// a best-effort regex scrape for poToken anywhere in the HTML.
func extractTokens(html string) innertube.Tokens {
	var tok innertube.Tokens

	const marker = "ytcfg.set({"
	idx := strings.Index(html, marker)
	if idx >= 0 {
		braceStart := idx + len("ytcfg.set(")
		if end := matchBalancedBrace(html, braceStart); end > braceStart {
			var cfg struct {
				VisitorData       string `json:"VISITOR_DATA"`
				InnertubeContext struct {
					Client struct {
						VisitorData string `json:"visitorData"`
					} `json:"client"`
				} `json:"INNERTUBE_CONTEXT"`
			}
			if err := json.Unmarshal([]byte(html[braceStart:end+1]), &cfg); err == nil {
				tok.VisitorData = cfg.VisitorData
				if tok.VisitorData == "" {
					tok.VisitorData = cfg.InnertubeContext.Client.VisitorData
				}
			}
		}
	}

	if m := poTokenRe.FindStringSubmatch(html); len(m) == 2 {
		tok.POToken = m[1]
	}
	return tok
}

var poTokenRe = regexp.MustCompile(`"poToken":"([^"]+)"`)

func matchBalancedBrace(s string, open int) int {
	if open >= len(s) || s[open] != '{' {
		return -1
	}
	depth := 0
	inStr := false
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if inStr {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				inStr = false
			}
			continue
		}
		switch c {
		case '"', '\'':
			inStr = true
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
