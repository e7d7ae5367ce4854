// Package ytdlpp provides a high-level API to resolve metadata for, search
// for, and download YouTube videos: chainable With* setters build a
// Downloader, then Extract/Download/Search run the pipeline.
package ytdlpp

import (
	"context"
	"strings"

	"github.com/ytget/ytdlpp/downloader"
	"github.com/ytget/ytdlpp/internal/httpengine"
	"github.com/ytget/ytdlpp/internal/logger"
	"github.com/ytget/ytdlpp/internal/potoken"
	"github.com/ytget/ytdlpp/types"
	"github.com/ytget/ytdlpp/youtube/extraction"
	"github.com/ytget/ytdlpp/youtube/innertube"
	"github.com/ytget/ytdlpp/youtube/search"
)

// Progress describes current progress of an ongoing download.
type Progress struct {
	TotalSize      int64
	DownloadedSize int64
	Percent        float64
}

// options holds the state every chainable With* setter mutates.
type options struct {
	httpCfg           httpengine.Config
	formatSelector    string
	preferredLanguage string
	mergeFormat       string
	outputDir         string
	rateLimitBps      int64
	cacheDir          string
	progress          func(Progress)
	clientOrder       []string

	poProvider potoken.Provider
	poMode     potoken.Mode
	poCache    potoken.Cache
}

// Downloader is the high-level entry point: one Downloader owns a shared
// HTTP Engine, Extractor and Download Coordinator across calls.
type Downloader struct {
	opts options
}

// New creates a Downloader with default options.
func New() *Downloader {
	return &Downloader{}
}

// WithFormat sets the format selector grammar string, see youtube/formats.
func (d *Downloader) WithFormat(selector string) *Downloader {
	d.opts.formatSelector = selector
	return d
}

// WithPreferredLanguage biases the Format Selector's audio-track tie-break
// toward tracks tagged with this language code.
func (d *Downloader) WithPreferredLanguage(lang string) *Downloader {
	d.opts.preferredLanguage = lang
	return d
}

// WithHTTPConfig overrides the HTTP Engine's timeout/user-agent/retries/
// proxy. The Engine owns its Transport end-to-end (shared DNS cache,
// connection-pool accounting), so unlike the Engine's predecessor this
// cannot be satisfied by handing in an arbitrary *http.Client.
func (d *Downloader) WithHTTPConfig(cfg httpengine.Config) *Downloader {
	d.opts.httpCfg = cfg
	return d
}

// WithProgress registers a callback that receives progress updates.
func (d *Downloader) WithProgress(f func(Progress)) *Downloader {
	d.opts.progress = f
	return d
}

// WithOutputPath sets the output directory. An empty directory defaults to
// the current directory; the filename is always derived from the video's
// sanitized title.
func (d *Downloader) WithOutputPath(dir string) *Downloader {
	d.opts.outputDir = dir
	return d
}

// WithRateLimit sets a download rate limit in bytes per second. Zero
// disables limiting.
func (d *Downloader) WithRateLimit(bytesPerSecond int64) *Downloader {
	if bytesPerSecond < 0 {
		bytesPerSecond = 0
	}
	d.opts.rateLimitBps = bytesPerSecond
	return d
}

// WithMergeFormat sets the container extension used when the selected
// format pair needs muxing (e.g. "mp4", "mkv"). Defaults to "mp4".
func (d *Downloader) WithMergeFormat(ext string) *Downloader {
	d.opts.mergeFormat = strings.TrimPrefix(strings.ToLower(ext), ".")
	return d
}

// WithCacheDir sets the Player-Script Fetcher's on-disk cache directory.
// Empty defaults to the OS temp dir.
func (d *Downloader) WithCacheDir(dir string) *Downloader {
	d.opts.cacheDir = dir
	return d
}

// WithLogger installs l as the process-wide logger every component's
// logger.WithComponent call resolves against.
func (d *Downloader) WithLogger(l *logger.Logger) *Downloader {
	logger.SetGlobal(l)
	return d
}

// WithPOTokenSolver configures the PO-Token attestation slot.
func (d *Downloader) WithPOTokenSolver(provider potoken.Provider, mode potoken.Mode, cache potoken.Cache) *Downloader {
	d.opts.poProvider = provider
	d.opts.poMode = mode
	d.opts.poCache = cache
	return d
}

// WithClientOrder overrides the Innertube Client Set's default fan-out
// priority order, mainly for pinning a deterministic winner in tests.
func (d *Downloader) WithClientOrder(order []string) *Downloader {
	d.opts.clientOrder = order
	return d
}

func (d *Downloader) newEngine() *httpengine.Engine {
	return httpengine.New(d.opts.httpCfg)
}

func (d *Downloader) newExtractor(engine *httpengine.Engine) *extraction.Extractor {
	e := extraction.NewExtractor(engine, d.opts.cacheDir)
	if d.opts.poProvider != nil {
		e.WithPOToken(d.opts.poProvider, d.opts.poMode, d.opts.poCache)
	}
	if len(d.opts.clientOrder) > 0 {
		e.WithClientOrder(d.opts.clientOrder)
	}
	return e
}

// Resolve runs the Extraction Session for videoURL and returns its
// VideoInfo without downloading anything.
func (d *Downloader) Resolve(ctx context.Context, videoURL string) (*types.VideoInfo, error) {
	engine := d.newEngine()
	return d.newExtractor(engine).Extract(ctx, videoURL)
}

// Download resolves videoURL's metadata and downloads the selected
// format(s), muxing if the selector picked separate video/audio streams.
func (d *Downloader) Download(ctx context.Context, videoURL string) (*types.VideoInfo, error) {
	engine := d.newEngine()
	info, err := d.newExtractor(engine).Extract(ctx, videoURL)
	if err != nil {
		return nil, err
	}

	dl := downloader.New(engine)
	_, err = dl.Download(ctx, info, downloader.Options{
		Selector:          d.opts.formatSelector,
		PreferredLanguage: d.opts.preferredLanguage,
		MergeFormat:       d.opts.mergeFormat,
		OutputDir:         d.opts.outputDir,
		RateLimitBps:      d.opts.rateLimitBps,
		Progress: func(p downloader.Progress) {
			if d.opts.progress != nil {
				d.opts.progress(Progress{TotalSize: p.BytesTotal, DownloadedSize: p.BytesNow, Percent: p.Percent})
			}
		},
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// Search parses a ytsearch<MOD>:<query> pseudo-URL and runs it against
// Innertube, returning up to its MaxResults entries. ok is false if raw
// does not match the ytsearch grammar at all.
func (d *Downloader) Search(ctx context.Context, raw string) ([]types.SearchResult, bool, error) {
	q, matched, err := search.Parse(raw)
	if !matched {
		return nil, false, nil
	}
	if err != nil {
		return nil, true, err
	}

	engine := d.newEngine()
	itClient := innertube.NewClient(engine)
	results, err := search.Run(ctx, itClient, q)
	return results, true, err
}
