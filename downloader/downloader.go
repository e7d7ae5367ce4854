// Package downloader implements the Download Coordinator: it selects a
// format pair, runs the two ranged downloads against the HTTP Engine in
// parallel, and hands the results to the Muxer.
package downloader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ytget/ytdlpp/errs"
	"github.com/ytget/ytdlpp/internal/httpengine"
	"github.com/ytget/ytdlpp/internal/logger"
	"github.com/ytget/ytdlpp/internal/muxer"
	"github.com/ytget/ytdlpp/internal/sanitize"
	"github.com/ytget/ytdlpp/types"
	"github.com/ytget/ytdlpp/youtube/formats"
)

// Progress is the aggregate download progress reported to the caller: both
// streams' byte counts summed into a single percentage/throughput/ETA,
// per spec §4.6.
type Progress struct {
	Status         string // "downloading video" / "downloading audio" / "muxing"
	BytesNow       int64
	BytesTotal     int64
	Percent        float64
	BytesPerSecond float64
	ETA            time.Duration
}

// ProgressFunc receives aggregate progress updates.
type ProgressFunc func(Progress)

// Options configures a single Download call.
type Options struct {
	Selector          string // format selector grammar, see youtube/formats
	PreferredLanguage string
	MergeFormat       string // target container ext when muxing two streams, default "mp4"
	OutputDir         string // default "."
	RateLimitBps      int64  // 0 disables bandwidth limiting
	Progress          ProgressFunc
}

// Downloader runs the Download Coordinator against a shared HTTP Engine.
type Downloader struct {
	engine *httpengine.Engine
}

// New wires a Downloader against an existing HTTP Engine.
func New(engine *httpengine.Engine) *Downloader {
	return &Downloader{engine: engine}
}

// aggregator sums bytes across the one or two concurrent streams and turns
// them into the percentage/throughput/ETA triple the user callback receives.
type aggregator struct {
	mu       sync.Mutex
	start    time.Time
	totals   map[string]int64
	nows     map[string]int64
	progress ProgressFunc
}

func newAggregator(progress ProgressFunc, labels ...string) *aggregator {
	a := &aggregator{
		start:    time.Now(),
		totals:   make(map[string]int64),
		nows:     make(map[string]int64),
		progress: progress,
	}
	for _, l := range labels {
		a.totals[l] = 0
		a.nows[l] = 0
	}
	return a
}

func (a *aggregator) report(label, status string, now, total int64) {
	if a.progress == nil {
		return
	}
	a.mu.Lock()
	a.nows[label] = now
	a.totals[label] = total
	var sumNow, sumTotal int64
	for k := range a.nows {
		sumNow += a.nows[k]
		sumTotal += a.totals[k]
	}
	a.mu.Unlock()

	elapsed := time.Since(a.start).Seconds()
	var bps float64
	if elapsed > 0 {
		bps = float64(sumNow) / elapsed
	}
	var pct float64
	if sumTotal > 0 {
		pct = 100 * float64(sumNow) / float64(sumTotal)
	}
	var eta time.Duration
	if bps > 0 && sumTotal > sumNow {
		eta = time.Duration(float64(sumTotal-sumNow)/bps) * time.Second
	}
	a.progress(Progress{
		Status:         status,
		BytesNow:       sumNow,
		BytesTotal:     sumTotal,
		Percent:        pct,
		BytesPerSecond: bps,
		ETA:            eta,
	})
}

// Download runs the Format Selector against info, downloads the selected
// stream(s) in parallel, muxes them if both are present, and returns the
// final file path.
func (d *Downloader) Download(ctx context.Context, info *types.VideoInfo, opts Options) (string, error) {
	log := logger.WithComponent(logger.ComponentDownloader)

	sel := formats.Select(info, opts.Selector, opts.PreferredLanguage)
	if sel.Video == nil && sel.Audio == nil {
		return "", errs.New(errs.KindExtractionFailed, "no format matched selector "+opts.Selector)
	}

	outDir := opts.OutputDir
	if outDir == "" {
		outDir = "."
	}
	mergeExt := opts.MergeFormat
	if mergeExt == "" {
		mergeExt = sanitize.DefaultExt
	}

	progressive := sel.Video != nil && sel.Audio != nil && sel.Video.Itag == sel.Audio.Itag
	videoOnly := sel.Video != nil && sel.Audio == nil
	audioOnly := sel.Audio != nil && sel.Video == nil
	needsMux := sel.Video != nil && sel.Audio != nil && !progressive

	var limiter *rate.Limiter
	if opts.RateLimitBps > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitBps), int(opts.RateLimitBps))
	}

	var labels []string
	if sel.Video != nil {
		labels = append(labels, "video")
	}
	if sel.Audio != nil && !progressive {
		labels = append(labels, "audio")
	}
	agg := newAggregator(opts.Progress, labels...)

	base := strings.TrimSuffix(sanitize.ToSafeFilename(info.Title, mergeExt), "."+strings.ToLower(mergeExt))

	g, gctx := errgroup.WithContext(ctx)

	var videoPath, audioPath string
	var videoErr, audioErr error
	switch {
	case progressive:
		videoPath = filepath.Join(outDir, base+"."+orDefault(sel.Video.Ext, mergeExt))
		g.Go(func() error {
			videoErr = d.downloadStream(gctx, sel.Video.URL, videoPath, "video", "downloading video", agg, limiter, log)
			return videoErr
		})
	case videoOnly:
		videoPath = filepath.Join(outDir, base+"."+orDefault(sel.Video.Ext, mergeExt))
		g.Go(func() error {
			videoErr = d.downloadStream(gctx, sel.Video.URL, videoPath, "video", "downloading video", agg, limiter, log)
			return videoErr
		})
	case audioOnly:
		audioPath = filepath.Join(outDir, base+"."+orDefault(sel.Audio.Ext, "m4a"))
		g.Go(func() error {
			audioErr = d.downloadStream(gctx, sel.Audio.URL, audioPath, "audio", "downloading audio", agg, limiter, log)
			return audioErr
		})
	default: // needsMux
		videoPath = filepath.Join(outDir, base+"_video."+orDefault(sel.Video.Ext, "mp4"))
		audioPath = filepath.Join(outDir, base+"_audio."+orDefault(sel.Audio.Ext, "m4a"))
		g.Go(func() error {
			videoErr = d.downloadStream(gctx, sel.Video.URL, videoPath, "video", "downloading video", agg, limiter, log)
			return videoErr
		})
		g.Go(func() error {
			audioErr = d.downloadStream(gctx, sel.Audio.URL, audioPath, "audio", "downloading audio", agg, limiter, log)
			return audioErr
		})
	}

	// Await both downloads regardless of which failed first; no early-out
	// that would leave the other handle dangling. Temp files are left on
	// disk for diagnosis per spec §4.6's failure propagation policy, except
	// for the audio-blocked case handled by the ffmpeg fallback below.
	if err := g.Wait(); err != nil {
		if audioErr != nil && videoErr == nil && isBlockedStatus(audioErr) {
			fallbackPath, ferr := d.extractAudioViaProgressiveFallback(ctx, info, opts, outDir, base, agg, limiter, log)
			if ferr != nil {
				return "", errs.Wrap(errs.KindRequestFailed, "audio blocked and progressive fallback failed", ferr)
			}
			audioPath = fallbackPath
		} else {
			return "", errs.Wrap(errs.KindRequestFailed, "download failed", err)
		}
	}

	if !needsMux {
		if videoPath != "" {
			return videoPath, nil
		}
		return audioPath, nil
	}

	finalPath := filepath.Join(outDir, base+"."+mergeExt)
	if opts.Progress != nil {
		opts.Progress(Progress{Status: "muxing"})
	}
	if err := muxer.Merge(videoPath, audioPath, finalPath, mergeExt); err != nil {
		log.Warn().Err(err).Str("video", videoPath).Str("audio", audioPath).Msg("mux failed, temp files left on disk")
		return "", err
	}
	_ = os.Remove(videoPath)
	_ = os.Remove(audioPath)
	return finalPath, nil
}

func (d *Downloader) downloadStream(ctx context.Context, url, path, label, status string, agg *aggregator, limiter *rate.Limiter, log *logger.ComponentLogger) error {
	var lastNow int64
	err := d.engine.DownloadFile(ctx, url, path, func(now, total int64) {
		if limiter != nil {
			if delta := now - lastNow; delta > 0 {
				_ = limiter.WaitN(ctx, int(delta))
			}
		}
		lastNow = now
		agg.report(label, status, now, total)
	})
	if err != nil {
		log.Warn().Err(err).Str("stream", label).Msg("stream download failed")
	}
	return err
}

// isBlockedStatus reports whether err looks like the 403 Forbidden response
// googlevideo.com returns for certain audio-only itags once their signed URL
// has been flagged, the case lvcoi-ytdl-go's downloadWithFFmpegFallback
// exists to route around.
func isBlockedStatus(err error) bool {
	return err != nil && strings.Contains(err.Error(), "403")
}

// extractAudioViaProgressiveFallback downloads the best progressive
// (video+audio) format and extracts its audio track with ffmpeg, for when
// the audio-only itag's ranged download came back 403. The progressive
// download is removed once extraction succeeds.
func (d *Downloader) extractAudioViaProgressiveFallback(ctx context.Context, info *types.VideoInfo, opts Options, outDir, base string, agg *aggregator, limiter *rate.Limiter, log *logger.ComponentLogger) (string, error) {
	fallback := formats.Select(info, "best", opts.PreferredLanguage)
	if fallback.Video == nil {
		return "", errs.New(errs.KindExtractionFailed, "no progressive format available for audio fallback")
	}

	tmpPath := filepath.Join(outDir, base+"_progressive_fallback."+orDefault(fallback.Video.Ext, "mp4"))
	if err := d.downloadStream(ctx, fallback.Video.URL, tmpPath, "audio", "downloading audio (progressive fallback)", agg, limiter, log); err != nil {
		return "", err
	}
	defer os.Remove(tmpPath)

	audioExt := "m4a"
	if sel := formats.Select(info, opts.Selector, opts.PreferredLanguage); sel.Audio != nil && sel.Audio.Ext != "" {
		audioExt = sel.Audio.Ext
	}
	audioPath := filepath.Join(outDir, base+"_audio."+audioExt)
	if err := muxer.ExtractAudio(tmpPath, audioPath); err != nil {
		return "", err
	}
	return audioPath, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
