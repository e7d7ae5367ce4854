package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ytget/ytdlpp"
	"github.com/ytget/ytdlpp/internal/logger"
	"github.com/ytget/ytdlpp/media/pcm"
	"github.com/ytget/ytdlpp/types"
	"github.com/ytget/ytdlpp/youtube/formats"
)

func main() {
	var (
		flagFormat      string
		flagListFormats bool
		flagDumpJSON    bool
		flagGetURL      bool
		flagOutputDir   string
		flagMergeFormat string
		flagStreamAudio bool
		flagSimulate    bool
		flagQuiet       bool
		flagVerbose     bool
		flagFlatList    bool
		flagRateLimit   string
	)

	flag.StringVar(&flagFormat, "f", "best", "Format selector (see youtube/formats)")
	flag.StringVar(&flagFormat, "format", "best", "Format selector (see youtube/formats)")
	flag.BoolVar(&flagListFormats, "F", false, "Print the format table and exit")
	flag.BoolVar(&flagListFormats, "list-formats", false, "Print the format table and exit")
	flag.BoolVar(&flagDumpJSON, "j", false, "Print a JSON description of the video (or array for search) and exit")
	flag.BoolVar(&flagDumpJSON, "dump-json", false, "Print a JSON description of the video (or array for search) and exit")
	flag.BoolVar(&flagGetURL, "g", false, "Print the selected URL(s) only")
	flag.BoolVar(&flagGetURL, "get-url", false, "Print the selected URL(s) only")
	flag.StringVar(&flagOutputDir, "P", "", "Output directory")
	flag.StringVar(&flagOutputDir, "o", "", "Output directory (alias of -P; per-file templates are not part of the core surface)")
	flag.StringVar(&flagMergeFormat, "merge-output-format", "", "Requested container for merged output")
	flag.BoolVar(&flagStreamAudio, "stream-audio", false, "Decode best audio to raw PCM on stdout (s16le, 48kHz, stereo)")
	flag.BoolVar(&flagSimulate, "s", false, "Extract but do not download")
	flag.BoolVar(&flagSimulate, "simulate", false, "Extract but do not download")
	flag.BoolVar(&flagQuiet, "q", false, "Quiet logging")
	flag.BoolVar(&flagQuiet, "quiet", false, "Quiet logging")
	flag.BoolVar(&flagVerbose, "v", false, "Verbose logging")
	flag.BoolVar(&flagVerbose, "verbose", false, "Verbose logging")
	flag.BoolVar(&flagFlatList, "flat-playlist", false, "For search URLs, do not resolve each video")
	flag.StringVar(&flagRateLimit, "rate-limit", "", "Download rate limit (e.g. 2MiB/s, 500KB/s)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <url|ytsearch...>\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(2)
	}
	input := strings.TrimSpace(args[0])

	level := "info"
	switch {
	case flagQuiet:
		level = "off"
	case flagVerbose:
		level = "debug"
	}
	log, err := logger.Config{Level: level}.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}

	d := ytdlpp.New().WithFormat(flagFormat).WithLogger(log)
	if flagMergeFormat != "" {
		d = d.WithMergeFormat(flagMergeFormat)
	}
	if flagOutputDir != "" {
		d = d.WithOutputPath(flagOutputDir)
	}
	if bps := parseRate(flagRateLimit); bps > 0 {
		d = d.WithRateLimit(bps)
	}
	if !flagQuiet {
		d = d.WithProgress(func(p ytdlpp.Progress) {
			if p.TotalSize > 0 {
				fmt.Fprintf(os.Stderr, "\rdownloading %s (%.1f%%)   ", humanize.Bytes(uint64(p.TotalSize)), p.Percent)
			}
		})
	}

	ctx := context.Background()

	if results, matched, err := d.Search(ctx, input); matched {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		runSearch(ctx, d, results, flagFlatList, flagDumpJSON, flagGetURL, flagFormat)
		return
	}

	if flagStreamAudio {
		runStreamAudio(ctx, d, input)
		return
	}

	info, err := d.Resolve(ctx, input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch {
	case flagListFormats:
		printFormatTable(info)
		return
	case flagDumpJSON:
		printJSON(videoInfoWire(info))
		return
	case flagGetURL:
		sel := formats.Select(info, flagFormat, "")
		if sel.Video != nil {
			fmt.Println(sel.Video.URL)
		}
		if sel.Audio != nil && (sel.Video == nil || sel.Audio.Itag != sel.Video.Itag) {
			fmt.Println(sel.Audio.URL)
		}
		return
	case flagSimulate:
		fmt.Printf("%s (%s)\n", info.Title, info.ID)
		return
	}

	if _, err := d.Download(ctx, input); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "\nSaved: %s\n", info.Title)
}

func runSearch(ctx context.Context, d *ytdlpp.Downloader, results []types.SearchResult, flat, dumpJSON, getURL bool, selector string) {
	if dumpJSON {
		if flat {
			printJSON(results)
			return
		}
		var infos []any
		for _, r := range results {
			info, err := d.Resolve(ctx, "https://www.youtube.com/watch?v="+r.VideoID)
			if err != nil {
				continue
			}
			infos = append(infos, videoInfoWire(info))
		}
		printJSON(infos)
		return
	}
	for _, r := range results {
		if getURL && !flat {
			info, err := d.Resolve(ctx, "https://www.youtube.com/watch?v="+r.VideoID)
			if err != nil {
				continue
			}
			sel := formats.Select(info, selector, "")
			if sel.Video != nil {
				fmt.Println(sel.Video.URL)
			}
			continue
		}
		fmt.Printf("%s\t%s\t%s\n", r.VideoID, r.Title, r.Uploader)
	}
}

func runStreamAudio(ctx context.Context, d *ytdlpp.Downloader, input string) {
	info, err := d.Resolve(ctx, input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	sel := formats.Select(info, "bestaudio", "")
	if sel.Audio == nil {
		fmt.Fprintln(os.Stderr, "Error: no audio-only format available")
		os.Exit(1)
	}

	stream, err := pcm.Open(ctx, sel.Audio.URL, pcm.Options{SampleRate: 48000, Channels: 2, Format: pcm.SampleFormatS16LE})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer stream.Cancel()

	for {
		chunk, err := stream.ReadAlloc()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(chunk) == 0 {
			return
		}
		if _, err := os.Stdout.Write(chunk); err != nil {
			return
		}
	}
}

func printFormatTable(info *types.VideoInfo) {
	fmt.Printf("%-8s %-6s %-10s %-10s %-10s %-6s %-6s\n", "ITAG", "EXT", "VCODEC", "ACODEC", "RESOLUTION", "FPS", "TBR")
	for _, f := range info.Formats {
		res := ""
		if f.Width > 0 && f.Height > 0 {
			res = fmt.Sprintf("%dx%d", f.Width, f.Height)
		}
		fmt.Printf("%-8d %-6s %-10s %-10s %-10s %-6d %-6.0f\n", f.Itag, f.Ext, f.Vcodec, f.Acodec, res, f.FPS, f.TBR)
	}
}

type formatWire struct {
	FormatID      string  `json:"format_id"`
	URL           string  `json:"url"`
	Ext           string  `json:"ext"`
	Vcodec        string  `json:"vcodec"`
	Acodec        string  `json:"acodec"`
	Width         *int    `json:"width"`
	Height        *int    `json:"height"`
	FPS           *int    `json:"fps,omitempty"`
	ASR           *int    `json:"asr,omitempty"`
	AudioChannels *int    `json:"audio_channels,omitempty"`
	TBR           float64 `json:"tbr,omitempty"`
	ABR           float64 `json:"abr,omitempty"`
	VBR           float64 `json:"vbr,omitempty"`
	Filesize      int64   `json:"filesize,omitempty"`
}

type videoInfoWireT struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Uploader     string       `json:"uploader"`
	ChannelID    string       `json:"channel_id"`
	Duration     int          `json:"duration"`
	ViewCount    int64        `json:"view_count"`
	IsLive       bool         `json:"is_live"`
	LiveStatus   string       `json:"live_status"`
	Availability string       `json:"availability"`
	WebpageURL   string       `json:"webpage_url"`
	Formats      []formatWire `json:"formats"`
}

func videoInfoWire(info *types.VideoInfo) videoInfoWireT {
	out := videoInfoWireT{
		ID:           info.ID,
		Title:        info.Title,
		Uploader:     info.Uploader,
		ChannelID:    info.ChannelID,
		Duration:     info.Duration,
		ViewCount:    info.ViewCount,
		IsLive:       info.IsLive,
		LiveStatus:   string(info.LiveStatus),
		Availability: string(info.Availability),
		WebpageURL:   info.WebpageURL,
	}
	for _, f := range info.Formats {
		fw := formatWire{
			FormatID: strconv.Itoa(f.Itag),
			URL:      f.URL,
			Ext:      f.Ext,
			Vcodec:   f.Vcodec,
			Acodec:   f.Acodec,
			TBR:      f.TBR,
			Filesize: f.ContentLength,
		}
		if f.Vcodec != types.CodecNone {
			if f.Width > 0 {
				w := f.Width
				fw.Width = &w
			}
			if f.Height > 0 {
				h := f.Height
				fw.Height = &h
			}
			if f.FPS > 0 {
				fps := f.FPS
				fw.FPS = &fps
			}
			fw.VBR = f.VBR
		}
		if f.Acodec != types.CodecNone {
			if f.AudioSampleRate > 0 {
				asr := f.AudioSampleRate
				fw.ASR = &asr
			}
			if f.AudioChannels > 0 {
				ch := f.AudioChannels
				fw.AudioChannels = &ch
			}
			fw.ABR = f.ABR
		}
		out.Formats = append(out.Formats, fw)
	}
	return out
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// parseRate parses strings like "2MiB/s", "500KB/s" into bytes per second,
// built on dustin/go-humanize's byte-size parser rather than a hand-rolled
// suffix table.
func parseRate(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.TrimSuffix(s, "/s")
	s = strings.TrimSuffix(s, "/S")
	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return int64(n)
}
