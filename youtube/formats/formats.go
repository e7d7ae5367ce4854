// Package formats implements the Format Selector: a pure function mapping a
// VideoInfo and a selector string to a (video, audio) format pair.
package formats

import (
	"strconv"
	"strings"

	"github.com/ytget/ytdlpp/types"
)

// Selection is the Format Selector's output: either field may be nil.
type Selection struct {
	Video *types.VideoFormat
	Audio *types.VideoFormat
}

// Select implements the selector grammar: "best", "bestaudio", "bestvideo",
// "<itag>", "<itag>+<itag>". preferredLanguage may be empty.
func Select(info *types.VideoInfo, selector, preferredLanguage string) Selection {
	selector = strings.TrimSpace(selector)

	if itags, ok := parseItagPair(selector); ok {
		return selectByItags(info, itags)
	}

	switch selector {
	case "bestaudio":
		return Selection{Audio: bestAudio(info.Formats, preferredLanguage)}
	case "bestvideo":
		return Selection{Video: bestVideo(info.Formats)}
	case "best", "":
		return Selection{
			Video: bestVideoBearing(info.Formats),
			Audio: bestAudio(info.Formats, preferredLanguage),
		}
	default:
		if itag, err := strconv.Atoi(selector); err == nil {
			return selectByItags(info, []int{itag})
		}
		return Selection{}
	}
}

func parseItagPair(selector string) ([]int, bool) {
	if !strings.Contains(selector, "+") {
		return nil, false
	}
	parts := strings.SplitN(selector, "+", 2)
	a, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	b, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return nil, false
	}
	return []int{a, b}, true
}

func selectByItags(info *types.VideoInfo, itags []int) Selection {
	var sel Selection
	for i := range info.Formats {
		f := &info.Formats[i]
		for _, itag := range itags {
			if f.Itag != itag {
				continue
			}
			if sel.Video == nil && f.Vcodec != types.CodecNone {
				sel.Video = f
			}
			if sel.Audio == nil && f.Acodec != types.CodecNone {
				sel.Audio = f
			}
		}
	}
	return sel
}

// bestAudio picks the highest-ranked audio-only format, honoring the
// preferred-language override: a format whose language exactly matches
// preferredLanguage wins over the global best whenever one exists.
func bestAudio(all []types.VideoFormat, preferredLanguage string) *types.VideoFormat {
	var best, bestPreferred *types.VideoFormat
	var bestRank, bestPreferredRank audioRank
	haveBest, havePreferred := false, false

	for i := range all {
		f := all[i]
		if !f.IsAudioOnly() {
			continue
		}
		r := rankAudio(f)
		if !haveBest || bestRank.less(r) {
			best, bestRank, haveBest = &f, r, true
		}
		if preferredLanguage != "" && f.Language == preferredLanguage {
			if !havePreferred || bestPreferredRank.less(r) {
				bestPreferred, bestPreferredRank, havePreferred = &f, r, true
			}
		}
	}
	if havePreferred {
		return bestPreferred
	}
	return best
}

// bestVideo picks the highest-ranked video-only format.
func bestVideo(all []types.VideoFormat) *types.VideoFormat {
	var best *types.VideoFormat
	var bestRank videoRank
	have := false
	for i := range all {
		f := all[i]
		if !f.IsVideoOnly() {
			continue
		}
		r := rankVideo(f)
		if !have || bestRank.less(r) {
			best, bestRank, have = &f, r, true
		}
	}
	return best
}

// bestVideoBearing picks the highest-ranked format carrying video — either
// video-only or progressive — for the "best" selector's video slot.
func bestVideoBearing(all []types.VideoFormat) *types.VideoFormat {
	var best *types.VideoFormat
	var bestRank videoRank
	have := false
	for i := range all {
		f := all[i]
		if f.Vcodec == types.CodecNone {
			continue
		}
		r := rankVideo(f)
		if !have || bestRank.less(r) {
			best, bestRank, have = &f, r, true
		}
	}
	return best
}
