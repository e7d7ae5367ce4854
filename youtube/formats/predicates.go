package formats

import "github.com/ytget/ytdlpp/types"

// audioCodecTier returns the Format Selector's audio codec-tier rank: higher
// wins a tie-break over tbr.
func audioCodecTier(codec string) int {
	switch codec {
	case "opus":
		return 4
	case "vorbis":
		return 3
	case "mp4a", "aac":
		return 2
	default:
		return 0
	}
}

// videoCodecTier returns the Format Selector's video codec-tier rank.
func videoCodecTier(codec string) int {
	switch codec {
	case "av01":
		return 4
	case "vp9", "vp09":
		return 3
	case "avc1", "h264":
		return 2
	case "vp8":
		return 1
	default:
		return 0
	}
}

// audioRank is the 4-tuple audio ranking key, compared lexicographically.
type audioRank struct {
	languagePreference int
	audioChannels      int
	codecTier          int
	tbr                float64
}

func rankAudio(f types.VideoFormat) audioRank {
	return audioRank{
		languagePreference: f.LanguagePreference,
		audioChannels:      f.AudioChannels,
		codecTier:          audioCodecTier(f.Acodec),
		tbr:                f.TBR,
	}
}

func (a audioRank) less(b audioRank) bool {
	if a.languagePreference != b.languagePreference {
		return a.languagePreference < b.languagePreference
	}
	if a.audioChannels != b.audioChannels {
		return a.audioChannels < b.audioChannels
	}
	if a.codecTier != b.codecTier {
		return a.codecTier < b.codecTier
	}
	return a.tbr < b.tbr
}

// videoRank is the 4-tuple video ranking key, compared lexicographically.
type videoRank struct {
	area      int
	fps       int
	codecTier int
	tbr       float64
}

func rankVideo(f types.VideoFormat) videoRank {
	return videoRank{
		area:      f.Width * f.Height,
		fps:       f.FPS,
		codecTier: videoCodecTier(f.Vcodec),
		tbr:       f.TBR,
	}
}

func (a videoRank) less(b videoRank) bool {
	if a.area != b.area {
		return a.area < b.area
	}
	if a.fps != b.fps {
		return a.fps < b.fps
	}
	if a.codecTier != b.codecTier {
		return a.codecTier < b.codecTier
	}
	return a.tbr < b.tbr
}
