package formats

import (
	"testing"

	"github.com/ytget/ytdlpp/types"
)

func sampleInfo() *types.VideoInfo {
	return &types.VideoInfo{
		Formats: []types.VideoFormat{
			{Itag: 18, Vcodec: "avc1", Acodec: "mp4a", Width: 640, Height: 360, TBR: 500},
			{Itag: 137, Vcodec: "avc1", Acodec: types.CodecNone, Width: 1920, Height: 1080, FPS: 30, TBR: 4000},
			{Itag: 248, Vcodec: "vp9", Acodec: types.CodecNone, Width: 1920, Height: 1080, FPS: 30, TBR: 3500},
			{Itag: 140, Vcodec: types.CodecNone, Acodec: "mp4a", AudioChannels: 2, TBR: 128},
			{Itag: 251, Vcodec: types.CodecNone, Acodec: "opus", AudioChannels: 2, TBR: 160},
			{Itag: 249, Vcodec: types.CodecNone, Acodec: "opus", AudioChannels: 2, TBR: 50, Language: "es"},
		},
	}
}

func TestSelectBest(t *testing.T) {
	sel := Select(sampleInfo(), "best", "")
	// itag 137 (avc1) and 248 (vp9) tie on area and fps; vp9's higher codec
	// tier breaks the tie before tbr is even considered.
	if sel.Video == nil || sel.Video.Itag != 248 {
		t.Errorf("expected video itag 248 (vp9 outranks avc1 at equal area/fps), got %+v", sel.Video)
	}
	if sel.Audio == nil || sel.Audio.Itag != 251 {
		t.Errorf("expected audio itag 251 (opus beats mp4a), got %+v", sel.Audio)
	}
}

func TestSelectBestAudioPreferredLanguageOverride(t *testing.T) {
	sel := Select(sampleInfo(), "bestaudio", "es")
	if sel.Audio == nil || sel.Audio.Itag != 249 {
		t.Errorf("expected language override to pick itag 249, got %+v", sel.Audio)
	}
}

func TestSelectBestVideoOnly(t *testing.T) {
	sel := Select(sampleInfo(), "bestvideo", "")
	if sel.Audio != nil {
		t.Error("expected no audio for bestvideo")
	}
	if sel.Video == nil {
		t.Fatal("expected a video")
	}
}

func TestSelectByItagPair(t *testing.T) {
	sel := Select(sampleInfo(), "137+251", "")
	if sel.Video == nil || sel.Video.Itag != 137 {
		t.Errorf("got video %+v", sel.Video)
	}
	if sel.Audio == nil || sel.Audio.Itag != 251 {
		t.Errorf("got audio %+v", sel.Audio)
	}
}

func TestSelectBySingleItagProgressive(t *testing.T) {
	sel := Select(sampleInfo(), "18", "")
	if sel.Video == nil || sel.Video.Itag != 18 {
		t.Errorf("got video %+v", sel.Video)
	}
	if sel.Audio == nil || sel.Audio.Itag != 18 {
		t.Errorf("got audio %+v", sel.Audio)
	}
}

func TestSelectUnknownSelectorReturnsEmpty(t *testing.T) {
	sel := Select(sampleInfo(), "nonsense", "")
	if sel.Video != nil || sel.Audio != nil {
		t.Error("expected an empty selection for an unrecognized selector")
	}
}

func TestAudioCodecTierOrdering(t *testing.T) {
	if audioCodecTier("opus") <= audioCodecTier("mp4a") {
		t.Error("expected opus to outrank mp4a")
	}
}

func TestVideoCodecTierOrdering(t *testing.T) {
	if videoCodecTier("av01") <= videoCodecTier("avc1") {
		t.Error("expected av01 to outrank avc1")
	}
}
