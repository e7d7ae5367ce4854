package types

import "testing"

func TestVideoFormatClassification(t *testing.T) {
	video := VideoFormat{Itag: 137, Vcodec: "avc1", Acodec: CodecNone, Width: 1920, Height: 1080}
	audio := VideoFormat{Itag: 251, Vcodec: CodecNone, Acodec: "opus"}
	progressive := VideoFormat{Itag: 22, Vcodec: "avc1", Acodec: "mp4a"}

	if !video.IsVideoOnly() || video.IsAudioOnly() || video.IsProgressive() {
		t.Errorf("expected %+v to classify as video-only", video)
	}
	if !audio.IsAudioOnly() || audio.IsVideoOnly() || audio.IsProgressive() {
		t.Errorf("expected %+v to classify as audio-only", audio)
	}
	if !progressive.IsProgressive() || progressive.IsVideoOnly() || progressive.IsAudioOnly() {
		t.Errorf("expected %+v to classify as progressive", progressive)
	}
}

func TestVideoFormatZeroValue(t *testing.T) {
	var f VideoFormat
	if f.Itag != 0 || f.URL != "" || f.Vcodec != "" {
		t.Errorf("zero value should be fully empty, got %+v", f)
	}
}

func TestPlaylistItem(t *testing.T) {
	item := PlaylistItem{VideoID: "abc123", Title: "Test Video", Index: 1}
	if item.VideoID != "abc123" || item.Title != "Test Video" || item.Index != 1 {
		t.Errorf("unexpected PlaylistItem: %+v", item)
	}
}

func TestPlaylistItemZeroValue(t *testing.T) {
	var item PlaylistItem
	if item.VideoID != "" || item.Title != "" || item.Index != 0 {
		t.Errorf("zero value should be fully empty, got %+v", item)
	}
}
