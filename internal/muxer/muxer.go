// Package muxer is a thin wrapper over ffmpeg-go: it merges one video-only
// file and one audio-only file into a single container, copying codec
// parameters and setting the faststart flag for MP4-family containers.
// Equivalent command line: ffmpeg -y -i video -i audio -c copy -map 0:v:0
// -map 1:a:0 [-movflags +faststart] output.
package muxer

import (
	"fmt"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/ytget/ytdlpp/errs"
)

// mp4FamilyExts are the containers that benefit from relocating the moov
// atom to the front of the file for faster playback start.
var mp4FamilyExts = map[string]bool{"mp4": true, "mov": true, "m4a": true, "m4v": true}

// Merge muxes videoPath and audioPath into outputExt's container at
// outputPath, stream-copying both tracks. Failures surface as
// errs.KindMuxerError; the caller's temp files are left on disk per spec.
func Merge(videoPath, audioPath, outputPath, outputExt string) error {
	video := ffmpeg.Input(videoPath)
	audio := ffmpeg.Input(audioPath)

	kwargs := ffmpeg.KwArgs{
		"c":   "copy",
		"map": []string{"0:v:0", "1:a:0"},
	}
	if mp4FamilyExts[strings.ToLower(strings.TrimPrefix(outputExt, "."))] {
		kwargs["movflags"] = "+faststart"
	}

	err := ffmpeg.Output([]*ffmpeg.Stream{video, audio}, outputPath, kwargs).
		OverWriteOutput().
		Silent(true).
		Run()
	if err != nil {
		return errs.Wrap(errs.KindMuxerError, fmt.Sprintf("muxing %s + %s -> %s", videoPath, audioPath, outputPath), err)
	}
	return nil
}

// ExtractAudio transcodes a progressive video-only file's audio track to
// outputPath, inferring the target codec from outputPath's extension. Used
// by the Download Coordinator's progressive-format fallback for blocked
// audio-only itags.
func ExtractAudio(inputPath, outputPath string) error {
	ext := strings.ToLower(strings.TrimPrefix(extOf(outputPath), "."))
	kwargs := ffmpeg.KwArgs{"vn": ""}

	switch ext {
	case "mp3":
		kwargs["acodec"] = "libmp3lame"
		kwargs["q:a"] = "2"
	case "m4a", "aac":
		kwargs["acodec"] = "aac"
		kwargs["b:a"] = "192k"
	case "opus", "webm":
		kwargs["acodec"] = "libopus"
		kwargs["b:a"] = "160k"
	default:
		kwargs["acodec"] = "copy"
	}

	err := ffmpeg.Input(inputPath).
		Output(outputPath, kwargs).
		OverWriteOutput().
		Silent(true).
		Run()
	if err != nil {
		return errs.Wrap(errs.KindMuxerError, "extracting audio from "+inputPath, err)
	}
	return nil
}

func extOf(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i:]
	}
	return ""
}
