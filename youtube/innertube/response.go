package innertube

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/ytget/ytdlpp/internal/mimeext"
	"github.com/ytget/ytdlpp/types"
)

// rawFormat mirrors the JSON shape of one entry in streamingData.formats /
// streamingData.adaptiveFormats.
type rawFormat struct {
	Itag            int    `json:"itag"`
	URL             string `json:"url"`
	SignatureCipher string `json:"signatureCipher"`
	Cipher          string `json:"cipher"`
	MimeType        string `json:"mimeType"`
	Bitrate         int64  `json:"bitrate"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	ContentLength   string `json:"contentLength"`
	FPS             int    `json:"fps"`
	AudioSampleRate string `json:"audioSampleRate"`
	AudioChannels   int    `json:"audioChannels"`
	AudioQuality    string `json:"audioQuality"`
	ApproxDurationMs string `json:"approxDurationMs"`
	AverageBitrate  int64  `json:"averageBitrate"`
	AudioTrack      *struct {
		DisplayName  string `json:"displayName"`
		ID           string `json:"id"`
		AudioIsDefault bool `json:"audioIsDefault"`
	} `json:"audioTrack"`
}

type rawPlayabilityStatus struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type rawVideoDetails struct {
	VideoID          string   `json:"videoId"`
	Title            string   `json:"title"`
	Author           string   `json:"author"`
	ChannelID        string   `json:"channelId"`
	LengthSeconds    string   `json:"lengthSeconds"`
	ViewCount        string   `json:"viewCount"`
	ShortDescription string   `json:"shortDescription"`
	IsLive           bool     `json:"isLive"`
	IsLiveContent    bool     `json:"isLiveContent"`
	IsUpcoming       bool     `json:"isUpcoming"`
	Keywords         []string `json:"keywords"`
	Thumbnail        struct {
		Thumbnails []rawThumbnail `json:"thumbnails"`
	} `json:"thumbnail"`
}

type rawThumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type rawPlayerResponse struct {
	PlayabilityStatus rawPlayabilityStatus `json:"playabilityStatus"`
	VideoDetails      rawVideoDetails      `json:"videoDetails"`
	StreamingData     struct {
		Formats         []rawFormat `json:"formats"`
		AdaptiveFormats []rawFormat `json:"adaptiveFormats"`
	} `json:"streamingData"`
}

// PlayerResponse is the parsed result of a single client's player POST.
type PlayerResponse struct {
	ClientKey string
	Accepted  bool // playabilityStatus == "OK"
	Reason    string
	VideoID   string
	Title     string
	Author    string
	ChannelID string
	Duration  int
	ViewCount int64
	IsLive    bool
	WasLive   bool
	RawFormats []RawFormatWithClient
	Thumbnails []types.Thumbnail
}

// RawFormatWithClient pairs a raw format entry with the client it came from,
// for the warning-grouping rule in format reconstruction.
type RawFormatWithClient struct {
	Format    rawFormat
	ClientKey string
}

// ParsePlayerResponse unmarshals one client's raw JSON body.
func ParsePlayerResponse(clientKey string, body []byte) (*PlayerResponse, error) {
	var raw rawPlayerResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	dur, _ := strconv.Atoi(raw.VideoDetails.LengthSeconds)
	views, _ := strconv.ParseInt(raw.VideoDetails.ViewCount, 10, 64)

	pr := &PlayerResponse{
		ClientKey: clientKey,
		Accepted:  raw.PlayabilityStatus.Status == "OK",
		Reason:    raw.PlayabilityStatus.Reason,
		VideoID:   raw.VideoDetails.VideoID,
		Title:     raw.VideoDetails.Title,
		Author:    raw.VideoDetails.Author,
		ChannelID: raw.VideoDetails.ChannelID,
		Duration:  dur,
		ViewCount: views,
		IsLive:    raw.VideoDetails.IsLive,
		WasLive:   raw.VideoDetails.IsLiveContent && !raw.VideoDetails.IsLive,
	}
	for _, t := range raw.VideoDetails.Thumbnail.Thumbnails {
		pr.Thumbnails = append(pr.Thumbnails, types.Thumbnail{URL: t.URL, Width: t.Width, Height: t.Height})
	}

	all := append(append([]rawFormat{}, raw.StreamingData.Formats...), raw.StreamingData.AdaptiveFormats...)
	for _, f := range all {
		pr.RawFormats = append(pr.RawFormats, RawFormatWithClient{Format: f, ClientKey: clientKey})
	}
	return pr, nil
}

var codecsAttrRe = regexp.MustCompile(`codecs="([^"]*)"`)

// NParamDeriver and SigDeriver are supplied by the Extraction Session so
// this package never needs to import the Signature Decipherer directly.
type NParamDeriver func(n string) string
type SigDeriver func(sig string) string

// BuildVideoFormat implements the per-format reconstruction algorithm:
// derive ext/codecs from mimeType, decipher signatureCipher if url is empty,
// and re-run any n parameter through transform_n. ok is false if the URL is
// still empty after all of that — the caller should drop the format and
// count a warning against rfc.ClientKey.
func BuildVideoFormat(rfc RawFormatWithClient, decipherSig SigDeriver, transformN NParamDeriver) (types.VideoFormat, bool) {
	f := rfc.Format
	vf := types.VideoFormat{
		Itag:            f.Itag,
		URL:             f.URL,
		SignatureCipher: f.SignatureCipher,
		MimeType:        f.MimeType,
		Width:           f.Width,
		Height:          f.Height,
		FPS:             f.FPS,
		AudioChannels:   f.AudioChannels,
	}
	if f.ContentLength != "" {
		if n, err := strconv.ParseInt(f.ContentLength, 10, 64); err == nil {
			vf.ContentLength = n
		}
	}
	if f.AudioSampleRate != "" {
		if n, err := strconv.Atoi(f.AudioSampleRate); err == nil {
			vf.AudioSampleRate = n
		}
	}
	if f.Bitrate > 0 {
		vf.TBR = float64(f.Bitrate) / 1000
	}
	if f.AverageBitrate > 0 {
		vf.TBR = float64(f.AverageBitrate) / 1000
	}

	mimeBase := f.MimeType
	if i := strings.Index(mimeBase, ";"); i >= 0 {
		mimeBase = mimeBase[:i]
	}
	vf.Ext = mimeext.ExtFromMime(f.MimeType)
	vf.Container = vf.Ext
	isAudioMain := strings.HasPrefix(mimeBase, "audio/")

	if m := codecsAttrRe.FindStringSubmatch(f.MimeType); len(m) == 2 {
		parts := strings.Split(m[1], ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		switch len(parts) {
		case 1:
			if isAudioMain {
				vf.Vcodec = types.CodecNone
				vf.Acodec = parts[0]
			} else {
				vf.Vcodec = parts[0]
				vf.Acodec = types.CodecNone
			}
		case 2:
			vf.Vcodec = parts[0]
			vf.Acodec = parts[1]
		}
	}
	if vf.Vcodec == "" {
		vf.Vcodec = types.CodecNone
	}
	if vf.Acodec == "" {
		vf.Acodec = types.CodecNone
	}
	if isAudioMain {
		vf.ABR = vf.TBR
	} else {
		vf.VBR = vf.TBR
	}

	if rfc.Format.AudioTrack != nil {
		vf.Language = rfc.Format.AudioTrack.ID
	}

	if vf.URL == "" && (f.SignatureCipher != "" || f.Cipher != "") {
		raw := f.SignatureCipher
		if raw == "" {
			raw = f.Cipher
		}
		vf.URL = reconstructFromCipher(raw, decipherSig)
	}

	if vf.URL != "" {
		vf.URL = applyNTransform(vf.URL, transformN)
	}

	return vf, vf.URL != ""
}

// reconstructFromCipher parses a signatureCipher/cipher query string
// (s, sp, url all url-encoded), deciphers s, and appends it to url under the
// sp key (or "sig" if sp is absent).
func reconstructFromCipher(cipher string, decipherSig SigDeriver) string {
	vals, err := url.ParseQuery(cipher)
	if err != nil {
		return ""
	}
	base := vals.Get("url")
	if base == "" {
		return ""
	}
	s := vals.Get("s")
	if s == "" || decipherSig == nil {
		return base
	}
	sigParam := vals.Get("sp")
	if sigParam == "" {
		sigParam = "sig"
	}
	deciphered := decipherSig(s)

	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set(sigParam, deciphered)
	u.RawQuery = q.Encode()
	return u.String()
}

func applyNTransform(rawURL string, transformN NParamDeriver) string {
	if transformN == nil {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	n := q.Get("n")
	if n == "" {
		return rawURL
	}
	q.Set("n", transformN(n))
	u.RawQuery = q.Encode()
	return u.String()
}
