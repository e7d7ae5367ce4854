package innertube

import (
	"strings"
	"testing"

	"github.com/ytget/ytdlpp/internal/httpengine"
)

func TestFanOutOrderIsClosedSetMembers(t *testing.T) {
	for _, key := range FanOutOrder {
		if _, ok := ClientByKey(key); !ok {
			t.Errorf("FanOutOrder references unknown client %q", key)
		}
	}
}

func TestAndroidSdklessClearsDeviceFields(t *testing.T) {
	full, _ := ClientByKey("android")
	sdkless, _ := ClientByKey("android_sdkless")
	if full.DeviceMake == "" || full.DeviceModel == "" {
		t.Fatal("expected android to carry device fields")
	}
	if sdkless.DeviceMake != "" || sdkless.DeviceModel != "" {
		t.Error("expected android_sdkless to clear device fields")
	}
	if sdkless.Name != full.Name || sdkless.ClientID != full.ClientID {
		t.Error("expected android_sdkless to share client name/id with android")
	}
}

func TestBuildPlayerRequestCarriesPOTokenForWebOnly(t *testing.T) {
	tok := Tokens{VisitorData: "vd123", POToken: "pt456"}

	webBody, err := BuildPlayerRequest("web", "abc", tok)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(webBody), "pt456") {
		t.Error("expected web request to carry po_token")
	}

	tvBody, err := BuildPlayerRequest("tv", "abc", tok)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(tvBody), "pt456") {
		t.Error("expected tv request to omit po_token")
	}
}

func TestHeadersCarryClientNameAndVersion(t *testing.T) {
	h := Headers("ios")
	c, _ := ClientByKey("ios")
	if h["X-YouTube-Client-Version"] != c.Version {
		t.Errorf("got %q, want %q", h["X-YouTube-Client-Version"], c.Version)
	}
	if h["X-YouTube-Client-Name"] == "" {
		t.Error("expected a non-empty client name header")
	}
}

func TestParsePlayerResponseAcceptedAndFormats(t *testing.T) {
	body := `{
		"playabilityStatus": {"status": "OK"},
		"videoDetails": {"videoId": "abc", "title": "t", "lengthSeconds": "42", "viewCount": "100"},
		"streamingData": {
			"formats": [{"itag": 18, "mimeType": "video/mp4; codecs=\"avc1.42001E, mp4a.40.2\"", "url": "https://example.com/x"}],
			"adaptiveFormats": [{"itag": 251, "mimeType": "audio/webm; codecs=\"opus\"", "url": "https://example.com/y"}]
		}
	}`
	pr, err := ParsePlayerResponse("web", []byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if !pr.Accepted {
		t.Fatal("expected Accepted")
	}
	if pr.Duration != 42 || pr.ViewCount != 100 {
		t.Errorf("got duration=%d views=%d", pr.Duration, pr.ViewCount)
	}
	if len(pr.RawFormats) != 2 {
		t.Fatalf("got %d raw formats, want 2", len(pr.RawFormats))
	}
}

func TestParsePlayerResponseUnplayable(t *testing.T) {
	body := `{"playabilityStatus": {"status": "LOGIN_REQUIRED", "reason": "Sign in"}}`
	pr, err := ParsePlayerResponse("web", []byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if pr.Accepted {
		t.Fatal("expected not Accepted")
	}
}

func TestBuildVideoFormatProgressive(t *testing.T) {
	rfc := RawFormatWithClient{
		ClientKey: "web",
		Format: rawFormat{
			Itag:     18,
			URL:      "https://example.com/v.mp4",
			MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`,
			Bitrate:  500000,
		},
	}
	vf, ok := BuildVideoFormat(rfc, nil, nil)
	if !ok {
		t.Fatal("expected ok")
	}
	if vf.Vcodec != "avc1.42001E" || vf.Acodec != "mp4a.40.2" {
		t.Errorf("got vcodec=%q acodec=%q", vf.Vcodec, vf.Acodec)
	}
	if vf.Ext != "mp4" {
		t.Errorf("got ext=%q", vf.Ext)
	}
}

func TestBuildVideoFormatAudioOnlySingleCodec(t *testing.T) {
	rfc := RawFormatWithClient{
		Format: rawFormat{
			Itag:     251,
			URL:      "https://example.com/a.webm",
			MimeType: `audio/webm; codecs="opus"`,
		},
	}
	vf, ok := BuildVideoFormat(rfc, nil, nil)
	if !ok {
		t.Fatal("expected ok")
	}
	if vf.Vcodec != "none" {
		t.Errorf("expected vcodec=none, got %q", vf.Vcodec)
	}
	if vf.Acodec != "opus" {
		t.Errorf("got acodec=%q", vf.Acodec)
	}
}

func TestBuildVideoFormatDeciphersSignatureCipher(t *testing.T) {
	cipher := "s=ENCRYPTED&sp=sig&url=" + "https%3A%2F%2Fexample.com%2Fv%3Fitag%3D140"
	rfc := RawFormatWithClient{
		Format: rawFormat{
			Itag:            140,
			SignatureCipher: cipher,
			MimeType:        `audio/mp4; codecs="mp4a.40.2"`,
		},
	}
	decipher := func(s string) string { return "DECIPHERED:" + s }
	vf, ok := BuildVideoFormat(rfc, decipher, nil)
	if !ok {
		t.Fatal("expected ok")
	}
	if !strings.Contains(vf.URL, "sig=DECIPHERED%3AENCRYPTED") {
		t.Errorf("got url=%q", vf.URL)
	}
}

func TestBuildVideoFormatDropsEmptyURL(t *testing.T) {
	rfc := RawFormatWithClient{Format: rawFormat{Itag: 1, MimeType: "video/mp4"}}
	_, ok := BuildVideoFormat(rfc, nil, nil)
	if ok {
		t.Fatal("expected format to be dropped")
	}
}

func TestBuildVideoFormatAppliesNTransform(t *testing.T) {
	rfc := RawFormatWithClient{
		Format: rawFormat{Itag: 1, URL: "https://example.com/v?n=raw123&itag=1", MimeType: "video/mp4; codecs=\"avc1\""},
	}
	transform := func(n string) string { return "solved-" + n }
	vf, ok := BuildVideoFormat(rfc, nil, transform)
	if !ok {
		t.Fatal("expected ok")
	}
	if !strings.Contains(vf.URL, "n=solved-raw123") {
		t.Errorf("got url=%q", vf.URL)
	}
}

func TestNewClient(t *testing.T) {
	eng := httpengine.New(httpengine.Config{})
	c := NewClient(eng)
	if c == nil {
		t.Fatal("expected a non-nil client")
	}
}
