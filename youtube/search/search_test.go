package search

import (
	"encoding/json"
	"testing"
)

func TestParseGrammar(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantMatch  bool
		wantErr    bool
		wantText   string
		wantMax    int
		wantByDate bool
	}{
		{name: "plain", raw: "ytsearch:lofi", wantMatch: true, wantText: "lofi", wantMax: 1},
		{name: "count", raw: "ytsearch5:lofi", wantMatch: true, wantText: "lofi", wantMax: 5},
		{name: "all", raw: "ytsearchall:x", wantMatch: true, wantText: "x", wantMax: 100},
		{name: "date", raw: "ytsearchdate:x", wantMatch: true, wantText: "x", wantMax: 10, wantByDate: true},
		{name: "count date", raw: "ytsearch5date:lo-fi beats", wantMatch: true, wantText: "lo-fi beats", wantMax: 5, wantByDate: true},
		{name: "empty query rejected", raw: "ytsearch:", wantMatch: true, wantErr: true},
		{name: "not a search url", raw: "https://youtube.com/watch?v=abc", wantMatch: false},
		{name: "bad modifier", raw: "ytsearchfoo:x", wantMatch: true, wantErr: true},
		{name: "missing colon", raw: "ytsearch5", wantMatch: true, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, matched, err := Parse(tc.raw)
			if matched != tc.wantMatch {
				t.Fatalf("matched = %v, want %v", matched, tc.wantMatch)
			}
			if !tc.wantMatch {
				return
			}
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q.Text != tc.wantText || q.MaxResults != tc.wantMax || q.SortByDate != tc.wantByDate {
				t.Fatalf("got %+v", q)
			}
		})
	}
}

func TestParseLengthText(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"45", 45},
		{"3:07", 187},
		{"1:02:03", 3723},
		{"LIVE", 0},
	}
	for _, tc := range tests {
		if got := parseLengthText(tc.in); got != tc.want {
			t.Errorf("parseLengthText(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseVideoRenderersWalksNestedSections(t *testing.T) {
	body := []byte(`{
		"contents": {
			"twoColumnSearchResultsRenderer": {
				"primaryContents": {
					"sectionListRenderer": {
						"contents": [
							{
								"itemSectionRenderer": {
									"contents": [
										{
											"videoRenderer": {
												"videoId": "abc123",
												"title": {"runs": [{"text": "First Video"}]},
												"ownerText": {"runs": [{"text": "Channel One"}]},
												"lengthText": {"runs": [{"text": "3:07"}]}
											}
										},
										{
											"videoRenderer": {
												"videoId": "def456",
												"title": {"runs": [{"text": "Second Video"}]},
												"ownerText": {"runs": [{"text": "Channel Two"}]},
												"lengthText": {"runs": [{"text": "10:00"}]}
											}
										}
									]
								}
							}
						]
					}
				}
			}
		}
	}`)

	if !json.Valid(body) {
		t.Fatal("fixture is not valid JSON")
	}

	results := parseVideoRenderers(body, 0)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].VideoID != "abc123" || results[0].Title != "First Video" || results[0].Uploader != "Channel One" || results[0].Duration != 187 {
		t.Errorf("got %+v", results[0])
	}
	if results[1].VideoID != "def456" || results[1].Duration != 600 {
		t.Errorf("got %+v", results[1])
	}
}

func TestParseVideoRenderersRespectsLimit(t *testing.T) {
	body := []byte(`[
		{"videoRenderer": {"videoId": "a"}},
		{"videoRenderer": {"videoId": "b"}},
		{"videoRenderer": {"videoId": "c"}}
	]`)
	results := parseVideoRenderers(body, 2)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
}

func TestParseVideoRenderersSkipsEntriesMissingVideoID(t *testing.T) {
	body := []byte(`{"videoRenderer": {"title": {"runs": [{"text": "no id"}]}}}`)
	results := parseVideoRenderers(body, 0)
	if len(results) != 0 {
		t.Fatalf("got %d results, want 0", len(results))
	}
}
