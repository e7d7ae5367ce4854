// Package search implements the ytsearch: pseudo-URL grammar and the
// Innertube-backed query that resolves it into a list of SearchResults.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ytget/ytdlpp/errs"
	"github.com/ytget/ytdlpp/types"
	"github.com/ytget/ytdlpp/youtube/innertube"
)

const prefix = "ytsearch"

// sortByDateParams is YouTube's opaque "sp" filter token for the web search
// endpoint's Upload date sort order. Innertube accepts the same value in the
// JSON body's params field as the HTML search page accepts in its sp query
// parameter.
const sortByDateParams = "CAISAhAB"

const defaultMaxResults = 1
const allMaxResults = 100
const dateMaxResults = 10

// Query is a parsed ytsearch<MOD>:<query> pseudo-URL.
type Query struct {
	Text       string
	MaxResults int
	SortByDate bool
}

// Parse recognizes the ytsearch<MOD>:<query> grammar. MOD is empty (1
// result), a positive integer (that many results), "all" (100 results),
// "date" (10 results, date-sorted) or "<N>date" (N results, date-sorted).
// An empty query text is rejected.
func Parse(raw string) (Query, bool, error) {
	if !strings.HasPrefix(raw, prefix) {
		return Query{}, false, nil
	}
	rest := raw[len(prefix):]
	idx := strings.IndexByte(rest, ':')
	if idx < 0 {
		return Query{}, true, errs.New(errs.KindInvalidURL, "ytsearch URL missing ':' separator")
	}
	mod, text := rest[:idx], rest[idx+1:]
	if text == "" {
		return Query{}, true, errs.New(errs.KindInvalidURL, "ytsearch URL has an empty query")
	}

	q := Query{Text: text, MaxResults: defaultMaxResults}
	switch {
	case mod == "":
	case mod == "all":
		q.MaxResults = allMaxResults
	case mod == "date":
		q.MaxResults = dateMaxResults
		q.SortByDate = true
	case strings.HasSuffix(mod, "date"):
		n, err := strconv.Atoi(strings.TrimSuffix(mod, "date"))
		if err != nil || n <= 0 {
			return Query{}, true, errs.New(errs.KindInvalidURL, "invalid ytsearch modifier "+mod)
		}
		q.MaxResults = n
		q.SortByDate = true
	default:
		n, err := strconv.Atoi(mod)
		if err != nil || n <= 0 {
			return Query{}, true, errs.New(errs.KindInvalidURL, "invalid ytsearch modifier "+mod)
		}
		q.MaxResults = n
	}
	return q, true, nil
}

// Run issues the Innertube search for q and returns up to q.MaxResults
// results, walking the response's renderer tree for videoRenderer entries.
func Run(ctx context.Context, client *innertube.Client, q Query) ([]types.SearchResult, error) {
	params := ""
	if q.SortByDate {
		params = sortByDateParams
	}
	body, err := client.PostSearch(ctx, q.Text, params)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", q.Text, err)
	}
	return parseVideoRenderers(body, q.MaxResults), nil
}

type videoRenderer struct {
	VideoID        string `json:"videoId"`
	Title          runsText
	OwnerText      runsText `json:"ownerText"`
	LengthText     runsText `json:"lengthText"`
}

type runsText struct {
	Runs []struct {
		Text string `json:"text"`
	} `json:"runs"`
}

func (r runsText) first() string {
	if len(r.Runs) == 0 {
		return ""
	}
	return r.Runs[0].Text
}

// parseVideoRenderers recursively walks an arbitrary Innertube JSON response
// for "videoRenderer" keys, the same renderer-tree shape YouTube nests search
// results under regardless of the exact section path leading to them.
func parseVideoRenderers(body []byte, limit int) []types.SearchResult {
	var results []types.SearchResult
	var walk func(raw json.RawMessage)
	walk = func(raw json.RawMessage) {
		if limit > 0 && len(results) >= limit {
			return
		}

		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err == nil {
			if vrRaw, ok := obj["videoRenderer"]; ok {
				var vr videoRenderer
				if json.Unmarshal(vrRaw, &vr) == nil && vr.VideoID != "" {
					results = append(results, types.SearchResult{
						VideoID:  vr.VideoID,
						Title:    vr.Title.first(),
						Uploader: vr.OwnerText.first(),
						Duration: parseLengthText(vr.LengthText.first()),
					})
				}
				return
			}
			for _, v := range obj {
				walk(v)
			}
			return
		}

		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err == nil {
			for _, v := range arr {
				walk(v)
			}
		}
	}
	walk(body)

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// parseLengthText turns "H:MM:SS" / "MM:SS" / "SS" into a second count. An
// unparsable value (e.g. "LIVE") yields 0.
func parseLengthText(s string) int {
	if s == "" {
		return 0
	}
	parts := strings.Split(s, ":")
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return total
}
