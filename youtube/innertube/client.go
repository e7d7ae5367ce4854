package innertube

import (
	"context"

	"github.com/ytget/ytdlpp/internal/httpengine"
)

// Client issues Innertube POSTs over a shared HTTP Engine.
type Client struct {
	engine *httpengine.Engine
}

func NewClient(engine *httpengine.Engine) *Client {
	return &Client{engine: engine}
}

// PostPlayer issues the /youtubei/v1/player POST for clientKey and parses
// the response. A non-2xx status maps to an httpengine-level error from
// engine.Post; a malformed body surfaces as a JSON decode error from
// ParsePlayerResponse. Per-client failures are the caller's to treat as
// non-fatal (the fan-out step may simply omit this client's response).
func (c *Client) PostPlayer(ctx context.Context, clientKey, videoID string, tok Tokens) (*PlayerResponse, error) {
	body, err := BuildPlayerRequest(clientKey, videoID, tok)
	if err != nil {
		return nil, err
	}
	resp, err := c.engine.Post(ctx, PlayerURL+"?key="+innertubeAPIKey, body, Headers(clientKey))
	if err != nil {
		return nil, err
	}
	return ParsePlayerResponse(clientKey, resp.Body)
}

// PostSearch issues the /youtubei/v1/search POST.
func (c *Client) PostSearch(ctx context.Context, query, params string) ([]byte, error) {
	body, err := BuildSearchRequest(query, params)
	if err != nil {
		return nil, err
	}
	resp, err := c.engine.Post(ctx, SearchURL+"?key="+innertubeAPIKey, body, Headers("web"))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
