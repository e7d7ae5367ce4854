package innertube

import (
	"encoding/json"
	"strconv"
)

// Tokens are the per-video values scraped from the watch page that flavor
// every client's request body.
type Tokens struct {
	VisitorData string
	POToken     string
}

type playerRequestContext struct {
	Client clientContext `json:"client"`
}

type clientContext struct {
	ClientName      string `json:"clientName"`
	ClientVersion   string `json:"clientVersion"`
	Platform        string `json:"platform,omitempty"`
	DeviceMake      string `json:"deviceMake,omitempty"`
	DeviceModel     string `json:"deviceModel,omitempty"`
	OsName          string `json:"osName,omitempty"`
	OsVersion       string `json:"osVersion,omitempty"`
	VisitorData     string `json:"visitorData,omitempty"`
	HL              string `json:"hl"`
	GL              string `json:"gl"`
}

type playabilityContext struct {
	ContentCheckOk bool `json:"contentCheckOk"`
	RacyCheckOk    bool `json:"racyCheckOk"`
}

type playerServiceContext struct {
	ServiceIntegrityDimensions *serviceIntegrityDims `json:"serviceIntegrityDimensions,omitempty"`
}

type serviceIntegrityDims struct {
	PoToken string `json:"poToken,omitempty"`
}

type playerRequest struct {
	Context             playerRequestContext  `json:"context"`
	VideoID              string                `json:"videoId"`
	ContentCheckOk        bool                  `json:"contentCheckOk"`
	RacyCheckOk           bool                  `json:"racyCheckOk"`
	Playlist              *playabilityContext   `json:"playbackContext,omitempty"`
	ServiceIntegrityDims  *serviceIntegrityDims `json:"serviceIntegrityDimensions,omitempty"`
}

// BuildPlayerRequest renders the JSON body for a /youtubei/v1/player POST
// for the given client key, per the client's record and the session's
// scraped tokens. POToken is attached only for the web-family clients, per
// spec's token-extraction rule.
func BuildPlayerRequest(clientKey, videoID string, tok Tokens) ([]byte, error) {
	c, ok := ClientByKey(clientKey)
	if !ok {
		c = clientSet["android_sdkless"]
	}

	cc := clientContext{
		ClientName:    c.Name,
		ClientVersion: c.Version,
		Platform:      c.Platform,
		DeviceMake:    c.DeviceMake,
		DeviceModel:   c.DeviceModel,
		OsName:        c.OSName,
		OsVersion:     c.OSVersion,
		VisitorData:   tok.VisitorData,
		HL:            "en",
		GL:            "US",
	}

	req := playerRequest{
		Context:        playerRequestContext{Client: cc},
		VideoID:        videoID,
		ContentCheckOk: true,
		RacyCheckOk:    true,
	}
	if carriesPOToken(clientKey) && tok.POToken != "" {
		req.ServiceIntegrityDims = &serviceIntegrityDims{PoToken: tok.POToken}
	}
	return json.Marshal(req)
}

// Headers returns the request headers a client record should carry,
// including the X-YouTube-Client-Name/Version pair the spec calls for.
func Headers(clientKey string) map[string]string {
	c, ok := ClientByKey(clientKey)
	if !ok {
		c = clientSet["android_sdkless"]
	}
	return map[string]string{
		"Content-Type":           "application/json",
		"User-Agent":             c.UserAgent,
		"X-YouTube-Client-Name":  strconv.Itoa(c.ClientID),
		"X-YouTube-Client-Version": c.Version,
		"Origin":                 ytBase,
	}
}

type searchRequest struct {
	Context playerRequestContext `json:"context"`
	Query   string                `json:"query"`
	Params  string                `json:"params,omitempty"`
}

// BuildSearchRequest renders the JSON body for a /youtubei/v1/search POST.
// params is the opaque continuation-filter token search.go derives from the
// sort-by-date flag; it may be empty.
func BuildSearchRequest(query, params string) ([]byte, error) {
	c := clientSet["web"]
	cc := clientContext{
		ClientName:    c.Name,
		ClientVersion: c.Version,
		Platform:      c.Platform,
		HL:            "en",
		GL:            "US",
	}
	return json.Marshal(searchRequest{
		Context: playerRequestContext{Client: cc},
		Query:   query,
		Params:  params,
	})
}
