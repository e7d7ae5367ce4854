package httpengine

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"

	"github.com/ytget/ytdlpp/internal/logger"
)

// decodeBody transparently decodes resp's body based on its declared
// Content-Encoding, matching the contract: gzip/x-gzip use gzip framing,
// deflate first tries gzip framing (some servers mislabel the encoding)
// before falling back to raw deflate, br uses brotli, and anything else
// passes through unchanged with a warning.
func decodeBody(encoding string, body []byte) ([]byte, error) {
	log := logger.WithComponent(logger.ComponentHTTP)

	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return body, nil

	case "gzip", "x-gzip":
		return gunzip(body)

	case "deflate":
		if out, err := gunzip(body); err == nil {
			return out, nil
		}
		return inflateRaw(body)

	case "br":
		out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, err
		}
		return out, nil

	default:
		log.Warn().Str("encoding", encoding).Msg("unknown content-encoding, passing through")
		return body, nil
	}
}

func gunzip(body []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func inflateRaw(body []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(body))
	defer r.Close()
	return io.ReadAll(r)
}
