package solver

import (
	"context"
	_ "embed"
	"encoding/json"
	"sync"

	"github.com/ytget/ytdlpp/internal/jsrt"
)

//go:embed assets/ejs_bundle.js
var ejsBundleSource string

// ASTSolver is the Go rendering of the spec's Solver-AST: it installs the
// bundled JS helper into the sandbox once, then preprocesses each player
// script into an opaque handle the helper tracks internally, and issues
// one-shot sig/n requests against that handle.
type ASTSolver struct {
	sandbox *jsrt.Sandbox

	mu          sync.Mutex
	installed   bool
	playerCache map[string]playerHandle // keyed by player_id
}

type playerHandle struct {
	id    string
	hasN  bool
	hasSig bool
}

// NewASTSolver builds a solver bound to an existing sandbox. The sandbox is
// not owned by the solver — its lifecycle belongs to the Extraction Session
// / Extractor.
func NewASTSolver(sandbox *jsrt.Sandbox) *ASTSolver {
	return &ASTSolver{sandbox: sandbox, playerCache: make(map[string]playerHandle)}
}

type ejsPlayerRequest struct {
	Type              string `json:"type"`
	Player            string `json:"player"`
	PlayerID          string `json:"player_id,omitempty"`
	OutputPreprocessed bool  `json:"output_preprocessed"`
}

type ejsPlayerResponse struct {
	PreprocessedPlayer string `json:"preprocessed_player"`
	HasSig              bool  `json:"hasSig"`
	HasN                bool  `json:"hasN"`
}

type ejsSolveRequest struct {
	Type               string `json:"type"`
	PreprocessedPlayer string `json:"preprocessed_player"`
	Input              string `json:"input"`
}

// LoadPlayer installs the bundle (idempotent, once per sandbox) and then
// preprocesses source into a cached handle keyed by playerID. Repeated
// loads of the same player_id are no-ops.
func (s *ASTSolver) LoadPlayer(ctx context.Context, source, playerID string) (bool, error) {
	s.mu.Lock()
	if h, ok := s.playerCache[playerID]; ok && playerID != "" {
		s.mu.Unlock()
		return h.hasSig || h.hasN, nil
	}
	installed := s.installed
	s.mu.Unlock()

	if !installed {
		if _, err := s.sandbox.Eval(ctx, ejsBundleSource); err != nil {
			return false, err
		}
		s.mu.Lock()
		s.installed = true
		s.mu.Unlock()
	}

	reqJSON, err := json.Marshal(ejsPlayerRequest{
		Type:               "player",
		Player:             source,
		PlayerID:           playerID,
		OutputPreprocessed: true,
	})
	if err != nil {
		return false, err
	}

	raw, err := s.sandbox.Call(ctx, "__ytdlpp_ejs_solve", string(reqJSON))
	if err != nil {
		return false, err
	}

	var resp ejsPlayerResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return false, err
	}

	h := playerHandle{id: resp.PreprocessedPlayer, hasSig: resp.HasSig, hasN: resp.HasN}
	s.mu.Lock()
	key := playerID
	if key == "" {
		key = resp.PreprocessedPlayer
	}
	s.playerCache[key] = h
	s.mu.Unlock()

	return h.hasSig || h.hasN, nil
}

// solve issues a one-shot "sig" or "n" request against playerID's handle.
func (s *ASTSolver) solve(ctx context.Context, playerID, kind, input string) (string, bool) {
	s.mu.Lock()
	h, ok := s.playerCache[playerID]
	s.mu.Unlock()
	if !ok {
		return "", false
	}
	if (kind == "sig" && !h.hasSig) || (kind == "n" && !h.hasN) {
		return "", false
	}

	reqJSON, err := json.Marshal(ejsSolveRequest{Type: kind, PreprocessedPlayer: h.id, Input: input})
	if err != nil {
		return "", false
	}
	out, err := s.sandbox.Call(ctx, "__ytdlpp_ejs_solve", string(reqJSON))
	if err != nil {
		return "", false
	}
	return out, true
}

// DecipherSignature attempts the sig transform for playerID's loaded
// handle. ok is false if the handle has no signature function — the
// caller then falls back to Solver-Regex.
func (s *ASTSolver) DecipherSignature(ctx context.Context, playerID, sig string) (string, bool) {
	return s.solve(ctx, playerID, "sig", sig)
}

// TransformN attempts the n-parameter transform for playerID's loaded
// handle.
func (s *ASTSolver) TransformN(ctx context.Context, playerID, n string) (string, bool) {
	return s.solve(ctx, playerID, "n", n)
}
