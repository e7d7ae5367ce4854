package solver

import (
	"context"
	"sync"

	"github.com/ytget/ytdlpp/internal/jsrt"
	"github.com/ytget/ytdlpp/internal/logger"
)

// Decipherer is the Signature Decipherer: it owns one JS Sandbox and tries
// Solver-AST first, falling back to Solver-Regex only if Solver-AST
// outright fails to produce a usable handle for a given player. If neither
// solver ever reaches a ready state for a player, both DecipherSignature and
// TransformN degrade to the identity function, per the spec's explicit
// robustness property — a player this code cannot understand should never
// make extraction fail outright, only formats requiring deciphering.
type Decipherer struct {
	sandbox *jsrt.Sandbox
	ast     *ASTSolver
	rx      *RegexSolver

	mu     sync.Mutex
	ready  map[string]readiness
}

type readiness struct {
	viaAST   bool
	viaRegex bool
}

func NewDecipherer() *Decipherer {
	sb := jsrt.New()
	return &Decipherer{
		sandbox: sb,
		ast:     NewASTSolver(sb),
		rx:      NewRegexSolver(sb),
		ready:   make(map[string]readiness),
	}
}

// LoadPlayer attempts Solver-AST, then Solver-Regex, recording whichever
// solver(s) produced a usable handle for playerID. It never returns an
// error for a merely-unrecognized player shape — only for a sandbox-level
// failure (e.g. the sandbox has been shut down).
func (d *Decipherer) LoadPlayer(ctx context.Context, source, playerID string) error {
	log := logger.WithComponent(logger.ComponentCipher)

	astOK, astErr := d.ast.LoadPlayer(ctx, source, playerID)
	if astErr != nil {
		log.Warn().Err(astErr).Str("player_id", playerID).Msg("solver-ast load failed")
	}

	rxOK := false
	if !astOK {
		var rxErr error
		rxOK, rxErr = d.rx.LoadPlayer(ctx, source, playerID)
		if rxErr != nil {
			log.Warn().Err(rxErr).Str("player_id", playerID).Msg("solver-regex load failed")
		}
	}

	d.mu.Lock()
	d.ready[playerID] = readiness{viaAST: astOK, viaRegex: rxOK}
	d.mu.Unlock()

	if !astOK && !rxOK {
		log.Warn().Str("player_id", playerID).Msg("no solver reached ready state; sig/n transforms will be identity")
	}
	return nil
}

// DecipherSignature returns the deciphered signature, or sig unchanged if no
// solver produced a usable function for playerID.
func (d *Decipherer) DecipherSignature(ctx context.Context, playerID, sig string) string {
	d.mu.Lock()
	r := d.ready[playerID]
	d.mu.Unlock()

	if r.viaAST {
		if out, ok := d.ast.DecipherSignature(ctx, playerID, sig); ok {
			return out
		}
	}
	if r.viaRegex {
		if out, ok := d.rx.DecipherSignature(ctx, playerID, sig); ok {
			return out
		}
	}
	return sig
}

// TransformN returns the transformed n parameter, or n unchanged if no
// solver produced a usable function for playerID.
func (d *Decipherer) TransformN(ctx context.Context, playerID, n string) string {
	d.mu.Lock()
	r := d.ready[playerID]
	d.mu.Unlock()

	if r.viaAST {
		if out, ok := d.ast.TransformN(ctx, playerID, n); ok {
			return out
		}
	}
	if r.viaRegex {
		if out, ok := d.rx.TransformN(ctx, playerID, n); ok {
			return out
		}
	}
	return n
}

// Ready reports whether any solver produced a usable handle for playerID.
func (d *Decipherer) Ready(playerID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.ready[playerID]
	return ok && (r.viaAST || r.viaRegex)
}

// Close shuts down the underlying sandbox. Safe to call multiple times.
func (d *Decipherer) Close() {
	d.sandbox.Shutdown()
}
