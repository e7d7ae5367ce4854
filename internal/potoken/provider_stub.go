//go:build !potoken

package potoken

import "context"

// ScriptProvider is a stub when the 'potoken' build tag is disabled. Its
// constructor returns nil, signaling no attestation script is available.
type ScriptProvider struct{}

func NewScriptProvider(scriptPath string) *ScriptProvider { return nil }

func (p *ScriptProvider) Fetch(ctx context.Context, input Input) (Output, error) {
	return Output{}, nil
}
