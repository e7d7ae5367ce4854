//go:build potoken

package potoken

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dop251/goja"
)

// ScriptProvider runs a user-supplied JS file to produce PO tokens. The
// script must define a global function `poAttest(input)` returning either
// a string token or an object { token, ttlSeconds? }.
type ScriptProvider struct {
	scriptPath string
}

func NewScriptProvider(scriptPath string) *ScriptProvider {
	return &ScriptProvider{scriptPath: scriptPath}
}

func (p *ScriptProvider) Fetch(ctx context.Context, input Input) (Output, error) {
	if p == nil || p.scriptPath == "" {
		return Output{}, errors.New("potoken script provider: script path not set")
	}
	script, err := os.ReadFile(p.scriptPath)
	if err != nil {
		return Output{}, fmt.Errorf("read script: %w", err)
	}
	vm := goja.New()
	_ = vm.Set("console", map[string]any{"log": func(...any) {}})

	inJSON, _ := json.Marshal(input)
	var inObj map[string]any
	_ = json.Unmarshal(inJSON, &inObj)
	_ = vm.Set("__poInput", inObj)

	if _, err := vm.RunScript(p.scriptPath, string(script)); err != nil {
		return Output{}, fmt.Errorf("run script: %w", err)
	}

	fn, ok := goja.AssertFunction(vm.Get("poAttest"))
	if !ok {
		return Output{}, errors.New("poAttest function not found in script")
	}
	res, err := fn(goja.Undefined(), vm.Get("__poInput"))
	if err != nil {
		return Output{}, fmt.Errorf("poAttest error: %w", err)
	}

	var out Output
	if goja.IsUndefined(res) || goja.IsNull(res) {
		return Output{}, errors.New("poAttest returned undefined/null")
	}
	if str, ok := res.Export().(string); ok {
		out.Token = str
		return out, nil
	}
	if obj := res.ToObject(vm); obj != nil {
		if v := obj.Get("token"); !goja.IsUndefined(v) && !goja.IsNull(v) {
			out.Token = v.String()
		}
		if v := obj.Get("ttlSeconds"); !goja.IsUndefined(v) && !goja.IsNull(v) {
			if n, ok := v.Export().(int64); ok && n > 0 {
				out.ExpiresAt = time.Now().Add(time.Duration(n) * time.Second)
			}
		}
		return out, nil
	}
	return Output{}, errors.New("unexpected poAttest return type")
}
