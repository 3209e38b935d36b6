// Package launch turns a debug task definition into the payload handed to a
// debug adapter process.
//
// Configurations stay raw JSON end to end: the fields this package reads or
// defaults (request, program, console, cwd) are addressed with gjson paths
// and written back with sjson, so unknown adapter-specific keys pass through
// untouched.
package launch

import (
	"encoding/json"

	"github.com/google/go-dap"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/ctagard/dotnet-dap/internal/errors"
	"github.com/ctagard/dotnet-dap/pkg/types"
)

// DefaultConsole is applied when a configuration names no console
const DefaultConsole = "integratedTerminal"

// RequestArgs classifies config as launch or attach and fills in defaults.
//
// A "request" of "attach" selects attach; anything else (including absence)
// selects launch, which then requires a "program" entry.
func RequestArgs(config json.RawMessage) (types.StartDebuggingRequestArguments, error) {
	raw := append([]byte(nil), config...)
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return types.StartDebuggingRequestArguments{}, errors.ConfigError("configuration", "must be a JSON object")
	}

	kind := types.RequestLaunch
	if gjson.GetBytes(raw, "request").String() == string(types.RequestAttach) {
		kind = types.RequestAttach
	}

	if kind == types.RequestLaunch && !gjson.GetBytes(raw, "program").Exists() {
		return types.StartDebuggingRequestArguments{}, errors.ConfigError("program", "is required for launch requests")
	}

	if !gjson.GetBytes(raw, "console").Exists() {
		out, err := sjson.SetBytes(raw, "console", DefaultConsole)
		if err != nil {
			return types.StartDebuggingRequestArguments{}, errors.Wrap(errors.CodeConfig, "failed to set console", "", err)
		}
		raw = out
	}

	return types.StartDebuggingRequestArguments{
		Configuration: raw,
		Request:       kind,
	}, nil
}

// Assemble builds the adapter payload for a resolved debugger command.
//
// baseArgs are the adapter's own arguments and precede userArgs. The
// environment merges baseEnv with userEnv, userEnv winning. The working
// directory comes from the configuration's "cwd" entry when present. The
// result never carries a network transport.
func Assemble(command string, baseArgs []string, task types.DebugTaskDefinition, userArgs []string, baseEnv, userEnv map[string]string) (*types.DebugAdapterBinary, error) {
	requestArgs, err := RequestArgs(task.Config)
	if err != nil {
		return nil, err
	}

	args := make([]string, 0, len(baseArgs)+len(userArgs))
	args = append(args, baseArgs...)
	args = append(args, userArgs...)

	env := make(map[string]string, len(baseEnv)+len(userEnv))
	for k, v := range baseEnv {
		env[k] = v
	}
	for k, v := range userEnv {
		env[k] = v
	}

	return &types.DebugAdapterBinary{
		Command:     command,
		Arguments:   args,
		Env:         env,
		Cwd:         gjson.GetBytes(requestArgs.Configuration, "cwd").String(),
		RequestArgs: requestArgs,
	}, nil
}

// ToRequest converts request arguments into the DAP message that starts the
// session.
func ToRequest(args types.StartDebuggingRequestArguments, seq int) (dap.RequestMessage, error) {
	switch args.Request {
	case types.RequestAttach:
		return &dap.AttachRequest{
			Request:   newRequest(seq, "attach"),
			Arguments: args.Configuration,
		}, nil
	case types.RequestLaunch, "":
		return &dap.LaunchRequest{
			Request:   newRequest(seq, "launch"),
			Arguments: args.Configuration,
		}, nil
	}
	return nil, errors.InvalidParameter("request", args.Request, "launch or attach")
}

func newRequest(seq int, command string) dap.Request {
	return dap.Request{
		ProtocolMessage: dap.ProtocolMessage{Seq: seq, Type: "request"},
		Command:         command,
	}
}
