package contract

import "context"

// ToolRequest is what the model asked for: a registered tool name plus the
// arguments it extracted from the conversation.
type ToolRequest struct {
	ID   string         `json:"id,omitempty"`
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolResult carries the outcome of one tool invocation. Output is the JSON
// payload handed back to the model. A failed fetch keeps Output empty and
// records the cause in Err, so callers and tests can tell "no data" apart
// from "fetch failed"; the model only ever sees Payload().
type ToolResult struct {
	Tool   string `json:"tool"`
	Output string `json:"output"`
	Err    error  `json:"-"`
}

// Failed reports whether the invocation degraded because of a configuration,
// transport, or data-shape error.
func (r ToolResult) Failed() bool {
	return r.Err != nil
}

// Payload returns the model-visible output. Degraded results surface as the
// empty JSON array so the model reads them as "no data available".
func (r ToolResult) Payload() string {
	if r.Err != nil || r.Output == "" {
		return "[]"
	}
	return r.Output
}

// Fetcher is a single read-only data capability exposed to the model.
type Fetcher func(ctx context.Context, args map[string]any) (string, error)

// StepObserver receives intermediate agent activity during one turn. The CLI
// uses it to stream tool calls and results while the model is thinking.
type StepObserver interface {
	OnToolCall(req ToolRequest)
	OnToolResult(res ToolResult)
}
