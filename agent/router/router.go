package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/afquintero/cierre-agent/agent/contract"
	promptx "github.com/afquintero/cierre-agent/agent/prompt"
	sessionx "github.com/afquintero/cierre-agent/agent/session"
	toolsx "github.com/afquintero/cierre-agent/agent/tools"
	metricsx "github.com/afquintero/cierre-agent/pkg/metrics"
)

const defaultMaxToolRounds = 10

// GenericErrorReply is the only error text end users ever see; the real
// cause goes to the log.
const GenericErrorReply = "Ocurrio un error inesperado procesando la pregunta. Por favor intenta de nuevo."

// Router orchestrates one conversation turn: it replays the session history
// to the model together with the tool registry, executes the tool calls the
// model requests, and loops until the model produces a final answer. Turns
// for the same session id are serialized; distinct sessions may run
// concurrently.
type Router struct {
	model         einomodel.ToolCallingChatModel
	registry      *toolsx.Registry
	store         sessionx.Store
	metrics       *metricsx.Metrics
	observer      contractx.StepObserver
	maxToolRounds int
	now           func() time.Time

	turnLocks sync.Map // session id -> *sync.Mutex
}

type Option func(*Router)

func WithMaxToolRounds(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.maxToolRounds = n
		}
	}
}

func WithObserver(obs contractx.StepObserver) Option {
	return func(r *Router) {
		if obs != nil {
			r.observer = obs
		}
	}
}

func WithMetrics(m *metricsx.Metrics) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		if now != nil {
			r.now = now
		}
	}
}

func New(model einomodel.ToolCallingChatModel, registry *toolsx.Registry, store sessionx.Store, opts ...Option) (*Router, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	if registry == nil {
		return nil, fmt.Errorf("%w: tool registry is required", contractx.ErrValidation)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: session store is required", contractx.ErrValidation)
	}

	toolModel, err := model.WithTools(registry.List())
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools: %v", contractx.ErrModelInvoke, err)
	}

	r := &Router{
		model:         toolModel,
		registry:      registry,
		store:         store,
		observer:      noopObserver{},
		maxToolRounds: defaultMaxToolRounds,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Respond processes one user message for a session and returns the final
// natural-language answer. The user message, every intermediate tool
// exchange, and the final answer are appended to the session history.
func (r *Router) Respond(ctx context.Context, sessionID, text string) (string, error) {
	start := r.now()
	reply, err := r.respond(ctx, sessionID, text)
	r.metrics.ObserveTurn(r.now().Sub(start), err != nil)
	return reply, err
}

func (r *Router) respond(ctx context.Context, sessionID, text string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", fmt.Errorf("%w: session id is required", contractx.ErrValidation)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: user message is empty", contractx.ErrValidation)
	}

	unlock := r.lockSession(sessionID)
	defer unlock()

	if err := r.store.Append(ctx, sessionID, sessionx.UserMessage(text, r.now())); err != nil {
		return "", fmt.Errorf("append user message: %w", err)
	}

	history, err := r.store.History(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("load session history: %w", err)
	}

	msgs := make([]*schema.Message, 0, len(history)+1)
	msgs = append(msgs, schema.SystemMessage(promptx.System(r.now())))
	msgs = append(msgs, toSchemaMessages(history)...)

	for round := 0; round < r.maxToolRounds; round++ {
		out, err := r.generate(ctx, msgs)
		if err != nil {
			return "", err
		}

		if len(out.ToolCalls) == 0 {
			answer := strings.TrimSpace(out.Content)
			if answer == "" {
				return "", fmt.Errorf("%w: model returned an empty answer", contractx.ErrModelInvoke)
			}
			if err := r.store.Append(ctx, sessionID, sessionx.AssistantMessage(answer, r.now())); err != nil {
				return "", fmt.Errorf("append assistant message: %w", err)
			}
			return answer, nil
		}

		msgs = append(msgs, out)
		toolMsgs, err := r.executeToolCalls(ctx, sessionID, out.ToolCalls)
		if err != nil {
			return "", err
		}
		msgs = append(msgs, toolMsgs...)
	}

	return "", fmt.Errorf("%w: gave up after %d tool rounds", contractx.ErrToolLoopExceeded, r.maxToolRounds)
}

func (r *Router) generate(ctx context.Context, msgs []*schema.Message) (*schema.Message, error) {
	start := r.now()
	out, err := r.model.Generate(ctx, msgs)
	r.metrics.ObserveLLM(r.now().Sub(start), err != nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: model returned no message", contractx.ErrModelInvoke)
	}
	return out, nil
}

// executeToolCalls runs every tool call of one model round and returns the
// tool messages to feed back into the model's context. The assistant's
// tool-call record and every result are appended to the session history in
// one batch only after all calls succeeded: a history must never hold a tool
// call without its matching result, or replaying it would break every later
// turn on the session.
func (r *Router) executeToolCalls(ctx context.Context, sessionID string, calls []schema.ToolCall) ([]*schema.Message, error) {
	recorded := make([]sessionx.ToolCall, 0, len(calls))
	for _, call := range calls {
		recorded = append(recorded, sessionx.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	sessionMsgs := make([]sessionx.Message, 0, len(calls)+1)
	sessionMsgs = append(sessionMsgs, sessionx.AssistantToolCallMessage(recorded, r.now()))

	toolMsgs := make([]*schema.Message, 0, len(calls))
	for _, call := range calls {
		req, err := toToolRequest(call)
		if err != nil {
			return nil, err
		}
		r.observer.OnToolCall(req)

		res, err := r.registry.Invoke(ctx, req)
		if err != nil {
			// Unknown tool: fail the turn without recording the exchange.
			return nil, err
		}
		r.observer.OnToolResult(res)

		payload := res.Payload()
		sessionMsgs = append(sessionMsgs, sessionx.ToolMessage(req.Tool, call.ID, payload, r.now()))
		toolMsgs = append(toolMsgs, schema.ToolMessage(payload, call.ID, schema.WithToolName(req.Tool)))
	}

	if err := r.store.Append(ctx, sessionID, sessionMsgs...); err != nil {
		return nil, fmt.Errorf("append tool exchange: %w", err)
	}
	return toolMsgs, nil
}

func (r *Router) lockSession(sessionID string) func() {
	v, _ := r.turnLocks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func toToolRequest(call schema.ToolCall) (contractx.ToolRequest, error) {
	name := strings.TrimSpace(call.Function.Name)
	if name == "" {
		return contractx.ToolRequest{}, fmt.Errorf("%w: tool call name is empty", contractx.ErrModelInvoke)
	}

	args := map[string]any{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			log.Warn().Str("tool", name).Err(err).Msg("model produced unparseable tool arguments")
			args = map[string]any{}
		}
	}

	return contractx.ToolRequest{ID: call.ID, Tool: name, Args: args}, nil
}

func toSchemaMessages(history []sessionx.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case sessionx.RoleUser:
			out = append(out, schema.UserMessage(msg.Content))
		case sessionx.RoleAssistant:
			if len(msg.ToolCalls) > 0 {
				calls := make([]schema.ToolCall, 0, len(msg.ToolCalls))
				for _, tc := range msg.ToolCalls {
					calls = append(calls, schema.ToolCall{
						ID: tc.ID,
						Function: schema.FunctionCall{
							Name:      tc.Name,
							Arguments: tc.Arguments,
						},
					})
				}
				out = append(out, &schema.Message{Role: schema.Assistant, ToolCalls: calls})
				continue
			}
			out = append(out, schema.AssistantMessage(msg.Content, nil))
		case sessionx.RoleTool:
			out = append(out, schema.ToolMessage(msg.Content, msg.ToolCallID, schema.WithToolName(msg.ToolName)))
		}
	}
	return out
}

type noopObserver struct{}

func (noopObserver) OnToolCall(contractx.ToolRequest)  {}
func (noopObserver) OnToolResult(contractx.ToolResult) {}
