package session

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall records one tool invocation requested by the assistant, kept in
// history so the exact model-visible context can be replayed on later turns.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one conversational turn. Messages are immutable once appended;
// ordering inside a session is the context replayed to the model.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
	At         time.Time  `json:"at"`
}

func UserMessage(text string, now time.Time) Message {
	return Message{Role: RoleUser, Content: text, At: now.UTC()}
}

func AssistantMessage(text string, now time.Time) Message {
	return Message{Role: RoleAssistant, Content: text, At: now.UTC()}
}

func AssistantToolCallMessage(calls []ToolCall, now time.Time) Message {
	return Message{Role: RoleAssistant, ToolCalls: calls, At: now.UTC()}
}

func ToolMessage(toolName, toolCallID, payload string, now time.Time) Message {
	return Message{
		Role:       RoleTool,
		Content:    payload,
		ToolCallID: toolCallID,
		ToolName:   toolName,
		At:         now.UTC(),
	}
}
