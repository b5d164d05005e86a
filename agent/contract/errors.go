package contract

import "errors"

var (
	ErrValidation       = errors.New("validation failed")
	ErrModelInvoke      = errors.New("model invoke failed")
	ErrUnknownTool      = errors.New("unknown tool")
	ErrToolLoopExceeded = errors.New("too many tool calls")
	ErrFetchFailed      = errors.New("data fetch failed")
)
