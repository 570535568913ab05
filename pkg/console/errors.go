package console

import "errors"

var (
	// ErrReadOnlyRegion is returned for user edits that start before the prompt.
	ErrReadOnlyRegion = errors.New("edit inside read-only history")

	// ErrNoPrompt is returned when an operation needs an open prompt.
	ErrNoPrompt = &noPromptError{}

	// ErrInProgress is returned by InsertPrompt while a computation runs.
	ErrInProgress = errors.New("interaction in progress")

	// ErrBounds is returned for offsets or carets outside the buffer.
	ErrBounds = errors.New("offset out of range")

	// ErrInputCanceled is the outcome of a read whose request was canceled.
	ErrInputCanceled = errors.New("input canceled")

	// ErrIllegalBridgeState marks misuse of the input bridge protocol:
	// double supply, supply without a request, or concurrent requests.
	ErrIllegalBridgeState = errors.New("illegal input bridge state")

	// ErrDispatcherStopped is returned for work submitted after Stop.
	ErrDispatcherStopped = errors.New("dispatcher stopped")
)

// noPromptError reports a missing prompt. It is also a read-only error so
// callers that only care about "the edit did not happen" can match either.
type noPromptError struct{}

func (*noPromptError) Error() string { return "no prompt in buffer" }

func (*noPromptError) Is(target error) bool { return target == ErrReadOnlyRegion }
