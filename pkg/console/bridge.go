package console

import (
	"context"
	"fmt"
	"sync"
)

// BridgeState is the lifecycle state of an InputBridge.
type BridgeState int

const (
	BridgeIdle BridgeState = iota
	BridgeRequested
	BridgeFulfilled
	BridgeCanceled
)

func (s BridgeState) String() string {
	switch s {
	case BridgeIdle:
		return "idle"
	case BridgeRequested:
		return "requested"
	case BridgeFulfilled:
		return "fulfilled"
	case BridgeCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("BridgeState(%d)", int(s))
	}
}

// DefaultTerminator ends every supplied line.
const DefaultTerminator = "\n"

type inputResult struct {
	line     string
	canceled bool
	cause    error
}

// InputRequest is the token for one pending read. It is created by Begin
// and is spent by exactly one Wait.
type InputRequest struct {
	bridge *InputBridge
	id     uint64
	result chan inputResult
}

// ID identifies the request for logging.
func (r *InputRequest) ID() uint64 { return r.id }

// InputBridge hands one line at a time from a producer goroutine (UI,
// popup, or headless driver) to a consumer blocked in RequestInput.
type InputBridge struct {
	mu         sync.Mutex
	state      BridgeState
	pending    *InputRequest
	ready      chan struct{}
	nextID     uint64
	terminator string
}

// NewInputBridge creates an idle bridge. An empty terminator selects
// DefaultTerminator.
func NewInputBridge(terminator string) *InputBridge {
	if terminator == "" {
		terminator = DefaultTerminator
	}
	return &InputBridge{
		ready:      make(chan struct{}),
		terminator: terminator,
	}
}

// State returns the current bridge state.
func (b *InputBridge) State() BridgeState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Begin registers a new request and advertises it. The result channel is
// in place before the state becomes visible, so a supply can never be lost.
func (b *InputBridge) Begin() (*InputRequest, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != BridgeIdle {
		return nil, fmt.Errorf("request while %s: %w", b.state, ErrIllegalBridgeState)
	}
	b.nextID++
	req := &InputRequest{
		bridge: b,
		id:     b.nextID,
		result: make(chan inputResult, 1),
	}
	b.pending = req
	b.state = BridgeRequested
	close(b.ready)
	return req, nil
}

// RequestInput blocks until a line is supplied and returns it with its
// terminator. A canceled request returns ErrInputCanceled.
func (b *InputBridge) RequestInput(ctx context.Context) (string, error) {
	req, err := b.Begin()
	if err != nil {
		return "", err
	}
	return req.Wait(ctx)
}

// Wait blocks until the request is fulfilled or canceled. When ctx ends
// first the request is canceled on the caller's behalf.
func (r *InputRequest) Wait(ctx context.Context) (string, error) {
	var res inputResult
	select {
	case res = <-r.result:
	case <-ctx.Done():
		r.bridge.cancel(r, ctx.Err())
		res = <-r.result
	}
	r.bridge.finish(r)

	if res.canceled {
		if res.cause != nil {
			return "", fmt.Errorf("%w: %w", ErrInputCanceled, res.cause)
		}
		return "", ErrInputCanceled
	}
	return res.line, nil
}

// Cancel aborts the pending request, if any, and reports whether there was
// one to abort.
func (r *InputRequest) Cancel() bool {
	return r.bridge.cancel(r, nil)
}

// SupplyLine delivers text to the pending request.
func (b *InputBridge) SupplyLine(text string) error {
	return b.supply(nil, text)
}

// Supply delivers text to r. It fails if r is no longer the pending request.
func (r *InputRequest) Supply(text string) error {
	return r.bridge.supply(r, text)
}

func (b *InputBridge) supply(req *InputRequest, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != BridgeRequested {
		return fmt.Errorf("supply while %s: %w", b.state, ErrIllegalBridgeState)
	}
	if req != nil && b.pending != req {
		return fmt.Errorf("supply to stale request %d: %w", req.id, ErrIllegalBridgeState)
	}
	b.state = BridgeFulfilled
	b.ready = make(chan struct{})
	b.pending.result <- inputResult{line: text + b.terminator}
	return nil
}

// Cancel aborts whatever request is pending. It is safe to call at any time.
func (b *InputBridge) Cancel() bool {
	return b.cancel(nil, nil)
}

// cancel aborts req, or the pending request when req is nil.
func (b *InputBridge) cancel(req *InputRequest, cause error) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != BridgeRequested || (req != nil && b.pending != req) {
		return false
	}
	b.state = BridgeCanceled
	b.ready = make(chan struct{})
	b.pending.result <- inputResult{canceled: true, cause: cause}
	return true
}

// finish returns the bridge to idle once the waiter has consumed its result.
func (b *InputBridge) finish(req *InputRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending != req {
		return
	}
	b.pending = nil
	b.state = BridgeIdle
}

// isPending reports whether req is the request currently awaiting a line.
func (b *InputBridge) isPending(req *InputRequest) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == BridgeRequested && b.pending == req
}

// WaitUntilReady blocks until a request is pending. The ready channel is
// closed by Begin and replaced as soon as the request is resolved.
func (b *InputBridge) WaitUntilReady(ctx context.Context) error {
	b.mu.Lock()
	if b.state == BridgeRequested {
		b.mu.Unlock()
		return nil
	}
	ready := b.ready
	b.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
