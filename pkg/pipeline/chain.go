package pipeline

import (
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	apperrors "relay/pkg/errors"
)

// ErrChainFrozen is returned by Use once the chain is frozen.
var ErrChainFrozen = errors.New("pipeline: interceptor chain is frozen")

// Chain is the ordered interceptor list. Order is registration order for
// Before and reverse registration order for After/OnComplete, so the last
// interceptor to run before the handler is the first to run after it.
// Assembled at wiring time, frozen before the first request, then read-only.
type Chain struct {
	interceptors []Interceptor
	frozen       atomic.Bool
}

// NewChain creates a chain from interceptors in execution order.
func NewChain(interceptors ...Interceptor) *Chain {
	return &Chain{interceptors: interceptors}
}

// Use appends an interceptor. Fails with ErrChainFrozen after Freeze.
func (c *Chain) Use(i Interceptor) error {
	if c.frozen.Load() {
		return ErrChainFrozen
	}
	c.interceptors = append(c.interceptors, i)
	return nil
}

// Freeze marks the chain immutable. Idempotent.
func (c *Chain) Freeze() {
	c.frozen.Store(true)
}

// Frozen reports whether the chain has been frozen.
func (c *Chain) Frozen() bool {
	return c.frozen.Load()
}

// Len returns the number of interceptors in the chain.
func (c *Chain) Len() int {
	return len(c.interceptors)
}

// runBefore executes Before hooks in registration order. It returns how many
// chain positions were reached (which bounds the After/OnComplete phases,
// preserving symmetry) and a non-nil result if some hook short-circuited or
// failed.
func (c *Chain) runBefore(rc *RequestContext) (ran int, res *Result) {
	for i, interceptor := range c.interceptors {
		ran = i + 1

		hook, ok := interceptor.(BeforeHook)
		if !ok {
			continue
		}

		shortCircuit, err := invokeBefore(hook, rc)
		if err != nil {
			return ran, Fail(err)
		}
		if shortCircuit != nil {
			return ran, shortCircuit
		}
	}
	return len(c.interceptors), nil
}

// runAfter executes After hooks in reverse order over positions [0, ran).
// A hook may replace the result; an error becomes the new result and skips
// the remaining After hooks.
func (c *Chain) runAfter(rc *RequestContext, ran int, res *Result) *Result {
	for i := ran - 1; i >= 0; i-- {
		hook, ok := c.interceptors[i].(AfterHook)
		if !ok {
			continue
		}

		next, err := invokeAfter(hook, rc, res)
		if err != nil {
			return Fail(err)
		}
		if next != nil {
			res = next
		}
	}
	return res
}

// runComplete executes OnComplete hooks in reverse order over positions
// [0, ran), unconditionally. Hook errors are logged and recorded as
// secondary errors on the result; the primary outcome is already final.
func (c *Chain) runComplete(rc *RequestContext, ran int, res *Result, logger *zap.Logger) {
	for i := ran - 1; i >= 0; i-- {
		hook, ok := c.interceptors[i].(CompletionHook)
		if !ok {
			continue
		}

		if err := invokeComplete(hook, rc, res); err != nil {
			res.addSecondary(err)
			logger.Error("completion hook failed",
				zap.String("interceptor", c.interceptors[i].Name()),
				zap.String("request_id", rc.RequestID),
				zap.Error(err),
			)
		}
	}
}

// invokeBefore calls a Before hook, converting a panic into an error result.
func invokeBefore(hook BeforeHook, rc *RequestContext) (res *Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			res = nil
			err = hookPanicError(hook, rec)
		}
	}()
	return hook.Before(rc)
}

func invokeAfter(hook AfterHook, rc *RequestContext, current *Result) (res *Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			res = nil
			err = hookPanicError(hook, rec)
		}
	}()
	return hook.After(rc, current)
}

func invokeComplete(hook CompletionHook, rc *RequestContext, current *Result) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = hookPanicError(hook, rec)
		}
	}()
	return hook.OnComplete(rc, current)
}

func hookPanicError(i Interceptor, rec interface{}) error {
	return apperrors.NewInternalError(
		fmt.Sprintf("interceptor %q panicked: %v", i.Name(), rec),
	)
}
