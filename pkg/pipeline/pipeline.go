// Package pipeline implements the single deterministic control path every
// inbound request traverses: route match, Before hooks, handler invocation,
// After hooks, and an unconditional completion phase. Errors are values that
// flow through the same phases as successful results; only wiring errors are
// fatal, and those happen before the pipeline ever serves.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	apperrors "relay/pkg/errors"
	"relay/pkg/routing"
)

// State identifies a pipeline stage. Within one request the stage order is
// strict and total; across requests there is no ordering at all.
type State string

const (
	StateRouting       State = "routing"
	StatePreIntercept  State = "pre_intercept"
	StateHandling      State = "handling"
	StatePostIntercept State = "post_intercept"
	StateCompleting    State = "completing"
	StateDone          State = "done"
)

// DecodeFunc is the request-decoder collaborator: given the matched route it
// produces the typed payload the handler receives, or a decoding error that
// becomes the pipeline result.
type DecodeFunc func(entry *routing.Entry, params routing.Params) (interface{}, error)

// Request is the transport-agnostic description of one inbound request.
type Request struct {
	Method string
	Path   string

	// RequestID is optional; when empty one is taken from the context or
	// generated.
	RequestID string

	// Meta seeds the request metadata bag (for example the authorization
	// header and client address extracted by the transport adapter).
	Meta map[string]interface{}

	// Decode is invoked during Handling, after routing succeeded. Nil means
	// the handler receives a nil payload.
	Decode DecodeFunc
}

// Pipeline routes, intercepts, and executes requests. It is safe for
// concurrent use once frozen; each request gets its own RequestContext and
// the shared table and chain are read-only.
type Pipeline struct {
	table  *routing.Table
	chain  *Chain
	logger *zap.Logger
}

// New creates a pipeline over a route table and interceptor chain.
func New(table *routing.Table, chain *Chain, logger *zap.Logger) *Pipeline {
	if chain == nil {
		chain = NewChain()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{table: table, chain: chain, logger: logger}
}

// Chain exposes the interceptor chain for wiring-time registration.
func (p *Pipeline) Chain() *Chain {
	return p.chain
}

// Freeze freezes the route table and interceptor chain. Must be called
// before the first Execute; no registration is valid afterwards.
func (p *Pipeline) Freeze() {
	p.table.Freeze()
	p.chain.Freeze()
}

// Execute runs one request through the full state machine and returns its
// Result. The sequence is identical whether the result originates from the
// handler, a short-circuit, or an error: interceptors never need to care
// which path produced the result they observe.
func (p *Pipeline) Execute(ctx context.Context, req *Request) *Result {
	rc := newRequestContext(ctx, req)

	rc.mark(StateRouting)
	entry, params, err := p.table.Match(req.Method, req.Path)
	if err != nil {
		// No route means no interceptor ran, so Completing has no hooks to
		// fire; the pipeline itself still observes and logs the outcome.
		res := Fail(apperrors.NewRouteNotFoundError(req.Method, req.Path))
		return p.complete(rc, 0, res)
	}
	rc.bindRoute(entry, params)

	rc.mark(StatePreIntercept)
	ran, res := p.chain.runBefore(rc)

	if res == nil {
		rc.mark(StateHandling)
		res = p.handle(rc, req)
	}

	rc.mark(StatePostIntercept)
	res = p.chain.runAfter(rc, ran, res)

	return p.complete(rc, ran, res)
}

// handle invokes the decoder collaborator and then the bound handler. Caller
// cancellation observed here becomes the result; the completion phase still
// runs so resources acquired in Before hooks are released.
func (p *Pipeline) handle(rc *RequestContext, req *Request) *Result {
	if err := rc.Context().Err(); err != nil {
		return Fail(apperrors.NewCancelledError(err))
	}

	if req.Decode != nil {
		payload, err := req.Decode(rc.Route, rc.Params)
		if err != nil {
			return Fail(err)
		}
		rc.Payload = payload
	}

	return p.invokeHandler(rc)
}

func (p *Pipeline) invokeHandler(rc *RequestContext) (res *Result) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("handler panicked",
				zap.String("request_id", rc.RequestID),
				zap.String("route", rc.Route.Pattern),
				zap.Any("panic", rec),
			)
			res = Fail(apperrors.NewInternalError(
				fmt.Sprintf("handler for %s %s panicked", rc.Method, rc.Route.Pattern),
			))
		}
	}()

	value, err := rc.Route.Handler(rc.Context(), rc.Payload)
	if err != nil {
		return Fail(err)
	}
	return OK(value)
}

// complete runs the Completing phase and finalizes the request.
func (p *Pipeline) complete(rc *RequestContext, ran int, res *Result) *Result {
	rc.mark(StateCompleting)
	p.chain.runComplete(rc, ran, res, p.logger)

	rc.mark(StateDone)
	p.logOutcome(rc, res)
	return res
}

func (p *Pipeline) logOutcome(rc *RequestContext, res *Result) {
	fields := []zap.Field{
		zap.String("request_id", rc.RequestID),
		zap.String("method", rc.Method),
		zap.String("path", rc.Path),
		zap.Duration("duration", rc.Elapsed()),
	}
	if len(res.Secondary) > 0 {
		fields = append(fields, zap.Int("secondary_errors", len(res.Secondary)))
	}

	switch {
	case res.Failed() && apperrors.IsNotFound(res.Err):
		p.logger.Debug("request finished without a route", fields...)
	case res.Failed():
		p.logger.Warn("request failed", append(fields, zap.Error(res.Err))...)
	default:
		p.logger.Debug("request finished", fields...)
	}
}
