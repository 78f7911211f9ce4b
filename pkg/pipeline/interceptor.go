package pipeline

// Interceptor is a cross-cutting unit shared by all requests. An interceptor
// participates in a hook phase by implementing the matching optional
// interface below; a bare Interceptor with none of them is legal and simply
// occupies a chain position.
//
// One interceptor instance serves every concurrent request, so any mutable
// state it keeps must be concurrency-safe. The chain holds no locks around
// hook invocation.
type Interceptor interface {
	Name() string
}

// BeforeHook runs before the handler, in registration order. Returning a
// non-nil Result short-circuits the chain: remaining Before hooks and the
// handler are skipped and the result proceeds to the After phase. Returning
// an error does the same with the error as the pipeline result.
type BeforeHook interface {
	Interceptor
	Before(rc *RequestContext) (*Result, error)
}

// AfterHook runs after the handler (or after a short-circuit), in reverse
// registration order, and may transform the result. Returning an error
// replaces the result and skips the remaining After hooks.
type AfterHook interface {
	Interceptor
	After(rc *RequestContext, res *Result) (*Result, error)
}

// CompletionHook runs unconditionally in reverse registration order once the
// result is final, like a guaranteed cleanup phase. Errors it returns are
// logged and recorded as secondary errors, never replacing the result.
type CompletionHook interface {
	Interceptor
	OnComplete(rc *RequestContext, res *Result) error
}
