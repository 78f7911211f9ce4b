package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"relay/pkg/common"
	apperrors "relay/pkg/errors"
	"relay/pkg/routing"
)

// recordingInterceptor implements all three hooks and appends every call to
// a shared log so tests can assert exact ordering.
type recordingInterceptor struct {
	name string
	log  *[]string

	beforeResult *Result
	beforeErr    error
	beforeFn     func(rc *RequestContext)
	afterFn      func(res *Result) (*Result, error)
	completeErr  error
}

func (r *recordingInterceptor) Name() string { return r.name }

func (r *recordingInterceptor) Before(rc *RequestContext) (*Result, error) {
	*r.log = append(*r.log, r.name+".before")
	if r.beforeFn != nil {
		r.beforeFn(rc)
	}
	return r.beforeResult, r.beforeErr
}

func (r *recordingInterceptor) After(rc *RequestContext, res *Result) (*Result, error) {
	*r.log = append(*r.log, r.name+".after")
	if r.afterFn != nil {
		return r.afterFn(res)
	}
	return res, nil
}

func (r *recordingInterceptor) OnComplete(rc *RequestContext, res *Result) error {
	*r.log = append(*r.log, r.name+".complete")
	return r.completeErr
}

func newTestPipeline(t *testing.T, log *[]string, handlerErr error, interceptors ...Interceptor) *Pipeline {
	t.Helper()

	table := routing.NewTable(routing.NewChiMatcher())
	err := table.Register("GET", "/users", func(ctx context.Context, payload interface{}) (interface{}, error) {
		*log = append(*log, "handler")
		if handlerErr != nil {
			return nil, handlerErr
		}
		return "users-ok", nil
	}, nil)
	require.NoError(t, err)

	p := New(table, NewChain(interceptors...), zap.NewNop())
	p.Freeze()
	return p
}

func getUsers() *Request {
	return &Request{Method: "GET", Path: "/users"}
}

func TestExecute_HappyPathOrdering(t *testing.T) {
	var log []string
	a := &recordingInterceptor{name: "a", log: &log}
	b := &recordingInterceptor{name: "b", log: &log}
	c := &recordingInterceptor{name: "c", log: &log}

	p := newTestPipeline(t, &log, nil, a, b, c)
	res := p.Execute(context.Background(), getUsers())

	require.False(t, res.Failed())
	assert.Equal(t, "users-ok", res.Value)
	assert.Empty(t, res.Secondary)

	// Before in registration order, handler, then After and OnComplete in
	// reverse order, each hook exactly once.
	assert.Equal(t, []string{
		"a.before", "b.before", "c.before",
		"handler",
		"c.after", "b.after", "a.after",
		"c.complete", "b.complete", "a.complete",
	}, log)
}

func TestExecute_ShortCircuitSymmetry(t *testing.T) {
	var log []string
	a := &recordingInterceptor{name: "a", log: &log}
	b := &recordingInterceptor{name: "b", log: &log, beforeResult: OK("short-circuited")}
	c := &recordingInterceptor{name: "c", log: &log}

	p := newTestPipeline(t, &log, nil, a, b, c)
	res := p.Execute(context.Background(), getUsers())

	require.False(t, res.Failed())
	assert.Equal(t, "short-circuited", res.Value)

	// Only interceptors whose Before ran get After/OnComplete; the handler
	// and interceptor c never run at all.
	assert.Equal(t, []string{
		"a.before", "b.before",
		"b.after", "a.after",
		"b.complete", "a.complete",
	}, log)
}

func TestExecute_BeforeErrorBecomesResult(t *testing.T) {
	var log []string
	authErr := apperrors.NewUnauthorizedError("missing token")
	a := &recordingInterceptor{name: "a", log: &log}
	b := &recordingInterceptor{name: "b", log: &log, beforeErr: authErr}
	c := &recordingInterceptor{name: "c", log: &log}

	p := newTestPipeline(t, &log, nil, a, b, c)
	res := p.Execute(context.Background(), getUsers())

	require.True(t, res.Failed())
	assert.True(t, apperrors.IsUnauthorized(res.Err))
	assert.Equal(t, []string{
		"a.before", "b.before",
		"b.after", "a.after",
		"b.complete", "a.complete",
	}, log)
}

func TestExecute_HandlerErrorFlowsThroughAllPhases(t *testing.T) {
	var log []string
	handlerErr := apperrors.NewNotFoundError("user")
	a := &recordingInterceptor{name: "a", log: &log}
	b := &recordingInterceptor{name: "b", log: &log}

	p := newTestPipeline(t, &log, handlerErr, a, b)
	res := p.Execute(context.Background(), getUsers())

	require.True(t, res.Failed())
	assert.True(t, apperrors.IsNotFound(res.Err))
	assert.Equal(t, []string{
		"a.before", "b.before",
		"handler",
		"b.after", "a.after",
		"b.complete", "a.complete",
	}, log)
}

func TestExecute_AfterMayTransformError(t *testing.T) {
	var log []string
	handlerErr := apperrors.NewInternalError("boom")
	a := &recordingInterceptor{name: "a", log: &log}
	b := &recordingInterceptor{name: "b", log: &log, afterFn: func(res *Result) (*Result, error) {
		if res.Failed() {
			return OK("recovered"), nil
		}
		return res, nil
	}}

	p := newTestPipeline(t, &log, handlerErr, a, b)
	res := p.Execute(context.Background(), getUsers())

	require.False(t, res.Failed())
	assert.Equal(t, "recovered", res.Value)
}

func TestExecute_AfterErrorSkipsRemainingAfters(t *testing.T) {
	var log []string
	a := &recordingInterceptor{name: "a", log: &log}
	b := &recordingInterceptor{name: "b", log: &log}
	c := &recordingInterceptor{name: "c", log: &log, afterFn: func(res *Result) (*Result, error) {
		return nil, apperrors.NewInternalError("after failed")
	}}

	p := newTestPipeline(t, &log, nil, a, b, c)
	res := p.Execute(context.Background(), getUsers())

	require.True(t, res.Failed())
	assert.True(t, apperrors.IsType(res.Err, apperrors.ErrorTypeInternal))

	// c's After error ends the After phase, but OnComplete still runs for
	// every interceptor whose Before ran.
	assert.Equal(t, []string{
		"a.before", "b.before", "c.before",
		"handler",
		"c.after",
		"c.complete", "b.complete", "a.complete",
	}, log)
}

func TestExecute_OnCompleteErrorsAreSecondary(t *testing.T) {
	var log []string
	cleanupErr := apperrors.NewInternalError("cleanup failed")
	a := &recordingInterceptor{name: "a", log: &log, completeErr: cleanupErr}
	b := &recordingInterceptor{name: "b", log: &log}

	p := newTestPipeline(t, &log, nil, a, b)
	res := p.Execute(context.Background(), getUsers())

	// Primary outcome is untouched; the completion failure is secondary.
	require.False(t, res.Failed())
	assert.Equal(t, "users-ok", res.Value)
	require.Len(t, res.Secondary, 1)
	assert.ErrorIs(t, res.Secondary[0], cleanupErr)
}

func TestExecute_TwoSecondaryErrorsRecordedIndependently(t *testing.T) {
	var log []string
	errA := apperrors.NewInternalError("a cleanup")
	errB := apperrors.NewInternalError("b cleanup")
	a := &recordingInterceptor{name: "a", log: &log, completeErr: errA}
	b := &recordingInterceptor{name: "b", log: &log, completeErr: errB}

	p := newTestPipeline(t, &log, nil, a, b)
	res := p.Execute(context.Background(), getUsers())

	require.False(t, res.Failed())
	// Reverse order: b completes first.
	require.Len(t, res.Secondary, 2)
	assert.ErrorIs(t, res.Secondary[0], errB)
	assert.ErrorIs(t, res.Secondary[1], errA)
}

func TestExecute_RouteNotFound(t *testing.T) {
	var log []string
	a := &recordingInterceptor{name: "a", log: &log}

	p := newTestPipeline(t, &log, nil, a)
	res := p.Execute(context.Background(), &Request{Method: "POST", Path: "/nowhere"})

	require.True(t, res.Failed())
	assert.True(t, apperrors.IsNotFound(res.Err))
	appErr := apperrors.GetAppError(res.Err)
	require.NotNil(t, appErr)
	assert.Equal(t, "ROUTE_NOT_FOUND", appErr.Code)

	// No interceptor's Before ran, so none of its hooks fire.
	assert.Empty(t, log)
}

func TestExecute_HandlerPanicBecomesInternalError(t *testing.T) {
	var log []string
	table := routing.NewTable(routing.NewChiMatcher())
	require.NoError(t, table.Register("GET", "/users", func(ctx context.Context, payload interface{}) (interface{}, error) {
		panic("kaboom")
	}, nil))

	a := &recordingInterceptor{name: "a", log: &log}
	p := New(table, NewChain(a), zap.NewNop())
	p.Freeze()

	res := p.Execute(context.Background(), getUsers())

	require.True(t, res.Failed())
	assert.True(t, apperrors.IsType(res.Err, apperrors.ErrorTypeInternal))
	assert.Equal(t, []string{"a.before", "a.after", "a.complete"}, log)
}

func TestExecute_CancellationStillCompletes(t *testing.T) {
	var log []string
	ctx, cancel := context.WithCancel(context.Background())

	a := &recordingInterceptor{name: "a", log: &log}
	b := &recordingInterceptor{name: "b", log: &log, beforeFn: func(rc *RequestContext) {
		cancel()
	}}

	p := newTestPipeline(t, &log, nil, a, b)
	res := p.Execute(ctx, getUsers())

	require.True(t, res.Failed())
	assert.True(t, apperrors.IsCancelled(res.Err))

	// The handler is skipped, but every interceptor that ran Before still
	// gets After and OnComplete so acquired resources are released.
	assert.Equal(t, []string{
		"a.before", "b.before",
		"b.after", "a.after",
		"b.complete", "a.complete",
	}, log)
}

func TestExecute_DecodeErrorBecomesResult(t *testing.T) {
	var log []string
	a := &recordingInterceptor{name: "a", log: &log}

	p := newTestPipeline(t, &log, nil, a)
	req := getUsers()
	req.Decode = func(entry *routing.Entry, params routing.Params) (interface{}, error) {
		return nil, apperrors.NewValidationError("malformed body")
	}

	res := p.Execute(context.Background(), req)

	require.True(t, res.Failed())
	assert.True(t, apperrors.IsValidation(res.Err))
	assert.Equal(t, []string{"a.before", "a.after", "a.complete"}, log)
}

func TestExecute_DecodedPayloadReachesHandler(t *testing.T) {
	type createReq struct{ Title string }

	table := routing.NewTable(routing.NewChiMatcher())
	var got interface{}
	require.NoError(t, table.Register("POST", "/notes", func(ctx context.Context, payload interface{}) (interface{}, error) {
		got = payload
		return nil, nil
	}, nil))

	p := New(table, NewChain(), zap.NewNop())
	p.Freeze()

	want := &createReq{Title: "hello"}
	res := p.Execute(context.Background(), &Request{
		Method: "POST",
		Path:   "/notes",
		Decode: func(entry *routing.Entry, params routing.Params) (interface{}, error) {
			return want, nil
		},
	})

	require.False(t, res.Failed())
	assert.Same(t, want, got)
}

func TestExecute_RouteParamsInHandlerContext(t *testing.T) {
	table := routing.NewTable(routing.NewChiMatcher())
	require.NoError(t, table.Register("GET", "/notes/{noteID}", func(ctx context.Context, payload interface{}) (interface{}, error) {
		return common.RouteParam(ctx, "noteID"), nil
	}, nil))

	p := New(table, NewChain(), zap.NewNop())
	p.Freeze()

	res := p.Execute(context.Background(), &Request{Method: "GET", Path: "/notes/n-42"})
	require.False(t, res.Failed())
	assert.Equal(t, "n-42", res.Value)
}

func TestExecute_RequestIDPropagation(t *testing.T) {
	table := routing.NewTable(routing.NewChiMatcher())
	require.NoError(t, table.Register("GET", "/id", func(ctx context.Context, payload interface{}) (interface{}, error) {
		id, _ := common.GetRequestID(ctx)
		return id, nil
	}, nil))

	p := New(table, NewChain(), zap.NewNop())
	p.Freeze()

	res := p.Execute(context.Background(), &Request{Method: "GET", Path: "/id", RequestID: "req-7"})
	require.False(t, res.Failed())
	assert.Equal(t, "req-7", res.Value)

	// Without an explicit id one is generated.
	res = p.Execute(context.Background(), &Request{Method: "GET", Path: "/id"})
	require.False(t, res.Failed())
	assert.NotEmpty(t, res.Value)
}

func TestExecute_MetadataSeededFromRequest(t *testing.T) {
	var seen string
	probe := &metadataProbe{captured: &seen}

	var log []string
	p := newTestPipeline(t, &log, nil, probe)

	res := p.Execute(context.Background(), &Request{
		Method: "GET",
		Path:   "/users",
		Meta:   map[string]interface{}{"client_ip": "10.0.0.7"},
	})

	require.False(t, res.Failed())
	assert.Equal(t, "10.0.0.7", seen)
}

type metadataProbe struct {
	captured *string
}

func (m *metadataProbe) Name() string { return "metadata-probe" }

func (m *metadataProbe) Before(rc *RequestContext) (*Result, error) {
	*m.captured = rc.GetString("client_ip")
	return nil, nil
}

func TestChain_UseAfterFreeze(t *testing.T) {
	chain := NewChain()
	require.NoError(t, chain.Use(&metadataProbe{captured: new(string)}))

	chain.Freeze()
	assert.True(t, chain.Frozen())
	assert.ErrorIs(t, chain.Use(&metadataProbe{captured: new(string)}), ErrChainFrozen)
	assert.Equal(t, 1, chain.Len())
}

func TestExecute_InterceptorWithoutHooksIsLegal(t *testing.T) {
	var log []string
	p := newTestPipeline(t, &log, nil, bareInterceptor{}, &recordingInterceptor{name: "a", log: &log})

	res := p.Execute(context.Background(), getUsers())
	require.False(t, res.Failed())
	assert.Equal(t, []string{"a.before", "handler", "a.after", "a.complete"}, log)
}

type bareInterceptor struct{}

func (bareInterceptor) Name() string { return "bare" }
