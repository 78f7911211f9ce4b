package routing

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ChiMatcher compiles patterns with chi's routing tree, giving routes the
// familiar {param} and wildcard syntax. Each pattern gets its own
// single-route mux so the table, not chi's tree, decides precedence.
type ChiMatcher struct{}

// NewChiMatcher creates a chi-based pattern matcher.
func NewChiMatcher() ChiMatcher {
	return ChiMatcher{}
}

// Compile implements Matcher. chi reports malformed patterns by panicking,
// so compilation converts that into an error.
func (ChiMatcher) Compile(pattern string) (p Pattern, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			p = nil
			err = fmt.Errorf("chi rejected pattern: %v", rec)
		}
	}()

	mux := chi.NewRouter()
	mux.Handle(pattern, http.NotFoundHandler())
	return &chiPattern{mux: mux}, nil
}

type chiPattern struct {
	mux *chi.Mux
}

// Match implements Pattern. The probe method is irrelevant because the
// pattern was registered for all methods; the table enforces method policy.
func (p *chiPattern) Match(path string) (Params, bool) {
	rctx := chi.NewRouteContext()
	if !p.mux.Match(rctx, http.MethodGet, path) {
		return nil, false
	}

	params := make(Params, len(rctx.URLParams.Keys))
	for i, key := range rctx.URLParams.Keys {
		if key == "*" {
			continue
		}
		params[key] = rctx.URLParams.Values[i]
	}
	return params, true
}
