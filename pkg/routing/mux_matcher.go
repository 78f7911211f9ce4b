package routing

import (
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
)

// MuxMatcher compiles patterns with gorilla/mux, for deployments already
// standardized on its {param:regexp} syntax.
type MuxMatcher struct{}

// NewMuxMatcher creates a gorilla/mux-based pattern matcher.
func NewMuxMatcher() MuxMatcher {
	return MuxMatcher{}
}

// Compile implements Matcher.
func (MuxMatcher) Compile(pattern string) (Pattern, error) {
	route := mux.NewRouter().NewRoute().Path(pattern)
	if err := route.GetError(); err != nil {
		return nil, err
	}
	return &muxPattern{route: route}, nil
}

type muxPattern struct {
	route *mux.Route
}

// Match implements Pattern. gorilla matches against a request, so a minimal
// probe request is fabricated from the path.
func (p *muxPattern) Match(path string) (Params, bool) {
	probe := &http.Request{
		Method: http.MethodGet,
		URL:    &url.URL{Path: path},
	}

	var m mux.RouteMatch
	if !p.route.Match(probe, &m) {
		return nil, false
	}
	return Params(m.Vars), true
}
