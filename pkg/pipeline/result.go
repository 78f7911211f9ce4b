package pipeline

// Result is the terminal outcome of one request: either a response value or
// a classified error, produced exactly once per request. Completion-hook
// failures never replace the primary outcome; they accumulate as secondary
// errors for observability.
type Result struct {
	Value interface{}
	Err   error

	// Secondary holds errors raised inside OnComplete hooks. They are
	// recorded independently and never override Err or Value.
	Secondary []error
}

// OK wraps a successful response value.
func OK(value interface{}) *Result {
	return &Result{Value: value}
}

// Fail wraps an error outcome.
func Fail(err error) *Result {
	return &Result{Err: err}
}

// Failed reports whether the primary outcome is an error.
func (r *Result) Failed() bool {
	return r.Err != nil
}

func (r *Result) addSecondary(err error) {
	r.Secondary = append(r.Secondary, err)
}
