package office

// Pending is the result of a request queued on a Session. It becomes readable once
// the host resolves or rejects it during Sync; reading earlier is an error. This
// keeps the request/commit ordering explicit at every call site.
type Pending[T any] struct {
	value T
	err   error
	done  bool
}

// NewPending returns an unresolved result. Host implementations create one per
// queued request and settle it in Sync.
func NewPending[T any]() *Pending[T] {
	return &Pending[T]{}
}

// Resolve settles the result with a value.
func (p *Pending[T]) Resolve(v T) {
	p.value, p.err, p.done = v, nil, true
}

// Reject settles the result with an error.
func (p *Pending[T]) Reject(err error) {
	var zero T
	p.value, p.err, p.done = zero, err, true
}

// Settled reports whether Sync has resolved or rejected the result.
func (p *Pending[T]) Settled() bool { return p.done }

// Value returns the settled value, the rejection error, or ErrNotSynced.
func (p *Pending[T]) Value() (T, error) {
	if !p.done {
		var zero T
		return zero, ErrNotSynced
	}
	return p.value, p.err
}
