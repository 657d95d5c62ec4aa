package audio

import "context"

// startFuture lets concurrent RequestStart callers that arrive while a
// startup is already in flight share its eventual outcome instead of
// racing a second player launch (spec 4.8: "a second caller arriving
// during StartingConnectingBt is coalesced and receives the same
// outcome").
type startFuture struct {
	done chan struct{}
	err  error
}

func newStartFuture() *startFuture {
	return &startFuture{done: make(chan struct{})}
}

func (f *startFuture) complete(err error) {
	f.err = err
	close(f.done)
}

func (f *startFuture) wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
