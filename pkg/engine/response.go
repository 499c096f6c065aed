package engine

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/getmockd/intercept/pkg/httputil"
)

// State is a playback phase.
type State int

const (
	StateMatched State = iota
	StateDelayedHead
	StateHeadersSent
	StateDelayedBody
	StateStreaming
	StateComplete
	StateAborted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateMatched:
		return "matched"
	case StateDelayedHead:
		return "delayed_head"
	case StateHeadersSent:
		return "headers_sent"
	case StateDelayedBody:
		return "delayed_body"
	case StateStreaming:
		return "streaming"
	case StateComplete:
		return "complete"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ErrAborted is returned by BodyStream.Read after the body was closed before
// it was fully read.
var ErrAborted = errors.New("playback aborted")

// Response is a reply being played back. Status and headers are final when
// Playback returns it; the body is pulled through Body.
type Response struct {
	MatchID    string
	Status     int
	Headers    httputil.Header
	RawHeaders []string
	Body       *BodyStream

	mu      sync.Mutex
	state   State
	history []State
	err     error

	idle        time.Duration
	idleTimer   *time.Timer
	timeout     chan struct{}
	timeoutOnce sync.Once

	aborted   chan struct{}
	bodyReady chan struct{}
	bodyTimer *time.Timer
	stopCtx   func() bool
	onFinish  func(*Response)
}

func newResponse(matchID string, idle time.Duration, onFinish func(*Response)) *Response {
	return &Response{
		MatchID:   matchID,
		state:     StateMatched,
		history:   []State{StateMatched},
		idle:      idle,
		timeout:   make(chan struct{}),
		aborted:   make(chan struct{}),
		bodyReady: make(chan struct{}),
		onFinish:  onFinish,
	}
}

// State returns the current playback phase.
func (r *Response) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// History returns every phase the playback went through, in order.
func (r *Response) History() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.history...)
}

// Err returns why the playback was aborted, or nil.
func (r *Response) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Timeout is closed when the idle threshold of the request elapses without a
// body read, or right away when the expectation's socket delay reaches the
// threshold. It never closes when the request set no threshold.
func (r *Response) Timeout() <-chan struct{} {
	return r.timeout
}

// TimedOut reports whether Timeout has fired.
func (r *Response) TimedOut() bool {
	select {
	case <-r.timeout:
		return true
	default:
		return false
	}
}

// Done is closed when the playback is aborted.
func (r *Response) Done() <-chan struct{} {
	return r.aborted
}

func (r *Response) setStateLocked(s State) {
	r.state = s
	r.history = append(r.history, s)
}

func (r *Response) setState(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setStateLocked(s)
}

func (r *Response) fireTimeout() {
	r.timeoutOnce.Do(func() { close(r.timeout) })
}

// startIdle arms the idle timer.
func (r *Response) startIdle(socketDelay time.Duration) {
	if r.idle <= 0 {
		return
	}
	if socketDelay >= r.idle {
		r.fireTimeout()
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.idleTimer = time.AfterFunc(r.idle, r.fireTimeout)
}

func (r *Response) touchLocked() {
	if r.idleTimer != nil && !r.TimedOut() {
		r.idleTimer.Reset(r.idle)
	}
}

// waitHead blocks for the head delay.
func (r *Response) waitHead(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	r.setState(StateDelayedHead)
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		err := context.Cause(ctx)
		r.abort(err)
		return err
	}
}

// sendHeaders moves to HeadersSent, arms the body delay and ties the rest of
// the playback to ctx.
func (r *Response) sendHeaders(ctx context.Context, bodyDelay time.Duration) {
	r.mu.Lock()
	r.setStateLocked(StateHeadersSent)
	if bodyDelay > 0 {
		r.setStateLocked(StateDelayedBody)
		r.bodyTimer = time.AfterFunc(bodyDelay, r.startStreaming)
	}
	r.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { r.abort(context.Cause(ctx)) })
	r.mu.Lock()
	if r.state == StateAborted || r.state == StateComplete {
		r.mu.Unlock()
		stop()
		return
	}
	r.stopCtx = stop
	r.mu.Unlock()
}

func (r *Response) startStreaming() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateDelayedBody {
		return
	}
	r.setStateLocked(StateStreaming)
	close(r.bodyReady)
}

// abort stops every pending timer and fails further reads with err.
func (r *Response) abort(err error) {
	r.mu.Lock()
	if r.state == StateComplete || r.state == StateAborted {
		r.mu.Unlock()
		return
	}
	if err == nil {
		err = ErrAborted
	}
	cleanup := r.finishLocked(StateAborted, err)
	r.mu.Unlock()
	cleanup()
}

func (r *Response) finishLocked(s State, err error) func() {
	r.setStateLocked(s)
	r.err = err
	if r.bodyTimer != nil {
		r.bodyTimer.Stop()
	}
	if r.idleTimer != nil {
		r.idleTimer.Stop()
	}
	if s == StateAborted {
		close(r.aborted)
	}
	stop, hook := r.stopCtx, r.onFinish
	r.stopCtx = nil
	return func() {
		if stop != nil {
			stop()
		}
		if hook != nil {
			hook(r)
		}
	}
}

// BodyStream delivers the reply body on demand. Each Read returns bytes from
// at most one chunk, so pre-encoded chunk boundaries are preserved.
type BodyStream struct {
	r      *Response
	chunks [][]byte
	size   int
	paused bool
	resume chan struct{}
}

func newBodyStream(r *Response, chunks [][]byte) *BodyStream {
	b := &BodyStream{r: r}
	for _, c := range chunks {
		b.chunks = append(b.chunks, c)
		b.size += len(c)
	}
	return b
}

// Size returns the total body length in bytes.
func (b *BodyStream) Size() int {
	return b.size
}

// Read implements io.Reader. The first byte is held back until the body delay
// elapsed. Read blocks while the stream is paused.
func (b *BodyStream) Read(p []byte) (int, error) {
	r := b.r
	for {
		r.mu.Lock()
		switch {
		case r.state == StateAborted:
			err := r.err
			r.mu.Unlock()
			return 0, err
		case r.state == StateComplete:
			r.mu.Unlock()
			return 0, io.EOF
		case r.state == StateDelayedBody:
			ready, aborted := r.bodyReady, r.aborted
			r.mu.Unlock()
			select {
			case <-ready:
			case <-aborted:
			}
			continue
		case b.paused:
			resume, aborted := b.resume, r.aborted
			r.mu.Unlock()
			select {
			case <-resume:
			case <-aborted:
			}
			continue
		}

		if r.state != StateStreaming {
			r.setStateLocked(StateStreaming)
		}
		r.touchLocked()
		for len(b.chunks) > 0 && len(b.chunks[0]) == 0 {
			b.chunks = b.chunks[1:]
		}
		if len(b.chunks) == 0 {
			cleanup := r.finishLocked(StateComplete, nil)
			r.mu.Unlock()
			cleanup()
			return 0, io.EOF
		}
		n := copy(p, b.chunks[0])
		b.chunks[0] = b.chunks[0][n:]
		r.mu.Unlock()
		return n, nil
	}
}

// Pause makes Read block until Resume. The idle timer keeps running.
func (b *BodyStream) Pause() {
	b.r.mu.Lock()
	defer b.r.mu.Unlock()
	if !b.paused {
		b.paused = true
		b.resume = make(chan struct{})
	}
}

// Resume releases readers blocked by Pause.
func (b *BodyStream) Resume() {
	b.r.mu.Lock()
	defer b.r.mu.Unlock()
	if b.paused {
		b.paused = false
		close(b.resume)
	}
}

// Close aborts the playback unless the body was fully read.
func (b *BodyStream) Close() error {
	b.r.abort(ErrAborted)
	return nil
}

var _ io.ReadCloser = (*BodyStream)(nil)
