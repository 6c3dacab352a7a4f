package mcpconn

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// connWorker serializes all commands against one server so a connect and a
// close issued concurrently never execute out of order against the
// underlying client. Used only when the Session connects in parallel; the
// serial loop provides the same guarantee on its own.
type connWorker struct {
	server         Server
	connectTimeout time.Duration
	closeTimeout   time.Duration
	log            *zap.Logger

	mu           sync.Mutex
	queue        []*workerCmd
	draining     bool
	done         bool
	pendingClose *closeFuture
}

type workerCmdKind int

const (
	cmdConnect workerCmdKind = iota
	cmdClose
)

type workerCmd struct {
	kind   workerCmdKind
	result chan error // buffered; drain never blocks on an abandoned caller
}

// closeFuture is the single shared handle for an in-flight server close.
// Every caller that requests close while it is pending observes the same
// outcome.
type closeFuture struct {
	settled chan struct{}
	err     error
}

func newCloseFuture() *closeFuture {
	return &closeFuture{settled: make(chan struct{})}
}

func (f *closeFuture) resolve(err error) {
	f.err = err
	close(f.settled)
}

func (f *closeFuture) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.settled:
		return f.err
	}
}

func newConnWorker(server Server, connectTimeout, closeTimeout time.Duration, log *zap.Logger) *connWorker {
	return &connWorker{
		server:         server,
		connectTimeout: connectTimeout,
		closeTimeout:   closeTimeout,
		log:            log,
	}
}

// retired reports whether the worker has completed a successful close and
// must be replaced before the server can be driven again.
func (w *connWorker) retired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

// Connect submits a connect command and waits for its outcome. The command
// runs detached from ctx: a caller that abandons its wait does not cancel
// the queued work.
func (w *connWorker) Connect(ctx context.Context) error {
	w.mu.Lock()
	if w.done {
		w.mu.Unlock()
		return &ClosedError{Server: w.server.Name()}
	}
	if w.pendingClose != nil {
		w.mu.Unlock()
		return &ClosingError{Server: w.server.Name(), Action: actionConnect}
	}
	cmd := &workerCmd{kind: cmdConnect, result: make(chan error, 1)}
	w.queue = append(w.queue, cmd)
	w.startDrainLocked()
	w.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-cmd.result:
		return err
	}
}

// Close submits a close command and waits for its outcome. If a close is
// already in flight the caller attaches to the same pending outcome; close
// is idempotent across concurrent callers.
func (w *connWorker) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.done {
		w.mu.Unlock()
		return &ClosedError{Server: w.server.Name()}
	}
	if f := w.pendingClose; f != nil {
		w.mu.Unlock()
		return f.wait(ctx)
	}
	cmd := &workerCmd{kind: cmdClose, result: make(chan error, 1)}
	w.queue = append(w.queue, cmd)
	w.startDrainLocked()
	w.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-cmd.result:
		return err
	}
}

// startDrainLocked launches the drain loop unless one is already running.
// Callers must hold w.mu.
func (w *connWorker) startDrainLocked() {
	if w.draining {
		return
	}
	w.draining = true
	go w.drain()
}

// drain processes queued commands in FIFO order. A close command, whatever
// its outcome, rejects everything queued behind it and ends this worker's
// processing for the current lifecycle.
func (w *connWorker) drain() {
	for {
		w.mu.Lock()
		if len(w.queue) == 0 {
			w.draining = false
			w.mu.Unlock()
			return
		}
		cmd := w.queue[0]
		w.queue = w.queue[1:]

		if cmd.kind == cmdClose {
			w.runClose(cmd)
			return
		}

		w.mu.Unlock()
		err := runBounded(context.Background(), w.log, w.server.Name(), actionConnect, w.connectTimeout,
			func() error { return w.server.Connect(context.Background()) })
		cmd.result <- err
	}
}

// runClose executes a close command. Called from drain with w.mu held.
//
// The real server.Close() starts immediately and is tracked by
// pendingClose until it settles, so overlapping submissions observe it
// even past the bounded wait. The raced outcome (which may be a
// TimeoutError while the real close is still running) is what the
// submitting caller and any queued commands see.
func (w *connWorker) runClose(cmd *workerCmd) {
	future := newCloseFuture()
	w.pendingClose = future
	w.mu.Unlock()

	go func() {
		err := w.server.Close()
		w.mu.Lock()
		if w.pendingClose == future {
			w.pendingClose = nil
		}
		if err == nil {
			// The server really is closed, even if the bounded wait
			// below already reported a timeout to the submitter.
			w.done = true
		}
		w.mu.Unlock()
		future.resolve(err)
	}()

	var timeoutC <-chan time.Time
	if w.closeTimeout > 0 {
		timer := time.NewTimer(w.closeTimeout)
		defer timer.Stop()
		timeoutC = timer.C
	}
	var raced error
	select {
	case <-future.settled:
		raced = future.err
	case <-timeoutC:
		raced = &TimeoutError{Server: w.server.Name(), Action: actionClose, Timeout: w.closeTimeout}
		go func() {
			if err := future.wait(context.Background()); err != nil {
				w.log.Debug("discarded late failure from abandoned operation",
					zap.String("server", w.server.Name()),
					zap.String("action", actionClose),
					zap.Error(err))
			}
		}()
	}

	w.mu.Lock()
	rest := w.queue
	w.queue = nil
	w.draining = false
	w.mu.Unlock()

	cmd.result <- raced
	rejectErr := raced
	if rejectErr == nil {
		rejectErr = &ClosedError{Server: w.server.Name()}
	}
	for _, qc := range rest {
		qc.result <- rejectErr
	}
}
