package mcpconn

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Session is the pool object for a fixed set of MCP servers. It owns the
// full server list, tracks which servers are active or failed together
// with their most recent errors, and implements connect-all, reconnect and
// close-all on top of bounded waits and per-server serialization.
//
// All bookkeeping is keyed by server identity, never by name. A Session is
// created once via Open and closed at most once via Close; individual
// servers may be reconnected many times in between.
type Session struct {
	opts sessionOptions
	log  *zap.Logger

	mu         sync.Mutex
	all        []Server
	active     []Server
	failed     []Server
	failedSet  map[Server]struct{}
	errs       map[Server]error
	suppressed map[Server]struct{}
	workers    map[Server]*connWorker
}

// Open builds a Session over the given servers and connects them all
// before returning. The input order is preserved; Close tears servers down
// in reverse of it. A connect failure that propagates (strict mode, or an
// unsuppressed abort) aborts opening: every server that had connected is
// closed and the error is returned.
//
// Callers should arrange for cleanup when leaving the scope that owns the
// Session:
//
//	sess, err := mcpconn.Open(ctx, servers, mcpconn.WithStrict())
//	if err != nil {
//	    return err
//	}
//	defer sess.Close(ctx)
func Open(ctx context.Context, servers []Server, opts ...SessionOption) (*Session, error) {
	o := resolveOptions(opts)
	s := &Session{
		opts:       o,
		log:        o.logger,
		all:        append([]Server(nil), servers...),
		failedSet:  make(map[Server]struct{}),
		errs:       make(map[Server]error),
		suppressed: make(map[Server]struct{}),
		workers:    make(map[Server]*connWorker),
	}
	if err := s.connectAll(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// connectAll resets all failure state and connects every server.
func (s *Session) connectAll(ctx context.Context) error {
	s.mu.Lock()
	s.resetLocked()
	targets := append([]Server(nil), s.all...)
	s.mu.Unlock()
	return s.connectServers(ctx, targets)
}

// Reconnect retries only the servers whose most recent connect attempt
// failed, then returns the recomputed active view. Servers that succeed
// are cleared from the failed set; repeated failures never duplicate
// entries in it.
func (s *Session) Reconnect(ctx context.Context) ([]Server, error) {
	s.mu.Lock()
	targets := append([]Server(nil), s.failed...)
	s.mu.Unlock()
	if err := s.connectServers(ctx, targets); err != nil {
		return nil, err
	}
	return s.Active(), nil
}

// ReconnectAll clears all failure state and retries every server,
// including ones currently active, then returns the recomputed active
// view.
func (s *Session) ReconnectAll(ctx context.Context) ([]Server, error) {
	s.mu.Lock()
	s.resetLocked()
	targets := append([]Server(nil), s.all...)
	s.mu.Unlock()
	if err := s.connectServers(ctx, targets); err != nil {
		return nil, err
	}
	return s.Active(), nil
}

// connectServers drives the shared connect path, serially or in parallel.
// On any failure that propagates it rolls back first: every server that
// connected during this attempt plus every failed server is closed in
// reverse input order and the active view is emptied, so a strict startup
// is all-or-nothing.
func (s *Session) connectServers(ctx context.Context, targets []Server) error {
	var raised error
	var attempted []Server
	if s.opts.parallel {
		attempted = targets
		raised = s.connectParallel(ctx, targets)
	} else {
		for _, srv := range targets {
			attempted = append(attempted, srv)
			if err := s.attemptConnect(ctx, srv); err != nil {
				raised = err
				break
			}
		}
	}
	if raised != nil {
		s.rollback(ctx, attempted)
		return raised
	}
	s.refreshActive()
	return nil
}

// connectParallel issues attemptConnect for every target concurrently and
// waits for all outcomes; it never short-circuits on the first rejection.
// The first raised error (in input order) wins. Even when no individual
// attempt raised, strict mode still fails if any failed server remains
// whose failure was not a suppressed abort; this covers interleavings
// where aborts were swallowed per-server but the aggregate policy demands
// an all-or-nothing result.
func (s *Session) connectParallel(ctx context.Context, targets []Server) error {
	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, srv := range targets {
		wg.Add(1)
		go func(i int, srv Server) {
			defer wg.Done()
			errs[i] = s.attemptConnect(ctx, srv)
		}(i, srv)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	if s.opts.strict {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, srv := range s.failed {
			if _, ok := s.suppressed[srv]; ok {
				continue
			}
			if err := s.errs[srv]; err != nil {
				return err
			}
			return &connectFailedError{server: srv.Name()}
		}
	}
	return nil
}

// attemptConnect connects one server and folds the outcome into the
// Session's bookkeeping. The returned error is non-nil only when the
// failure must propagate: an unsuppressed abort (regardless of strict
// mode), or any failure under strict mode. Recorded-but-swallowed
// failures return nil.
func (s *Session) attemptConnect(ctx context.Context, srv Server) error {
	var err error
	if s.opts.parallel {
		err = s.workerFor(srv).Connect(ctx)
	} else {
		err = runBounded(ctx, s.log, srv.Name(), actionConnect, s.opts.connectTimeout,
			func() error { return srv.Connect(ctx) })
	}

	s.mu.Lock()
	if err == nil {
		if _, was := s.failedSet[srv]; was {
			delete(s.failedSet, srv)
			s.failed = removeServer(s.failed, srv)
		}
		delete(s.errs, srv)
		delete(s.suppressed, srv)
		s.mu.Unlock()
		return nil
	}

	if _, dup := s.failedSet[srv]; !dup {
		s.failedSet[srv] = struct{}{}
		s.failed = append(s.failed, srv)
	}
	s.errs[srv] = err
	abort := IsAbortError(err)
	if abort && s.opts.suppressAbort {
		s.suppressed[srv] = struct{}{}
	}
	s.mu.Unlock()

	if abort {
		if s.opts.suppressAbort {
			s.log.Debug("suppressed abort during connect",
				zap.String("server", srv.Name()), zap.Error(err))
			return nil
		}
		return err
	}
	if s.opts.strict {
		return err
	}
	s.log.Warn("server connect failed",
		zap.String("server", srv.Name()), zap.Error(err))
	return nil
}

// rollback closes every server that connected during the current attempt
// plus every server marked failed, deduplicated, in reverse input order,
// and empties the active view. Close outcomes are recorded, never raised;
// the original connect error propagates instead.
func (s *Session) rollback(ctx context.Context, attempted []Server) {
	s.mu.Lock()
	toClose := make(map[Server]struct{}, len(attempted))
	for _, srv := range attempted {
		if _, failed := s.failedSet[srv]; !failed {
			toClose[srv] = struct{}{}
		}
	}
	for _, srv := range s.failed {
		toClose[srv] = struct{}{}
	}
	order := make([]Server, 0, len(toClose))
	for i := len(s.all) - 1; i >= 0; i-- {
		if _, ok := toClose[s.all[i]]; ok {
			order = append(order, s.all[i])
		}
	}
	s.active = nil
	s.mu.Unlock()

	for _, srv := range order {
		if err := s.closeServer(ctx, srv); err != nil {
			s.log.Warn("rollback close failed",
				zap.String("server", srv.Name()), zap.Error(err))
		}
	}
}

// Close tears down every server in reverse input order, one at a time,
// regardless of connect state. Each server's close failure is recorded in
// the error view without aborting the rest, except a cancellation error
// when abort suppression is disabled, which propagates immediately.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	order := make([]Server, 0, len(s.all))
	for i := len(s.all) - 1; i >= 0; i-- {
		order = append(order, s.all[i])
	}
	s.mu.Unlock()

	for _, srv := range order {
		if err := s.closeServer(ctx, srv); err != nil {
			return err
		}
	}
	return nil
}

// closeServer closes one server through its worker (parallel mode) or a
// bounded wait. The returned error is non-nil only for an unsuppressed
// abort; every other failure is recorded and swallowed.
func (s *Session) closeServer(ctx context.Context, srv Server) error {
	var err error
	if s.opts.parallel {
		w := s.workerFor(srv)
		err = w.Close(ctx)
		if w.retired() {
			s.mu.Lock()
			if s.workers[srv] == w {
				delete(s.workers, srv)
			}
			s.mu.Unlock()
		}
	} else {
		err = runBounded(ctx, s.log, srv.Name(), actionClose, s.opts.closeTimeout, srv.Close)
	}
	if err == nil {
		return nil
	}

	s.mu.Lock()
	s.errs[srv] = err
	s.mu.Unlock()
	if IsAbortError(err) && !s.opts.suppressAbort {
		return err
	}
	s.log.Warn("server close failed",
		zap.String("server", srv.Name()), zap.Error(err))
	return nil
}

// workerFor returns the server's connection worker, creating one lazily
// and replacing a worker that completed a successful close: a reconnect
// after a full close always gets a fresh worker.
func (s *Session) workerFor(srv Server) *connWorker {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.workers[srv]
	if w == nil || w.retired() {
		w = newConnWorker(srv, s.opts.connectTimeout, s.opts.closeTimeout, s.log)
		s.workers[srv] = w
	}
	return w
}

// refreshActive recomputes the active view: all servers minus failed ones
// when drop-failed is enabled, otherwise the full list. The view is never
// mutated independently of this derivation.
func (s *Session) refreshActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opts.dropFailed {
		s.active = append([]Server(nil), s.all...)
		return
	}
	active := make([]Server, 0, len(s.all))
	for _, srv := range s.all {
		if _, failed := s.failedSet[srv]; !failed {
			active = append(active, srv)
		}
	}
	s.active = active
}

// resetLocked clears all failure and error state. Callers must hold s.mu.
func (s *Session) resetLocked() {
	s.failed = nil
	s.failedSet = make(map[Server]struct{})
	s.errs = make(map[Server]error)
	s.suppressed = make(map[Server]struct{})
}

// Servers returns a copy of the full input server list, in connect order.
func (s *Session) Servers() []Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Server(nil), s.all...)
}

// Active returns a copy of the servers currently considered usable.
func (s *Session) Active() []Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Server(nil), s.active...)
}

// Failed returns a copy of the servers whose most recent connect attempt
// failed and that have not since succeeded. Each server appears at most
// once.
func (s *Session) Failed() []Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Server(nil), s.failed...)
}

// Errors returns a copy of the most recent recorded error per server,
// from connect or close.
func (s *Session) Errors() map[Server]error {
	s.mu.Lock()
	defer s.mu.Unlock()
	errs := make(map[Server]error, len(s.errs))
	for srv, err := range s.errs {
		errs[srv] = err
	}
	return errs
}

// removeServer returns servers with the first occurrence of srv removed,
// comparing by identity.
func removeServer(servers []Server, srv Server) []Server {
	for i, cur := range servers {
		if cur == srv {
			return append(servers[:i], servers[i+1:]...)
		}
	}
	return servers
}

// connectFailedError is the generic strict-mode failure used when a failed
// server has no recorded error.
type connectFailedError struct {
	server string
}

func (e *connectFailedError) Error() string {
	return "mcpconn: server connect failed: " + e.server
}

func (e *connectFailedError) Unwrap() error { return ErrConnectFailed }
