package network

import (
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"

	"github.com/lixenwraith/fmsynth/status"
)

// Target receives remote note-on events
// *instrument.Instrument satisfies it
type Target interface {
	PlayKey(patch string, key, gain float64) error
	PlayNote(patch, note string, gain float64) error
	PlayFrequency(patch string, hz, gain float64) error
	PlayPhase(patch string, phasePerSample, gain float64) error
	ActiveVoices() int
}

// ServerStats counts server activity since construction
type ServerStats struct {
	Accepted uint64
	Rejected uint64
	Messages uint64
	Errors   uint64 // Error replies
	Dropped  uint64 // Replies lost to a full send queue
}

// Server accepts websocket peers and turns their messages into notes
type Server struct {
	config   *Config
	target   Target
	upgrader websocket.FastHTTPUpgrader

	mu       sync.Mutex
	http     *fasthttp.Server
	listener net.Listener
	peers    map[PeerID]*Peer
	reserved int // Slots held by handshakes in flight
	nextID   atomic.Uint32

	running  atomic.Bool
	serveWg  sync.WaitGroup
	sessions *sync.WaitGroup // Replaced on every Serve

	// Cached metric pointers
	metrics   *status.Registry
	accepted  *atomic.Int64
	rejected  *atomic.Int64
	messages  *atomic.Int64
	errs      *atomic.Int64
	dropped   *atomic.Int64
	peerGauge *status.Gauge
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithRegistry records server metrics under "network.*" in r
func WithRegistry(r *status.Registry) ServerOption {
	return func(s *Server) {
		if r != nil {
			s.metrics = r
		}
	}
}

// NewServer creates a server driving target
func NewServer(cfg *Config, target Target, opts ...ServerOption) (*Server, error) {
	if target == nil {
		return nil, ErrNilTarget
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg = cfg.normalize()

	s := &Server{
		config: cfg,
		target: target,
		upgrader: websocket.FastHTTPUpgrader{
			ReadBufferSize:  int(cfg.MaxMessageSize),
			WriteBufferSize: 1024,
		},
		peers:   make(map[PeerID]*Peer),
		metrics: status.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.accepted = s.metrics.Counter("network.accepted")
	s.rejected = s.metrics.Counter("network.rejected")
	s.messages = s.metrics.Counter("network.messages")
	s.errs = s.metrics.Counter("network.errors")
	s.dropped = s.metrics.Counter("network.dropped")
	s.peerGauge = s.metrics.Gauge("network.peers")
	return s, nil
}

// Start binds the configured address and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return errors.Wrapf(err, "listen %s", s.config.Address)
	}
	if err := s.Serve(ln); err != nil {
		ln.Close()
		return err
	}
	return nil
}

// Serve accepts connections from ln in the background
// The server owns ln from here on
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return ErrAlreadyRunning
	}

	srv := &fasthttp.Server{
		Handler:               s.handle,
		Name:                  "fmsynth",
		NoDefaultServerHeader: true,
		// Peer.Close owns hijacked connections
		KeepHijackedConns: true,
	}
	s.http = srv
	s.listener = ln
	s.sessions = &sync.WaitGroup{}
	s.running.Store(true)

	s.serveWg.Add(1)
	go func() {
		defer s.serveWg.Done()
		if err := srv.Serve(ln); err != nil && s.running.Load() {
			log.Printf("network: serve: %v", err)
		}
	}()
	return nil
}

// Stop closes every peer and the listener, waiting for sessions to end
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running.CompareAndSwap(true, false) {
		s.mu.Unlock()
		return nil
	}
	for _, p := range s.peers {
		p.Close()
	}
	srv, ln, sessions := s.http, s.listener, s.sessions
	s.mu.Unlock()

	s.waitSessions(sessions)
	err := srv.Shutdown()
	// Serve may not have registered ln yet
	ln.Close()
	s.serveWg.Wait()

	s.mu.Lock()
	s.http, s.listener = nil, nil
	s.mu.Unlock()
	return err
}

// waitSessions bounds the wait for hijacked connections
func (s *Server) waitSessions(sessions *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(4 * s.config.WriteTimeout):
		log.Printf("network: sessions still open after stop")
	}
}

// IsRunning returns server state
func (s *Server) IsRunning() bool {
	return s.running.Load()
}

// Addr returns the bound address, nil when stopped
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Config returns the effective configuration
func (s *Server) Config() *Config {
	return s.config
}

// PeerCount returns current connected peer count
func (s *Server) PeerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// Stats returns activity counters
func (s *Server) Stats() ServerStats {
	return ServerStats{
		Accepted: uint64(s.accepted.Load()),
		Rejected: uint64(s.rejected.Load()),
		Messages: uint64(s.messages.Load()),
		Errors:   uint64(s.errs.Load()),
		Dropped:  uint64(s.dropped.Load()),
	}
}

// Metrics returns the registry the server records into
func (s *Server) Metrics() *status.Registry {
	return s.metrics
}

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	if string(ctx.Path()) != s.config.Path {
		ctx.Error("not found", fasthttp.StatusNotFound)
		return
	}

	id, sessions, err := s.reserve()
	if err != nil {
		s.rejected.Add(1)
		ctx.Error(err.Error(), fasthttp.StatusServiceUnavailable)
		return
	}

	err = s.upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
		s.session(id, sessions, conn)
	})
	if err != nil {
		// Upgrade already wrote the handshake failure
		s.release(sessions)
	}
}

// reserve claims a peer slot before the handshake
// The returned group belongs to the current Serve run
func (s *Server) reserve() (PeerID, *sync.WaitGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return 0, nil, errors.New("server stopping")
	}
	if len(s.peers)+s.reserved >= s.config.MaxPeers {
		return 0, nil, ErrServerFull
	}
	s.reserved++
	s.sessions.Add(1)
	return PeerID(s.nextID.Add(1)), s.sessions, nil
}

func (s *Server) release(sessions *sync.WaitGroup) {
	s.mu.Lock()
	s.reserved--
	s.mu.Unlock()
	sessions.Done()
}

func (s *Server) session(id PeerID, sessions *sync.WaitGroup, conn *websocket.Conn) {
	conn.SetReadLimit(s.config.MaxMessageSize)
	p := newPeer(id, conn, s.config.SendQueueSize)

	s.mu.Lock()
	s.reserved--
	s.peers[id] = p
	if !s.running.Load() {
		p.Close()
	}
	s.mu.Unlock()
	s.accepted.Add(1)
	s.peerGauge.Add(1)

	defer func() {
		s.mu.Lock()
		delete(s.peers, id)
		s.mu.Unlock()
		s.peerGauge.Add(-1)
		sessions.Done()
	}()

	go p.writeLoop(s.config.WriteTimeout)
	p.readLoop(s.config.ReadTimeout, s.handleMessage)
	<-p.done
}

// handleMessage answers every message, malformed ones included
func (s *Server) handleMessage(p *Peer, data []byte) {
	s.messages.Add(1)
	resp := s.dispatch(data)
	if resp.Type == MsgError {
		s.errs.Add(1)
	}
	if !p.Send(resp) {
		s.dropped.Add(1)
	}
}

func (s *Server) dispatch(data []byte) *Response {
	req, err := DecodeRequest(data)
	if err != nil {
		return errorResponse(req, err)
	}

	switch req.Type {
	case MsgStats:
		return &Response{
			Type:   MsgStats,
			ID:     req.ID,
			Voices: s.target.ActiveVoices(),
			Peers:  s.PeerCount(),
		}
	default:
		if err := s.play(req); err != nil {
			return errorResponse(req, err)
		}
		return &Response{Type: MsgAck, ID: req.ID, Voices: s.target.ActiveVoices()}
	}
}

func (s *Server) play(req *Request) error {
	gain := req.GainOrDefault()
	switch {
	case req.Key != nil:
		return s.target.PlayKey(req.Patch, *req.Key, gain)
	case req.Note != "":
		return s.target.PlayNote(req.Patch, req.Note, gain)
	case req.Frequency != nil:
		return s.target.PlayFrequency(req.Patch, *req.Frequency, gain)
	default:
		return s.target.PlayPhase(req.Patch, *req.PhasePerSample, gain)
	}
}
