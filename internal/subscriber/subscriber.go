// Package subscriber is the client side of the realtime hub: one connection
// that reconnects with backoff, re-authenticates, replays its channel
// subscriptions and queues outbound messages while offline.
package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"realtime-service/internal/backoff"
	"realtime-service/internal/protocol"
)

var (
	ErrSubscriberStopped = errors.New("subscriber stopped")
	ErrEmptyUserID       = errors.New("userId is required")
	ErrAuthTimeout       = errors.New("timed out waiting for auth_success")
	ErrPongTimeout       = errors.New("timed out waiting for pong")
	ErrServerError       = errors.New("server error")
)

const closeGoingAway = 1001

// Subscriber owns a single connection to the hub. All state lives behind one
// mutex; every network event and timer carries the connection generation it
// was started for and is ignored once that generation is superseded.
//
// Callbacks are invoked without the lock held. Frame handlers run on the
// reader goroutine in arrival order.
type Subscriber struct {
	cfg       Config
	transport Transport
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	status   Status
	gen      uint64
	conn     Conn
	connID   string
	userID   string
	started  bool
	stopped  bool
	degraded bool
	failures int

	// Desired subscriptions, in insertion order.
	order    []string
	channels map[string]*Channel

	outbox  *Outbox
	tracker *backoff.Tracker

	reconnectTimer *time.Timer
	authTimer      *time.Timer
	pingTimer      *time.Timer
	pongTimer      *time.Timer

	onStateChange func(Status)
	onDegraded    func(bool)
	onMessage     func(channel, eventType string, payload json.RawMessage)
	onError       func(error)

	// Callbacks collected under mu and run by unlockAndNotify.
	pending []func()
}

func New(cfg Config) (*Subscriber, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Subscriber{
		cfg:       cfg,
		transport: cfg.Transport,
		logger:    cfg.Logger,
		now:       time.Now,
		channels:  make(map[string]*Channel),
		outbox:    NewOutbox(cfg.OutboxSize, cfg.OutboxMaxAge),
		tracker:   backoff.NewTracker(cfg.Backoff),
	}, nil
}

// OnStateChange registers a callback for every state transition.
func (s *Subscriber) OnStateChange(fn func(Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStateChange = fn
}

// OnDegraded registers a callback fired with true once reconnection has
// failed MaxAttempts times in a row, and with false when authenticated again.
func (s *Subscriber) OnDegraded(fn func(bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDegraded = fn
}

// OnMessage registers a callback that sees every channel frame, bound or not.
func (s *Subscriber) OnMessage(fn func(channel, eventType string, payload json.RawMessage)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMessage = fn
}

// OnError registers a callback for error notices sent by the server.
func (s *Subscriber) OnError(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = fn
}

// Start opens the connection. Calling it again while running is a no-op; it
// reconnects after the server closed the connection normally.
func (s *Subscriber) Start() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrSubscriberStopped
	}
	if s.started && s.status.State != StateDisconnected {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.gen++
	gen := s.gen
	s.setStateLocked(StateConnecting, 0)
	s.unlockAndNotify()

	go s.dial(gen)
	return nil
}

// Stop cancels every timer and closes the connection with 1000. The
// subscriber never reconnects afterwards.
func (s *Subscriber) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.gen++
	s.stopAllTimersLocked()
	conn := s.conn
	s.conn = nil
	s.connID = ""
	s.setStateLocked(StateDisconnected, 0)
	s.unlockAndNotify()

	s.logger.Info("Subscriber stopped")
	if conn != nil {
		return conn.Close(CloseNormal, "client shutdown")
	}
	return nil
}

// Authenticate sets the identity to bind on every connection. Calling it with
// the current identity while authenticated or authenticating does nothing.
func (s *Subscriber) Authenticate(userID string) error {
	if userID == "" {
		return ErrEmptyUserID
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrSubscriberStopped
	}
	if userID == s.userID && (s.status.State == StateAuthenticated || s.status.State == StateAuthenticating) {
		s.mu.Unlock()
		return nil
	}
	s.userID = userID
	if s.conn != nil && s.connID != "" {
		s.beginAuthLocked(s.gen)
	}
	s.unlockAndNotify()
	return nil
}

// Subscribe records channel as desired and returns its handle. The subscribe
// message is sent now if authenticated, otherwise on the next authentication.
// Subscribing to a channel twice returns the same handle.
func (s *Subscriber) Subscribe(channel string) *Channel {
	s.mu.Lock()
	ch, ok := s.channels[channel]
	if !ok {
		ch = newChannel(channel)
		s.channels[channel] = ch
		s.order = append(s.order, channel)
		if s.status.State == StateAuthenticated {
			s.writeLocked(s.gen, protocol.NewSubscribeMessage(channel))
		}
	}
	s.unlockAndNotify()
	return ch
}

// Unsubscribe forgets channel and its bindings.
func (s *Subscriber) Unsubscribe(channel string) {
	s.mu.Lock()
	if _, ok := s.channels[channel]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.channels, channel)
	for i, name := range s.order {
		if name == channel {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	if s.status.State == StateAuthenticated {
		s.writeLocked(s.gen, protocol.NewUnsubscribeMessage(channel))
	}
	s.unlockAndNotify()
}

// Send writes msg now if authenticated and queues it in the outbox otherwise.
func (s *Subscriber) Send(msg *protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrSubscriberStopped
	}
	if s.status.State == StateAuthenticated && s.writeRawLocked(s.gen, data) {
		s.unlockAndNotify()
		return nil
	}
	if dropped := s.outbox.Push(data, s.now()); dropped > 0 {
		s.logger.Warn("Outbox full, dropped oldest messages", "dropped", dropped)
	}
	s.unlockAndNotify()
	return nil
}

func (s *Subscriber) SendTyping(conversationID, userName, userImage string) error {
	return s.Send(protocol.NewTypingMessage(conversationID, userName, userImage))
}

func (s *Subscriber) SendTypingStop(conversationID, userName string) error {
	return s.Send(protocol.NewTypingStopMessage(conversationID, userName))
}

func (s *Subscriber) SendPresence(conversationID string, isOnline bool) error {
	return s.Send(protocol.NewPresenceMessage(conversationID, isOnline))
}

func (s *Subscriber) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Subscriber) State() State {
	return s.Status().State
}

// ConnectionID is the id assigned by the server to the current connection.
func (s *Subscriber) ConnectionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connID
}

func (s *Subscriber) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// Subscriptions returns the desired channels in insertion order.
func (s *Subscriber) Subscriptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// PendingCount returns the number of queued outbound messages.
func (s *Subscriber) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outbox.Len()
}

func (s *Subscriber) dial(gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DialTimeout)
	conn, err := s.transport.Dial(ctx, s.cfg.URL, s.cfg.Header)
	cancel()

	s.mu.Lock()
	if gen != s.gen || s.stopped {
		s.mu.Unlock()
		if conn != nil {
			conn.Close(CloseNormal, "superseded")
		}
		return
	}
	if err != nil {
		s.logger.Warn("Failed to connect", "url", s.cfg.URL, "error", err)
		s.scheduleReconnectLocked(err)
		s.unlockAndNotify()
		return
	}

	s.conn = conn
	s.connID = ""
	s.setStateLocked(StateConnected, 0)
	s.armPingLocked(gen)
	s.unlockAndNotify()

	s.logger.Info("Connected", "url", s.cfg.URL)
	go s.readLoop(gen, conn)
}

func (s *Subscriber) readLoop(gen uint64, conn Conn) {
	for {
		data, err := conn.Read(context.Background())
		if err != nil {
			s.handleDrop(gen, err)
			return
		}
		s.handleFrame(gen, data)
	}
}

func (s *Subscriber) handleDrop(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.gen || s.stopped {
		s.mu.Unlock()
		return
	}

	code := CloseCode(err)
	if code == CloseNormal {
		// The server ended the session on purpose; stay down until Start.
		s.gen++
		s.stopAllTimersLocked()
		conn := s.conn
		s.conn = nil
		s.connID = ""
		s.setStateLocked(StateDisconnected, 0)
		s.unlockAndNotify()

		s.logger.Info("Server closed the connection", "code", code)
		if conn != nil {
			conn.Close(CloseNormal, "")
		}
		return
	}

	s.logger.Warn("Connection lost", "code", code, "error", err)
	s.scheduleReconnectLocked(err)
	s.unlockAndNotify()
}

func (s *Subscriber) handleFrame(gen uint64, data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		s.logger.Warn("Discarding malformed frame", "error", err)
		return
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}

	switch msg.Type {
	case protocol.TypeConnected:
		s.connID = msg.ConnectionID
		if s.userID != "" {
			s.beginAuthLocked(gen)
		}
		s.unlockAndNotify()
		return

	case protocol.TypeAuthSuccess:
		// Error notices are not correlated with requests, so an error for an
		// earlier message may have moved us back to Connected before the
		// server's confirmation arrived.
		awaiting := s.status.State == StateAuthenticating || s.status.State == StateConnected
		if awaiting && s.conn != nil && msg.UserID == s.userID {
			s.enterAuthenticatedLocked(gen)
		}
		s.unlockAndNotify()
		return

	case protocol.TypePong:
		stopTimer(&s.pongTimer)
		s.unlockAndNotify()
		return

	case protocol.TypePing:
		s.writeLocked(gen, protocol.NewPongMessage())
		s.unlockAndNotify()
		return

	case protocol.TypeError:
		serverErr := fmt.Errorf("%w: %s", ErrServerError, msg.Error)
		if s.status.State == StateAuthenticating {
			stopTimer(&s.authTimer)
			s.setStateLocked(StateConnected, 0)
		}
		if fn := s.onError; fn != nil {
			s.pending = append(s.pending, func() { fn(serverErr) })
		}
		s.logger.Warn("Server reported an error", "error", msg.Error)
		s.unlockAndNotify()
		return
	}

	if msg.Channel == "" {
		s.unlockAndNotify()
		s.logger.Debug("Dropping frame without channel", "type", msg.Type)
		return
	}
	ch := s.channels[msg.Channel]
	onMessage := s.onMessage
	s.unlockAndNotify()

	eventType := msg.Type.String()
	if onMessage != nil {
		onMessage(msg.Channel, eventType, msg.Payload)
	}
	if ch == nil {
		return
	}
	if h := ch.handler(eventType); h != nil {
		h(msg.Payload)
	}
}

func (s *Subscriber) beginAuthLocked(gen uint64) {
	s.setStateLocked(StateAuthenticating, 0)
	if !s.writeLocked(gen, protocol.NewAuthMessage(s.userID)) {
		return
	}
	stopTimer(&s.authTimer)
	s.authTimer = time.AfterFunc(s.cfg.AuthTimeout, func() { s.authTimedOut(gen) })
}

// enterAuthenticatedLocked replays every desired subscription and then
// flushes the outbox.
func (s *Subscriber) enterAuthenticatedLocked(gen uint64) {
	stopTimer(&s.authTimer)
	s.tracker.Reset()
	s.failures = 0
	s.setStateLocked(StateAuthenticated, 0)
	if s.degraded {
		s.setDegradedLocked(false)
	}
	s.logger.Info("Authenticated", "userID", s.userID, "connID", s.connID, "channels", len(s.order))

	for _, channel := range s.order {
		if !s.writeLocked(gen, protocol.NewSubscribeMessage(channel)) {
			return
		}
	}

	if dropped := s.outbox.Prune(s.now()); dropped > 0 {
		s.logger.Warn("Dropped expired outbox messages", "dropped", dropped)
	}
	for {
		data, ok := s.outbox.Peek()
		if !ok {
			return
		}
		if !s.writeRawLocked(gen, data) {
			return
		}
		s.outbox.Pop()
	}
}

// scheduleReconnectLocked abandons the current connection and arms the
// backoff timer for the next attempt.
func (s *Subscriber) scheduleReconnectLocked(cause error) {
	s.gen++
	gen := s.gen
	s.stopAllTimersLocked()
	if conn := s.conn; conn != nil {
		s.conn = nil
		go conn.Close(closeGoingAway, "reconnecting")
	}
	s.connID = ""

	delay, cooldown := s.tracker.Next()
	s.failures++
	if cooldown && !s.degraded {
		s.setDegradedLocked(true)
	}
	s.setStateLocked(StateReconnecting, s.failures)
	s.reconnectTimer = time.AfterFunc(delay, func() { s.reconnect(gen) })

	s.logger.Info("Scheduling reconnect", "attempt", s.failures, "delay", delay, "cooldown", cooldown, "cause", cause)
}

func (s *Subscriber) reconnect(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.stopped {
		s.mu.Unlock()
		return
	}
	s.setStateLocked(StateConnecting, 0)
	s.unlockAndNotify()

	s.dial(gen)
}

func (s *Subscriber) armPingLocked(gen uint64) {
	stopTimer(&s.pingTimer)
	s.pingTimer = time.AfterFunc(s.cfg.PingInterval, func() { s.keepalive(gen) })
}

func (s *Subscriber) keepalive(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.stopped {
		s.mu.Unlock()
		return
	}
	if s.writeLocked(gen, protocol.NewPingMessage()) {
		if s.pongTimer == nil {
			s.pongTimer = time.AfterFunc(s.cfg.PongTimeout, func() { s.pongTimedOut(gen) })
		}
		s.armPingLocked(gen)
	}
	s.unlockAndNotify()
}

func (s *Subscriber) pongTimedOut(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.stopped {
		s.mu.Unlock()
		return
	}
	s.logger.Warn("No pong from server, dropping connection", "connID", s.connID)
	s.scheduleReconnectLocked(ErrPongTimeout)
	s.unlockAndNotify()
}

func (s *Subscriber) authTimedOut(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.stopped || s.status.State != StateAuthenticating {
		s.mu.Unlock()
		return
	}
	s.logger.Warn("No auth_success from server, dropping connection", "userID", s.userID)
	s.scheduleReconnectLocked(ErrAuthTimeout)
	s.unlockAndNotify()
}

// writeLocked reports false when the connection failed and a reconnect was
// scheduled.
func (s *Subscriber) writeLocked(gen uint64, msg *protocol.Message) bool {
	data, err := protocol.Encode(msg)
	if err != nil {
		s.logger.Error("Failed to encode message", "type", msg.Type, "error", err)
		return true
	}
	return s.writeRawLocked(gen, data)
}

func (s *Subscriber) writeRawLocked(gen uint64, data []byte) bool {
	if gen != s.gen || s.conn == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	err := s.conn.Write(ctx, data)
	cancel()
	if err != nil {
		s.logger.Warn("Write failed", "error", err)
		s.scheduleReconnectLocked(err)
		return false
	}
	return true
}

func (s *Subscriber) setStateLocked(state State, attempt int) {
	next := Status{State: state, Attempt: attempt}
	if next == s.status {
		return
	}
	s.status = next
	if fn := s.onStateChange; fn != nil {
		s.pending = append(s.pending, func() { fn(next) })
	}
	s.logger.Debug("Subscriber state changed", "state", state.String(), "attempt", attempt)
}

func (s *Subscriber) setDegradedLocked(degraded bool) {
	s.degraded = degraded
	if fn := s.onDegraded; fn != nil {
		s.pending = append(s.pending, func() { fn(degraded) })
	}
	s.logger.Info("Subscriber degraded state changed", "degraded", degraded)
}

func (s *Subscriber) stopAllTimersLocked() {
	stopTimer(&s.reconnectTimer)
	stopTimer(&s.authTimer)
	stopTimer(&s.pingTimer)
	stopTimer(&s.pongTimer)
}

func (s *Subscriber) unlockAndNotify() {
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

func stopTimer(t **time.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
