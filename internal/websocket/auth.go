package websocket

import "log/slog"

// AuthBinder binds connections to user identities and maintains the implicit
// user-<id> subscription that lets producers address a user without the
// client subscribing explicitly.
type AuthBinder struct {
	registry *Registry
	logger   *slog.Logger
}

func NewAuthBinder(registry *Registry, logger *slog.Logger) *AuthBinder {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthBinder{registry: registry, logger: logger}
}

// Authenticate binds connID to userID. Re-authenticating as the same user is
// a no-op; a different user replaces the binding and moves the implicit
// channel. It reports whether the binding changed.
func (a *AuthBinder) Authenticate(connID, userID string) (bool, error) {
	if userID == "" {
		return false, ErrEmptyUserID
	}

	r := a.registry
	r.mu.Lock()
	conn, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return false, ErrConnectionNotFound
	}

	conn.mu.Lock()
	handshakeDone := conn.handshakeDone
	prev := conn.userID
	conn.mu.Unlock()

	if !handshakeDone {
		r.mu.Unlock()
		return false, ErrHandshakeIncomplete
	}
	if conn.identity != "" && conn.identity != userID {
		r.mu.Unlock()
		return false, ErrIdentityMismatch
	}
	if prev == userID {
		r.mu.Unlock()
		return false, nil
	}

	lastForPrev := false
	if prev != "" {
		lastForPrev = r.removeUserConnLocked(prev, connID)
		r.index.Unsubscribe(connID, UserChannel(prev))
	}

	conn.mu.Lock()
	conn.userID = userID
	conn.mu.Unlock()

	firstForUser := r.addUserConnLocked(userID, connID)
	r.index.Subscribe(connID, UserChannel(userID))
	r.mu.Unlock()

	if lastForPrev {
		r.presence.notify(prev, false)
	}
	if firstForUser {
		r.presence.notify(userID, true)
	}
	a.logger.Info("Client authenticated", "connID", connID, "userID", userID, "previousUserID", prev)
	return true, nil
}
