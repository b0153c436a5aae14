package websocket

import "sync/atomic"

// Metrics counts hub activity. All methods are safe on a nil receiver.
type Metrics struct {
	connectionsOpened  atomic.Int64
	connectionsClosed  atomic.Int64
	broadcasts         atomic.Int64
	framesDelivered    atomic.Int64
	framesDropped      atomic.Int64
	heartbeatEvictions atomic.Int64
	protocolErrors     atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	ConnectionsOpened  int64 `json:"connectionsOpened"`
	ConnectionsClosed  int64 `json:"connectionsClosed"`
	Broadcasts         int64 `json:"broadcasts"`
	FramesDelivered    int64 `json:"framesDelivered"`
	FramesDropped      int64 `json:"framesDropped"`
	HeartbeatEvictions int64 `json:"heartbeatEvictions"`
	ProtocolErrors     int64 `json:"protocolErrors"`
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		ConnectionsOpened:  m.connectionsOpened.Load(),
		ConnectionsClosed:  m.connectionsClosed.Load(),
		Broadcasts:         m.broadcasts.Load(),
		FramesDelivered:    m.framesDelivered.Load(),
		FramesDropped:      m.framesDropped.Load(),
		HeartbeatEvictions: m.heartbeatEvictions.Load(),
		ProtocolErrors:     m.protocolErrors.Load(),
	}
}

func (m *Metrics) connectionOpened() {
	if m != nil {
		m.connectionsOpened.Add(1)
	}
}

func (m *Metrics) connectionClosed() {
	if m != nil {
		m.connectionsClosed.Add(1)
	}
}

func (m *Metrics) broadcast(delivered, dropped int) {
	if m == nil {
		return
	}
	m.broadcasts.Add(1)
	m.framesDelivered.Add(int64(delivered))
	m.framesDropped.Add(int64(dropped))
}

func (m *Metrics) heartbeatEviction() {
	if m != nil {
		m.heartbeatEvictions.Add(1)
	}
}

func (m *Metrics) protocolError() {
	if m != nil {
		m.protocolErrors.Add(1)
	}
}
