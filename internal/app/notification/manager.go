// Package notification provides the notification manager for broadcasting
// captions, scheduler events and diagnostics to session watchers.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

const (
	sendTimeout   = 500 * time.Millisecond
	recentLogSize = 50
	logQueueSize  = 256
)

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Notification) error
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id        string
	sessionID snowflake.ID // Zero receives every session
	stream    Stream
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex

	logsMu sync.Mutex
	logs   map[snowflake.ID][]string

	// log lines are broadcast by one goroutine so Record never waits on watchers
	logCh     chan *Notification
	stop      chan struct{}
	closeOnce sync.Once
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	m := &Manager{
		subscriptions: make(map[string]*subscription),
		logs:          make(map[snowflake.ID][]string),
		logCh:         make(chan *Notification, logQueueSize),
		stop:          make(chan struct{}),
	}
	go m.dispatchLogs()
	return m
}

func (m *Manager) dispatchLogs() {
	for {
		select {
		case n := <-m.logCh:
			m.Broadcast(n)
		case <-m.stop:
			return
		}
	}
}

// Subscribe adds a new subscription for one session (zero for all sessions)
// and returns the subscription ID.
func (m *Manager) Subscribe(sessionID snowflake.ID, stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:        id,
		sessionID: sessionID,
		stream:    stream,
	}
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// nextSequenceNo returns the next sequence number and increments the counter.
func (m *Manager) nextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Broadcast sends a notification to every subscriber of its session.
// Each stream send is done in a goroutine with a timeout to prevent blocking.
func (m *Manager) Broadcast(notification *Notification) {
	// シーケンス番号を付与
	notification.SequenceNo = m.nextSequenceNo()

	m.mu.RLock()
	// Copy subscriptions to avoid holding lock during sends
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		if sub.sessionID == 0 || sub.sessionID == notification.SessionID {
			subs = append(subs, sub)
		}
	}
	m.mu.RUnlock()

	// Send to each subscriber in parallel with timeout
	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(notification)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Msgf("notification send failed: subscription=%s err=%v", s.id, err)
				}
			case <-ctx.Done():
				zlog.Debug().Msgf("notification send timed out: subscription=%s", s.id)
			}
		}(sub)
	}

	// Wait for all sends to complete or timeout
	wg.Wait()
}

// Send sends a notification to a specific subscriber.
func (m *Manager) Send(subscriptionID string, notification *Notification) error {
	m.mu.RLock()
	sub, ok := m.subscriptions[subscriptionID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	notification.SequenceNo = m.nextSequenceNo()
	return sub.stream.Send(notification)
}

// Record keeps a diagnostic line for a session and queues it for watchers.
// It does not block.
func (m *Manager) Record(sessionID snowflake.ID, event string) {
	m.logsMu.Lock()
	lines := append(m.logs[sessionID], event)
	if len(lines) > recentLogSize {
		lines = lines[len(lines)-recentLogSize:]
	}
	m.logs[sessionID] = lines
	m.logsMu.Unlock()

	n := &Notification{
		Kind:      KindLog,
		SessionID: sessionID,
		Time:      time.Now(),
		Log:       event,
	}
	select {
	case m.logCh <- n:
	default:
		zlog.Debug().Msgf("log queue full, dropping line: session=%s", sessionID)
	}
}

// RecentLogs returns the latest diagnostic lines for a session, oldest first.
func (m *Manager) RecentLogs(sessionID snowflake.ID) []string {
	m.logsMu.Lock()
	defer m.logsMu.Unlock()
	return append([]string(nil), m.logs[sessionID]...)
}

// Forget drops the diagnostics kept for a session.
func (m *Manager) Forget(sessionID snowflake.ID) {
	m.logsMu.Lock()
	defer m.logsMu.Unlock()
	delete(m.logs, sessionID)
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close closes the manager and removes all subscriptions.
func (m *Manager) Close() {
	m.closeOnce.Do(func() { close(m.stop) })
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
