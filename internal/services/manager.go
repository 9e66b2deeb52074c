package services

import (
	"sync"
	"time"
)

// CheckoutManager owns one CheckoutService per browser session. Idle
// orchestrators are pruned periodically so abandoned checkouts do not
// pile up timers.
type CheckoutManager struct {
	mu       sync.RWMutex
	sessions map[string]*managedSession

	config       CheckoutConfig
	engine       *AssignmentEngine
	coupons      CouponServiceInterface
	transactions TransactionServiceInterface

	idleTimeout time.Duration
}

type managedSession struct {
	service  *CheckoutService
	lastSeen time.Time
}

// NewCheckoutManager creates a manager and starts its cleanup loop
func NewCheckoutManager(config CheckoutConfig, engine *AssignmentEngine, coupons CouponServiceInterface, transactions TransactionServiceInterface) *CheckoutManager {
	m := &CheckoutManager{
		sessions:     make(map[string]*managedSession),
		config:       config,
		engine:       engine,
		coupons:      coupons,
		transactions: transactions,
		idleTimeout:  2 * time.Hour,
	}
	go m.cleanup()
	return m
}

// Get returns the orchestrator for a browser session, creating it on
// first use
func (m *CheckoutManager) Get(sessionID string) *CheckoutService {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ms, ok := m.sessions[sessionID]; ok {
		ms.lastSeen = time.Now()
		return ms.service
	}

	service := NewCheckoutService(m.config, m.engine, m.coupons, m.transactions)
	m.sessions[sessionID] = &managedSession{service: service, lastSeen: time.Now()}
	return service
}

// Remove drops a session's orchestrator and stops its timer
func (m *CheckoutManager) Remove(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ms, ok := m.sessions[sessionID]; ok {
		ms.service.currentTimer().Stop()
		delete(m.sessions, sessionID)
	}
}

// cleanup removes idle sessions periodically
func (m *CheckoutManager) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-m.idleTimeout)
		m.mu.Lock()
		for id, ms := range m.sessions {
			if ms.lastSeen.Before(cutoff) {
				ms.service.currentTimer().Stop()
				delete(m.sessions, id)
			}
		}
		m.mu.Unlock()
	}
}
