package scheduler

import (
	"sync"
	"time"
)

// HealthStatus is the last recorded outcome of one scheduler step.
type HealthStatus struct {
	Healthy     bool
	LastCheck   time.Time
	LastSuccess time.Time
	LastError   error
	Message     string
}

// Health tracks the health of the scheduler's steps.
type Health struct {
	mu         sync.RWMutex
	components map[string]HealthStatus
}

// NewHealth creates an empty health tracker. It reports healthy until a
// step fails.
func NewHealth() *Health {
	return &Health{
		components: make(map[string]HealthStatus),
	}
}

// SetHealthy records a successful step.
func (h *Health) SetHealthy(component, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	h.components[component] = HealthStatus{
		Healthy:     true,
		LastCheck:   now,
		LastSuccess: now,
		Message:     message,
	}
}

// SetUnhealthy records a failed step. The last success time is kept.
func (h *Health) SetUnhealthy(component string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	status := h.components[component]
	status.Healthy = false
	status.LastCheck = time.Now()
	status.LastError = err
	status.Message = err.Error()
	h.components[component] = status
}

// GetStatus returns a copy of a component's status, or nil if the step
// never ran.
func (h *Health) GetStatus(component string) *HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status, ok := h.components[component]
	if !ok {
		return nil
	}
	return &status
}

// GetAllStatuses returns a copy of every component status.
func (h *Health) GetAllStatuses() map[string]HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]HealthStatus, len(h.components))
	for name, status := range h.components {
		out[name] = status
	}
	return out
}

// IsOverallHealthy returns true if every step last succeeded.
func (h *Health) IsOverallHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, status := range h.components {
		if !status.Healthy {
			return false
		}
	}
	return true
}

// Snapshot returns a one-line summary per component.
func (h *Health) Snapshot() map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]string, len(h.components))
	for name, status := range h.components {
		state := "ok"
		if !status.Healthy {
			state = "error"
		}
		out[name] = state + ": " + status.Message
	}
	return out
}
