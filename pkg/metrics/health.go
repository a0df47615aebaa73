package metrics

import (
	"sort"
	"sync"
	"time"
)

// Health and readiness states
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusReady     = "ready"
	StatusNotReady  = "not_ready"
)

// CriticalComponents must be registered and healthy before the engine is ready
var CriticalComponents = []string{"thermal", "power", "mission", "storage"}

// HealthStatus is the health or readiness report
type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
	Message    string            `json:"message,omitempty"`
	Version    string            `json:"version,omitempty"`
	Uptime     string            `json:"uptime,omitempty"`
}

// ComponentHealth tracks the health of a single component
type ComponentHealth struct {
	Name    string
	Healthy bool
	Message string
	Updated time.Time
}

// HealthChecker holds the component health registry
type HealthChecker struct {
	mu         sync.RWMutex
	components map[string]ComponentHealth
	startTime  time.Time
	version    string
}

var healthChecker = newHealthChecker()

func newHealthChecker() *HealthChecker {
	return &HealthChecker{
		components: make(map[string]ComponentHealth),
		startTime:  time.Now(),
	}
}

// SetVersion sets the version string for health responses
func SetVersion(version string) {
	healthChecker.mu.Lock()
	defer healthChecker.mu.Unlock()
	healthChecker.version = version
}

// RegisterComponent records a component's health
func RegisterComponent(name string, healthy bool, message string) {
	healthChecker.mu.Lock()
	defer healthChecker.mu.Unlock()

	healthChecker.components[name] = ComponentHealth{
		Name:    name,
		Healthy: healthy,
		Message: message,
		Updated: time.Now(),
	}
}

// UpdateComponent updates the health status of a component
func UpdateComponent(name string, healthy bool, message string) {
	RegisterComponent(name, healthy, message)
}

// ComponentNames returns the registered component names, sorted
func ComponentNames() []string {
	healthChecker.mu.RLock()
	defer healthChecker.mu.RUnlock()

	names := make([]string, 0, len(healthChecker.components))
	for name := range healthChecker.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ComponentHealthy reports whether a registered component is healthy
func ComponentHealthy(name string) (healthy bool, registered bool) {
	healthChecker.mu.RLock()
	defer healthChecker.mu.RUnlock()

	comp, ok := healthChecker.components[name]
	return comp.Healthy, ok
}

// GetHealth returns the overall health status
func GetHealth() HealthStatus {
	healthChecker.mu.RLock()
	defer healthChecker.mu.RUnlock()

	status := StatusHealthy
	components := make(map[string]string)

	for name, comp := range healthChecker.components {
		if !comp.Healthy {
			status = StatusUnhealthy
			components[name] = "unhealthy: " + comp.Message
		} else {
			components[name] = StatusHealthy
		}
	}

	return HealthStatus{
		Status:     status,
		Timestamp:  time.Now(),
		Components: components,
		Version:    healthChecker.version,
		Uptime:     time.Since(healthChecker.startTime).String(),
	}
}

// GetReadiness reports ready only when every critical component is registered and healthy
func GetReadiness() HealthStatus {
	healthChecker.mu.RLock()
	defer healthChecker.mu.RUnlock()

	status := StatusReady
	message := ""
	components := make(map[string]string)

	for _, name := range CriticalComponents {
		comp, exists := healthChecker.components[name]
		switch {
		case !exists:
			status = StatusNotReady
			message = "waiting for " + name + " initialization"
			components[name] = "not registered"
		case !comp.Healthy:
			status = StatusNotReady
			message = "waiting for " + name
			components[name] = "not ready: " + comp.Message
		default:
			components[name] = StatusReady
		}
	}

	return HealthStatus{
		Status:     status,
		Timestamp:  time.Now(),
		Components: components,
		Message:    message,
		Version:    healthChecker.version,
		Uptime:     time.Since(healthChecker.startTime).String(),
	}
}
