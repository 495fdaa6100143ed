package domain

// HealthStatus is a discrete component health level.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

func (s HealthStatus) severity() int {
	switch s {
	case HealthHealthy:
		return 0
	case HealthDegraded:
		return 1
	default:
		return 2
	}
}

// Worst returns the more severe of s and other.
func (s HealthStatus) Worst(other HealthStatus) HealthStatus {
	if other.severity() > s.severity() {
		return other
	}
	return s
}

// ComponentHealth is the health of one dependency or subsystem.
type ComponentHealth struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// HealthReport aggregates component health using worst-of.
type HealthReport struct {
	Status     HealthStatus      `json:"status"`
	Components []ComponentHealth `json:"components"`
}

// NewHealthReport aggregates components. An empty report is healthy.
func NewHealthReport(components []ComponentHealth) HealthReport {
	overall := HealthHealthy
	for _, c := range components {
		overall = overall.Worst(c.Status)
	}
	return HealthReport{Status: overall, Components: components}
}
