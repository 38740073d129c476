package model

import "github.com/google/uuid"

// DisruptionType classifies real-time events affecting an active
// schedule.
type DisruptionType int

const (
	MachineBreakdown DisruptionType = iota
	RushOrder
	ProcessingDelay
	MaterialShortage
	WorkerAbsence
	QualityIssue
)

// String returns a human-readable representation of the type.
func (t DisruptionType) String() string {
	switch t {
	case MachineBreakdown:
		return "machine_breakdown"
	case RushOrder:
		return "rush_order"
	case ProcessingDelay:
		return "processing_delay"
	case MaterialShortage:
		return "material_shortage"
	case WorkerAbsence:
		return "worker_absence"
	case QualityIssue:
		return "quality_issue"
	default:
		return "unknown"
	}
}

// ParseDisruptionType converts a textual disruption type.
func ParseDisruptionType(s string) (DisruptionType, bool) {
	for t := MachineBreakdown; t <= QualityIssue; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return MachineBreakdown, false
}

// DisruptionEvent is an externally created, immutable event consumed
// once by the disruption tracker. Resource names the affected machine
// or job depending on the type.
type DisruptionEvent struct {
	ID          string
	Type        DisruptionType
	Resource    string
	Start       int // minutes from horizon start
	Duration    int
	AffectedOps []string // optional explicit operation set
	Notes       string
}

// Window returns the time range covered by the event.
func (e DisruptionEvent) Window() Interval {
	return Interval{Start: e.Start, End: e.Start + e.Duration}
}

// NewDisruptionEvent creates an event with a fresh unique id.
func NewDisruptionEvent(t DisruptionType, resource string, start, duration int) DisruptionEvent {
	return DisruptionEvent{
		ID:       uuid.NewString(),
		Type:     t,
		Resource: resource,
		Start:    start,
		Duration: duration,
	}
}
