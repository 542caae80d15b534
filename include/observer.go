package include

import (
	"time"

	"github.com/rediwo/redi-eager/schema"
)

// Reasons passed to Observer.RelationSkipped.
const (
	SkipUnknown  = "unknown"
	SkipDisabled = "disabled"
)

// PlanInfo describes one batched lookup the resolver is about to run.
type PlanInfo struct {
	Model    string
	Relation string
	Kind     schema.RelationKind
	Target   string // model queried by this hop
	Parents  int
	Keys     int
	Pages    int
	Point    bool
}

// Observer receives resolver events. Implementations must be safe for
// concurrent use; pages and sibling relations run in parallel.
type Observer interface {
	BatchPlanned(info PlanInfo)
	QueryIssued(model string, keys int, duration time.Duration, err error)
	RelationSkipped(model, relation, reason string)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) BatchPlanned(PlanInfo)                          {}
func (NopObserver) QueryIssued(string, int, time.Duration, error)  {}
func (NopObserver) RelationSkipped(model, relation, reason string) {}
