package drawer

import (
	"time"

	"github.com/askiada/go-multi/pkg/multi/measure"
)

// Status is the outcome of an operation as drawn.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Drawer is an interface that defines the methods for drawing the operations of a commit.
type Drawer interface {
	// AddOperation adds an operation identified by key and shown as label.
	AddOperation(key, label string) error
	// AddLink adds a link between an operation and the one running after it.
	AddLink(parentKey, childKey string) error
	// MarkOperation records the outcome of an operation.
	MarkOperation(key string, status Status) error
	// SetTotalTime sets the time elapsed since startTime on the operation.
	SetTotalTime(key string, startTime time.Time) error
	// AddMeasure colours operations by their average duration.
	AddMeasure(measure measure.Measure) error
	// Draw creates a file with the graph of the operations.
	Draw() error
}
