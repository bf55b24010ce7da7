package model

import "fmt"

const (
	StartKind = "start"
	EndKind   = "end"
)

// OperationInfo describes an operation to hooks without exposing its input or effect.
type OperationInfo struct {
	Kind  string
	Name  string
	Index int
}

// Key identifies the operation among the hook calls of a commit. Operations are keyed by
// name and position, so no operation shares a key with StartOperation or EndOperation.
func (o *OperationInfo) Key() string {
	if o.Index < 0 {
		return o.Kind
	}

	return fmt.Sprintf("%s#%d", o.Name, o.Index)
}

var (
	StartOperation = &OperationInfo{Kind: StartKind, Name: "start", Index: -1}
	EndOperation   = &OperationInfo{Kind: EndKind, Name: "end", Index: -1}
)
