package models

import (
	"context"
	"errors"
)

// ErrCycle is returned when re-parenting a node would make it its own ancestor.
var ErrCycle = errors.New("assignment would create a cycle")

// ParentLookup returns the parent id of a node, or nil for a root.
type ParentLookup func(ctx context.Context, id string) (*string, error)

// maxDepth bounds the walk so a corrupted tree cannot loop forever.
const maxDepth = 1024

// CheckAcyclic walks up from newParentID and fails with ErrCycle if it
// reaches nodeID. Both the manager tree and the subtask tree use it.
func CheckAcyclic(ctx context.Context, nodeID, newParentID string, parentOf ParentLookup) error {
	current := newParentID
	for depth := 0; current != ""; depth++ {
		if current == nodeID || depth >= maxDepth {
			return ErrCycle
		}
		parent, err := parentOf(ctx, current)
		if err != nil {
			return err
		}
		if parent == nil {
			return nil
		}
		current = *parent
	}
	return nil
}
