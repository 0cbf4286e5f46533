package ops

import (
	"context"

	"github.com/hpungsan/followpick/internal/snapshot"
)

// InventoryOutput lists every subject with stored snapshots.
type InventoryOutput struct {
	Subjects []snapshot.SubjectInfo `json:"subjects"`
	Sort     string                 `json:"sort"`
}

// Inventory returns the subjects known to the store, most recently captured first.
func Inventory(ctx context.Context, store SnapshotReader) (*InventoryOutput, error) {
	subjects, err := store.ListSubjects(ctx)
	if err != nil {
		return nil, err
	}
	if subjects == nil {
		subjects = []snapshot.SubjectInfo{}
	}
	return &InventoryOutput{Subjects: subjects, Sort: "latest_at_desc"}, nil
}
