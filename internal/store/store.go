package store

import (
	"context"

	"github.com/me/ticksched/pkg/model"
)

// Store is the journal of scheduler runs and what happened during them.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, opts model.ListOptions) ([]*model.Run, int, error)
	UpdateRun(ctx context.Context, run *model.Run) error

	// Events, written in batches once per drain.
	RecordFires(ctx context.Context, fires []model.Fire) error
	ListFires(ctx context.Context, runID string, opts model.ListOptions) ([]model.Fire, int, error)
	RecordOverruns(ctx context.Context, overruns []model.Overrun) error
	ListOverruns(ctx context.Context, runID string, opts model.ListOptions) ([]model.Overrun, int, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
