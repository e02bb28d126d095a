package engine

import (
	"context"

	"github.com/rewindable/rewind/internal/action"
)

// Executor applies one operation to the live store and reports success or
// failure. The engine treats it as an opaque capability: the host decides
// what transactional scope it runs in (an executor bound to the host's open
// transaction gives live-side atomicity; the engine's own consistency never
// depends on it).
//
// sqlexec.Executor is the ready-made database/sql implementation.
type Executor interface {
	ExecOperation(ctx context.Context, op action.Operation) error
}
