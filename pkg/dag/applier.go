package dag

import (
	"context"

	"github.com/rechain/deltasync/pkg/delta"
)

// Applier is the single external collaborator the DAG engine calls
// once a delta's causal dependencies are satisfied. It is the only
// operation in the CORE that may suspend (spec.md §5): Apply may be
// I/O-bound (disk write, remote call, sandbox execution). The engine
// calls it serially and never concurrently with itself.
//
// Apply is responsible for any persistence of application state, for
// maintaining a Merkle-style content hash over that state, and — when
// the payload is a composite CRDT — for performing the recursive
// merge of spec.md §4.8 at each touched element. The DAG engine itself
// never inspects or merges payload bytes.
type Applier interface {
	Apply(ctx context.Context, d *delta.Delta) error
}

// ApplierFunc adapts a plain function to the Applier interface.
type ApplierFunc func(ctx context.Context, d *delta.Delta) error

// Apply implements Applier.
func (f ApplierFunc) Apply(ctx context.Context, d *delta.Delta) error {
	return f(ctx, d)
}
