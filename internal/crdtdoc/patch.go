package crdtdoc

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rechain/deltasync/pkg/crdt"
	"github.com/rechain/deltasync/pkg/hlc"
	"github.com/rechain/deltasync/pkg/id"
)

// Op is one CRDT action against a single Document path. Path segments
// are dot-separated; all but the last segment name a nested Document,
// the last segment names the Element the action applies to.
type Op struct {
	Path   string          `json:"path"`
	Kind   ElementKind     `json:"kind"`
	Action string          `json:"action"`
	Author id.ID           `json:"author"`
	At     hlc.Timestamp   `json:"at"`
	Amount uint64          `json:"amount,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
	// Tag uniquely identifies this observation for ActionAdd against
	// a KindORSet element (crdt.ORSet.Add); callers should set it to
	// the id of the delta carrying this op, which spec.md §3 already
	// assumes is collision-resistant.
	Tag id.ID `json:"tag,omitempty"`
}

// Recognized Op.Action values.
const (
	ActionIncrement = "increment"
	ActionSet       = "set"
	ActionAdd       = "add"
	ActionRemove    = "remove"
)

// Patch is the wire payload a Delta carries: an ordered list of Ops
// describing one author's local edit, the "list of CRDT actions"
// monomorphization of spec.md §9. DocID names which Document the
// patch applies to, letting internal/store route a decoded delta to
// the right persisted state.
type Patch struct {
	DocID string `json:"doc_id"`
	Ops   []Op   `json:"ops"`
}

// MarshalBinary encodes the patch as JSON for use as Delta.Payload.
func (p Patch) MarshalBinary() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalPatch decodes a Delta.Payload back into a Patch.
func UnmarshalPatch(payload []byte) (Patch, error) {
	var p Patch
	if err := json.Unmarshal(payload, &p); err != nil {
		return Patch{}, fmt.Errorf("crdtdoc: decode patch: %w", err)
	}
	return p, nil
}

// Apply performs every Op in the patch against d in order, returning
// an error (and leaving d partially mutated) on the first Op that
// cannot be applied. Callers that need atomicity should clone d first.
func (d *Document) Apply(p Patch) error {
	for i, op := range p.Ops {
		if err := d.applyOne(op); err != nil {
			return fmt.Errorf("crdtdoc: op %d (%s): %w", i, op.Path, err)
		}
	}
	return nil
}

func (d *Document) applyOne(op Op) error {
	segments := strings.Split(op.Path, ".")
	if len(segments) == 0 || segments[0] == "" {
		return fmt.Errorf("crdtdoc: empty path")
	}

	cursor := d
	for _, seg := range segments[:len(segments)-1] {
		child, ok := cursor.children[seg]
		if !ok {
			child = NewDocument()
			cursor.children[seg] = child
		}
		cursor = child
	}
	leaf := segments[len(segments)-1]

	existing, hasExisting := cursor.elements[leaf]
	if !hasExisting {
		existing = zeroElement(op.Kind)
	} else if existing.Kind != op.Kind {
		return fmt.Errorf("%w: existing %s, op wants %s", ErrKindMismatch, existing.Kind, op.Kind)
	}

	updated, err := applyAction(existing, op)
	if err != nil {
		return err
	}
	cursor.elements[leaf] = updated
	return nil
}

func applyAction(e Element, op Op) (Element, error) {
	switch e.Kind {
	case KindCounter:
		if op.Action != ActionIncrement {
			return Element{}, fmt.Errorf("crdtdoc: counter does not support action %q", op.Action)
		}
		e.Counter = e.Counter.Increment(op.Author, op.Amount)
		return e, nil

	case KindLWW:
		if op.Action != ActionSet {
			return Element{}, fmt.Errorf("crdtdoc: lww does not support action %q", op.Action)
		}
		e.LWW = e.LWW.Merge(crdt.NewLWW(op.Value, op.At))
		return e, nil

	case KindSet:
		if op.Action != ActionAdd {
			return Element{}, fmt.Errorf("crdtdoc: plain set supports only %q, use orset for removal", ActionAdd)
		}
		var member string
		if err := json.Unmarshal(op.Value, &member); err != nil {
			return Element{}, fmt.Errorf("crdtdoc: decode set member: %w", err)
		}
		e.Set = e.Set.Add(member)
		return e, nil

	case KindORSet:
		var member string
		if err := json.Unmarshal(op.Value, &member); err != nil {
			return Element{}, fmt.Errorf("crdtdoc: decode orset member: %w", err)
		}
		switch op.Action {
		case ActionAdd:
			e.ORSet = e.ORSet.Add(op.Tag, member)
		case ActionRemove:
			e.ORSet = e.ORSet.Remove(member)
		default:
			return Element{}, fmt.Errorf("crdtdoc: orset does not support action %q", op.Action)
		}
		return e, nil

	default:
		return Element{}, fmt.Errorf("crdtdoc: unknown element kind %q", e.Kind)
	}
}
