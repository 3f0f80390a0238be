// Package crdtdoc is the monomorphized delta payload: the "list of
// CRDT actions" spec.md §9 Design Notes recommends for a language
// without generics-over-the-wire. A Patch is a flat list of Ops, each
// naming a dot-separated path into a Document and the action to apply
// at that path's element. Document.Apply is where internal/store's
// Applier reaches pkg/crdt at each touched element (spec.md §4.8);
// Document.Merge reconciles two whole documents. The DAG engine itself
// never inspects payload bytes, only this package and its caller
// (internal/store) do.
package crdtdoc

import (
	"encoding/json"
	"fmt"

	"github.com/rechain/deltasync/pkg/crdt"
)

// ElementKind names which CRDT shape a path holds. A Document is
// schema-free at the type level — two ops writing the same path with
// different kinds is a caller bug, reported as an error rather than
// silently resolved, since no commutative resolution exists across
// shapes.
type ElementKind string

const (
	KindCounter ElementKind = "counter"
	KindLWW     ElementKind = "lww"
	KindSet     ElementKind = "set"
	KindORSet   ElementKind = "orset"
)

// Element is a tagged union over the scalar CRDT shapes a Document
// path may hold. Map and Sequence shapes are not represented here:
// nesting is expressed by giving an Op's Path multiple dot-separated
// segments, which Document resolves to a child Document (see
// applyOne in patch.go).
type Element struct {
	Kind    ElementKind
	Counter crdt.Counter
	LWW     crdt.LWW[json.RawMessage]
	Set     crdt.Set[string]
	ORSet   crdt.ORSet[string]
}

// ErrKindMismatch is returned when an Op or a Merge targets a path
// under a different ElementKind than the one already recorded there.
var ErrKindMismatch = fmt.Errorf("crdtdoc: element kind mismatch")

// Merge reconciles two observations of the same path. Both sides must
// carry the same Kind.
func (e Element) Merge(other Element) (Element, error) {
	if e.Kind != other.Kind {
		return Element{}, fmt.Errorf("%w: %s vs %s", ErrKindMismatch, e.Kind, other.Kind)
	}
	switch e.Kind {
	case KindCounter:
		return Element{Kind: KindCounter, Counter: e.Counter.Merge(other.Counter)}, nil
	case KindLWW:
		return Element{Kind: KindLWW, LWW: e.LWW.Merge(other.LWW)}, nil
	case KindSet:
		return Element{Kind: KindSet, Set: e.Set.Merge(other.Set)}, nil
	case KindORSet:
		return Element{Kind: KindORSet, ORSet: e.ORSet.Merge(other.ORSet)}, nil
	default:
		return Element{}, fmt.Errorf("crdtdoc: unknown element kind %q", e.Kind)
	}
}

func zeroElement(kind ElementKind) Element {
	switch kind {
	case KindCounter:
		return Element{Kind: KindCounter, Counter: crdt.NewCounter()}
	case KindLWW:
		return Element{Kind: KindLWW}
	case KindSet:
		return Element{Kind: KindSet, Set: crdt.NewSet[string]()}
	case KindORSet:
		return Element{Kind: KindORSet, ORSet: crdt.NewORSet[string]()}
	default:
		return Element{Kind: kind}
	}
}

// Document is a recursive map of path segments to Elements or nested
// Documents, the concrete payload shape pkg/dag's Applier decodes
// Delta.Payload into.
type Document struct {
	elements map[string]Element
	children map[string]*Document
}

// NewDocument returns an empty Document.
func NewDocument() *Document {
	return &Document{elements: make(map[string]Element), children: make(map[string]*Document)}
}

// Merge recursively merges other into a copy of d: elements present
// on both sides merge via Element.Merge, children present on both
// sides merge recursively, and anything present on only one side is
// taken outright (spec.md §4.8's "union otherwise" rule for maps).
func (d *Document) Merge(other *Document) (*Document, error) {
	out := d.clone()

	for path, oe := range other.elements {
		if existing, ok := out.elements[path]; ok {
			merged, err := existing.Merge(oe)
			if err != nil {
				return nil, fmt.Errorf("crdtdoc: merge %q: %w", path, err)
			}
			out.elements[path] = merged
		} else {
			out.elements[path] = oe
		}
	}

	for seg, ochild := range other.children {
		if existing, ok := out.children[seg]; ok {
			merged, err := existing.Merge(ochild)
			if err != nil {
				return nil, fmt.Errorf("crdtdoc: merge child %q: %w", seg, err)
			}
			out.children[seg] = merged
		} else {
			out.children[seg] = ochild.clone()
		}
	}

	return out, nil
}

type documentWire struct {
	Elements map[string]Element   `json:"elements"`
	Children map[string]*Document `json:"children"`
}

// MarshalJSON renders the document for persistence by internal/store.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(documentWire{Elements: d.elements, Children: d.children})
}

// UnmarshalJSON parses the representation produced by MarshalJSON.
func (d *Document) UnmarshalJSON(data []byte) error {
	var wire documentWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Elements == nil {
		wire.Elements = make(map[string]Element)
	}
	if wire.Children == nil {
		wire.Children = make(map[string]*Document)
	}
	d.elements = wire.Elements
	d.children = wire.Children
	return nil
}

func (d *Document) clone() *Document {
	out := NewDocument()
	for path, e := range d.elements {
		out.elements[path] = e
	}
	for seg, child := range d.children {
		out.children[seg] = child.clone()
	}
	return out
}
