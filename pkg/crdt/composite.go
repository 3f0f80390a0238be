package crdt

// Composite is a field-wise mergeable record: merge is field-by-field
// recursive merge, provided every field is itself mergeable (spec.md
// §4.8). Unlike Map, Composite has a fixed, named field set known at
// construction time — it models a struct-shaped CRDT rather than an
// open-ended collection.
type Composite struct {
	fields map[string]fieldMerger
}

// fieldMerger erases a field's concrete Mergeable[T] so heterogeneous
// fields can share one Composite.
type fieldMerger struct {
	value any
	merge func(self, other any) any
}

// NewComposite builds an empty Composite; use WithField to populate it.
func NewComposite() Composite {
	return Composite{fields: make(map[string]fieldMerger)}
}

// WithField returns a Composite with name bound to value, replacing
// any existing binding for name outright (a single-author write, like
// Map.Set — concurrent writes are reconciled by Merge).
func WithField[T Mergeable[T]](c Composite, name string, value T) Composite {
	out := c.clone()
	out.fields[name] = fieldMerger{
		value: value,
		merge: func(self, other any) any {
			return self.(T).Merge(other.(T))
		},
	}
	return out
}

// Field retrieves the field bound to name, if present and of type T.
func Field[T Mergeable[T]](c Composite, name string) (T, bool) {
	var zero T
	fm, ok := c.fields[name]
	if !ok {
		return zero, false
	}
	v, ok := fm.value.(T)
	return v, ok
}

// Merge recursively merges fields present in both composites. A field
// present in only one side is taken outright from that side.
func (c Composite) Merge(other Composite) Composite {
	out := c.clone()
	for name, ofm := range other.fields {
		if existing, ok := out.fields[name]; ok {
			out.fields[name] = fieldMerger{
				value: existing.merge(existing.value, ofm.value),
				merge: existing.merge,
			}
		} else {
			out.fields[name] = ofm
		}
	}
	return out
}

func (c Composite) clone() Composite {
	out := Composite{fields: make(map[string]fieldMerger, len(c.fields))}
	for name, fm := range c.fields {
		out.fields[name] = fm
	}
	return out
}
