// Package id defines the 32-byte opaque identifier shared by deltas,
// authors and the DAG's root sentinel.
package id

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
)

// Size is the fixed byte length of an ID.
const Size = 32

// ID is a 32-byte opaque identifier. Equality and ordering are
// byte-wise; the zero value is Root.
type ID [Size]byte

// Root is the distinguished sentinel treated as implicitly applied.
// It is never stored as a delta: a delta whose only parent is Root is
// immediately eligible for application.
var Root ID

// FromBytes copies b into a new ID. It returns an error if b is not
// exactly Size bytes long.
func FromBytes(b []byte) (ID, error) {
	var out ID
	if len(b) != Size {
		return out, errors.New("id: want 32 bytes")
	}
	copy(out[:], b)
	return out, nil
}

// FromHex parses the lowercase hex encoding produced by String, for
// callers accepting ids from URL paths or query parameters.
func FromHex(s string) (ID, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ID{}, err
	}
	return FromBytes(raw)
}

// Equal reports whether two ids hold the same bytes.
func (i ID) Equal(other ID) bool {
	return i == other
}

// IsRoot reports whether i is the root sentinel.
func (i ID) IsRoot() bool {
	return i == Root
}

// Less gives a deterministic total order over ids, used to break ties
// between HLC timestamps that compare equal (spec: tie-break by
// authoring id).
func (i ID) Less(other ID) bool {
	return bytes.Compare(i[:], other[:]) < 0
}

// Compare returns -1, 0 or 1 as i is less than, equal to, or greater
// than other.
func (i ID) Compare(other ID) int {
	return bytes.Compare(i[:], other[:])
}

// String renders the id as lowercase hex, for logs and debugging.
func (i ID) String() string {
	return hex.EncodeToString(i[:])
}

// Bytes returns a copy of the underlying 32 bytes.
func (i ID) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, i[:])
	return out
}

// MarshalJSON renders the id as a hex string, so wire payloads and
// logs stay readable instead of showing a raw 32-element byte array.
func (i ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

// UnmarshalJSON parses the hex string produced by MarshalJSON.
func (i *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	got, err := FromBytes(raw)
	if err != nil {
		return err
	}
	*i = got
	return nil
}

// Set is a lightweight set of ids, used throughout pkg/dag for
// applied/pending/heads bookkeeping.
type Set map[ID]struct{}

// NewSet builds a Set from the given ids.
func NewSet(ids ...ID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id into the set.
func (s Set) Add(id ID) { s[id] = struct{}{} }

// Remove deletes id from the set, a no-op if absent.
func (s Set) Remove(id ID) { delete(s, id) }

// Has reports whether id is a member.
func (s Set) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

// Slice returns the set's members in unspecified order.
func (s Set) Slice() []ID {
	out := make([]ID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}
