package crdt

import "github.com/rechain/deltasync/pkg/id"

// idFromHex parses the hex string id.ID.String() produces, shared by
// the Marshal/Unmarshal helpers of the map-keyed-by-id shapes.
func idFromHex(s string) (id.ID, error) {
	var wrapped struct {
		V id.ID
	}
	quoted := `"` + s + `"`
	if err := wrapped.V.UnmarshalJSON([]byte(quoted)); err != nil {
		return id.ID{}, err
	}
	return wrapped.V, nil
}
