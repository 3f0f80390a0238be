package delta

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/rechain/deltasync/pkg/hlc"
	"github.com/rechain/deltasync/pkg/id"
)

// wire shape (spec.md §6):
//
//	id:       32 bytes
//	parents:  4-byte big-endian count, then count * 32-byte ids
//	hlc:      8-byte physical (int64), 4-byte logical (uint32), 32-byte author
//	payload:  4-byte big-endian length, then that many opaque bytes

// MarshalBinary encodes d into the tagged wire shape. It always
// succeeds.
func (d Delta) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(d.ID[:])

	if err := binary.Write(buf, binary.BigEndian, uint32(len(d.Parents))); err != nil {
		return nil, err
	}
	for _, p := range d.Parents {
		buf.Write(p[:])
	}

	if err := binary.Write(buf, binary.BigEndian, d.HLC.Physical); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, d.HLC.Logical); err != nil {
		return nil, err
	}
	buf.Write(d.HLC.Author[:])

	if err := binary.Write(buf, binary.BigEndian, uint32(len(d.Payload))); err != nil {
		return nil, err
	}
	buf.Write(d.Payload)

	return buf.Bytes(), nil
}

// UnmarshalBinary decodes the tagged wire shape produced by
// MarshalBinary, replacing the receiver's contents.
func (d *Delta) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)

	var rawID [id.Size]byte
	if _, err := io.ReadFull(r, rawID[:]); err != nil {
		return fmt.Errorf("delta: reading id: %w", err)
	}

	var parentCount uint32
	if err := binary.Read(r, binary.BigEndian, &parentCount); err != nil {
		return fmt.Errorf("delta: reading parent count: %w", err)
	}
	parents := make([]id.ID, 0, parentCount)
	for i := uint32(0); i < parentCount; i++ {
		var p [id.Size]byte
		if _, err := io.ReadFull(r, p[:]); err != nil {
			return fmt.Errorf("delta: reading parent %d: %w", i, err)
		}
		parents = append(parents, id.ID(p))
	}

	var physical int64
	var logical uint32
	var author [id.Size]byte
	if err := binary.Read(r, binary.BigEndian, &physical); err != nil {
		return fmt.Errorf("delta: reading hlc physical: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &logical); err != nil {
		return fmt.Errorf("delta: reading hlc logical: %w", err)
	}
	if _, err := io.ReadFull(r, author[:]); err != nil {
		return fmt.Errorf("delta: reading hlc author: %w", err)
	}

	var payloadLen uint32
	if err := binary.Read(r, binary.BigEndian, &payloadLen); err != nil {
		return fmt.Errorf("delta: reading payload length: %w", err)
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("delta: reading payload: %w", err)
	}

	d.ID = id.ID(rawID)
	d.Parents = parents
	d.HLC = hlc.New(physical, logical, id.ID(author))
	d.Payload = payload
	return nil
}
