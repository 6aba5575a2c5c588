package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("registry: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// SnapshotVersion is bumped whenever the node encoding changes.
const SnapshotVersion = 1

// Snapshot is a complete walked graph: its root and every node in
// definition order.
type Snapshot struct {
	Version int    `cbor:"1,keyasint"`
	Root    ID     `cbor:"2,keyasint"`
	Nodes   []Node `cbor:"3,keyasint"`
}

// Snapshot captures the current node table with the given root.
func (m *Memory) Snapshot(root ID) *Snapshot {
	s := &Snapshot{Version: SnapshotVersion, Root: root, Nodes: make([]Node, 0, len(m.order))}
	for _, id := range m.order {
		s.Nodes = append(s.Nodes, *m.nodes[id])
	}
	return s
}

// Memory rebuilds a node table from the snapshot.
func (s *Snapshot) Memory() *Memory {
	m := NewMemory()
	for i := range s.Nodes {
		n := s.Nodes[i]
		m.define(&n)
	}
	return m
}

// Hash returns the SHA-256 of the snapshot's canonical encoding.
func (s *Snapshot) Hash() ([32]byte, error) {
	data, err := MarshalSnapshot(s)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// HashString returns Hash as lowercase hex.
func (s *Snapshot) HashString() (string, error) {
	h, err := s.Hash()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h[:]), nil
}

// MarshalSnapshot serializes a snapshot to canonical CBOR.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	data, err := cborEncMode.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("registry: marshal snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot deserializes a snapshot from CBOR.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("registry: unmarshal snapshot: %w", err)
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("registry: snapshot version %d, want %d", s.Version, SnapshotVersion)
	}
	return &s, nil
}
