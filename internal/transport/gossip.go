package transport

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/multiformats/go-multiaddr"
	"go.uber.org/zap"

	"github.com/rechain/deltasync/pkg/dag"
	"github.com/rechain/deltasync/pkg/delta"
)

const protocolID = protocol.ID("/deltasync/gossip/1.0.0")

// envelope is the signed wire message gossiped between hosts: the
// delta's own serialization (spec.md §6's tagged record) plus an
// Ed25519 signature over it and the signer's public key, so a
// receiving host can authenticate before ever calling add_delta.
type envelope struct {
	// MessageID identifies this gossip message, distinct from the
	// delta's own id: each Broadcast mints a fresh one. Receivers do
	// not deduplicate on it; add_delta's own id check absorbs repeats.
	MessageID string            `json:"message_id"`
	Delta     []byte            `json:"delta"`
	Signature []byte            `json:"signature"`
	PublicKey ed25519.PublicKey `json:"public_key"`
}

// KnownPeer tracks reputation for a connected peer, the same
// LastSeen/Score shape the teacher's gossip.PeerInfo used.
type KnownPeer struct {
	ID       peer.ID
	LastSeen time.Time
	Score    int
}

// GossipHost is the reference libp2p delivery substrate: it
// broadcasts locally originated deltas to known peers and, on
// receipt, verifies the envelope's signature and forwards the delta
// into the DAG store via add_delta. It never initiates missing-parent
// recovery: this package runs no anti-entropy loop, so fetching the
// ids get_missing_parents reports is left to the host.
type GossipHost struct {
	host   host.Host
	signer *Signer
	store  *dag.Locked
	applier dag.Applier
	logger *zap.Logger

	peersMu sync.RWMutex
	peers   map[peer.ID]*KnownPeer

	trustedMu sync.RWMutex
	trusted   map[peer.ID]ed25519.PublicKey

	quit chan struct{}
}

// NewGossipHost starts a libp2p host listening on listenAddr and wires
// its stream handler to verify and ingest gossiped deltas into store.
func NewGossipHost(listenAddr string, signer *Signer, store *dag.Locked, applier dag.Applier, logger *zap.Logger) (*GossipHost, error) {
	h, err := libp2p.New(libp2p.ListenAddrStrings(listenAddr))
	if err != nil {
		return nil, fmt.Errorf("transport: create libp2p host: %w", err)
	}

	g := &GossipHost{
		host:    h,
		signer:  signer,
		store:   store,
		applier: applier,
		logger:  logger,
		peers:   make(map[peer.ID]*KnownPeer),
		trusted: make(map[peer.ID]ed25519.PublicKey),
		quit:    make(chan struct{}),
	}
	h.SetStreamHandler(protocolID, g.handleStream)

	logger.Info("gossip host started", zap.String("peer_id", h.ID().String()))
	return g, nil
}

// Close tears down the libp2p host.
func (g *GossipHost) Close() error {
	close(g.quit)
	return g.host.Close()
}

// AddPeer dials addr, records the peer, and registers the public key
// we will require its deltas to be signed with.
func (g *GossipHost) AddPeer(ctx context.Context, addr string, publicKey ed25519.PublicKey) error {
	maddr, err := multiaddr.NewMultiaddr(addr)
	if err != nil {
		return fmt.Errorf("transport: invalid peer address: %w", err)
	}
	info, err := peer.AddrInfoFromP2pAddr(maddr)
	if err != nil {
		return fmt.Errorf("transport: parse peer info: %w", err)
	}
	if err := g.host.Connect(ctx, *info); err != nil {
		return fmt.Errorf("transport: connect to peer: %w", err)
	}

	g.peersMu.Lock()
	g.peers[info.ID] = &KnownPeer{ID: info.ID, LastSeen: time.Now()}
	g.peersMu.Unlock()

	g.trustedMu.Lock()
	g.trusted[info.ID] = publicKey
	g.trustedMu.Unlock()

	return nil
}

// Broadcast signs d and sends it to every known peer, absorbing
// per-peer stream failures since the substrate is assumed unreliable
// (spec.md §6).
func (g *GossipHost) Broadcast(ctx context.Context, d delta.Delta) error {
	encoded, err := d.MarshalBinary()
	if err != nil {
		return fmt.Errorf("transport: encode delta: %w", err)
	}

	env := envelope{
		MessageID: uuid.New().String(),
		Delta:     encoded,
		Signature: g.signer.Sign(encoded),
		PublicKey: g.signer.PublicKey(),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("transport: encode envelope: %w", err)
	}

	g.peersMu.RLock()
	peerIDs := make([]peer.ID, 0, len(g.peers))
	for id := range g.peers {
		peerIDs = append(peerIDs, id)
	}
	g.peersMu.RUnlock()

	for _, id := range peerIDs {
		if err := g.send(ctx, id, payload); err != nil {
			g.logger.Warn("gossip send failed", zap.String("peer", id.String()), zap.Error(err))
		}
	}
	return nil
}

func (g *GossipHost) send(ctx context.Context, id peer.ID, payload []byte) error {
	s, err := g.host.NewStream(ctx, id, protocolID)
	if err != nil {
		return err
	}
	defer s.Close()
	_, err = s.Write(payload)
	return err
}

func (g *GossipHost) handleStream(s network.Stream) {
	defer s.Close()

	var env envelope
	if err := json.NewDecoder(bufio.NewReader(s)).Decode(&env); err != nil {
		g.logger.Warn("gossip decode failed", zap.Error(err))
		return
	}

	remote := s.Conn().RemotePeer()
	if !g.isTrusted(remote, env) {
		g.logger.Warn("gossip envelope failed verification", zap.String("peer", remote.String()))
		return
	}

	var d delta.Delta
	if err := d.UnmarshalBinary(env.Delta); err != nil {
		g.logger.Warn("gossip decode delta failed", zap.Error(err))
		return
	}

	g.peersMu.Lock()
	if p, ok := g.peers[remote]; ok {
		p.LastSeen = time.Now()
	}
	g.peersMu.Unlock()

	if _, err := g.store.AddDelta(context.Background(), d, g.applier); err != nil {
		g.logger.Warn("add_delta failed", zap.String("delta", d.ID.String()), zap.Error(err))
	}
}

// isTrusted verifies env's signature against the public key this host
// either already has on file for remote, or the key the envelope
// itself carries (first contact — callers that require pinned trust
// should call AddPeer with a known key before accepting traffic).
func (g *GossipHost) isTrusted(remote peer.ID, env envelope) bool {
	g.trustedMu.RLock()
	pub, known := g.trusted[remote]
	g.trustedMu.RUnlock()
	if !known {
		pub = env.PublicKey
	}
	return Verify(pub, env.Delta, env.Signature)
}
