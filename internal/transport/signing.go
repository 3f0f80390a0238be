// Package transport adapts the causal engine to an unreliable delivery
// substrate (spec.md §6 "Delivery substrate (inbound)"): a libp2p
// gossip host that broadcasts and receives wire-encoded deltas, and an
// Ed25519 signer/verifier guarding against the forged-delta risk
// spec.md §9 Design Notes calls out ("if the substrate admits
// adversarial forged deltas, the delivery substrate must authenticate
// them"). Neither concern lives in pkg/dag: the engine only ever sees
// already-authenticated deltas handed to add_delta.
package transport

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// Signer holds an Ed25519 keypair for authenticating this replica's
// outbound deltas, downsized from the teacher's internal/security
// RSA-PSS KeyManager (spec.md's wire shape is small and latency
// sensitive; Ed25519 signatures are fixed at 64 bytes with no padding
// scheme to configure).
type Signer struct {
	public  ed25519.PublicKey
	private ed25519.PrivateKey
}

// NewSigner generates a fresh Ed25519 keypair.
func NewSigner() (*Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("transport: generate signing key: %w", err)
	}
	return &Signer{public: pub, private: priv}, nil
}

// SignerFromSeed reconstructs a Signer from a stored 32-byte seed, so
// a host's identity survives a restart.
func SignerFromSeed(seed []byte) (*Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("transport: want %d-byte seed, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Signer{public: priv.Public().(ed25519.PublicKey), private: priv}, nil
}

// PublicKey returns the verifying key peers should be given
// out-of-band to authenticate this replica's deltas.
func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.public
}

// Sign returns a detached signature over data.
func (s *Signer) Sign(data []byte) []byte {
	return ed25519.Sign(s.private, data)
}

// Verify reports whether sig is a valid signature over data under
// publicKey.
func Verify(publicKey ed25519.PublicKey, data, sig []byte) bool {
	return ed25519.Verify(publicKey, data, sig)
}
