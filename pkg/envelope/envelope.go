// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package envelope

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/pactprotocol/pact/pkg/codec"
)

// Envelope carries a message, the sender's public key, and a detached
// signature over the canonical encoding of the message. Verification is
// pure: it consults no session state, only the envelope itself.
type Envelope struct {
	Message         Message `json:"message"`
	SenderPubKeyB58 string  `json:"sender_pubkey"`
	SignatureB58    string  `json:"signature"`
}

// GenerateKeyPair returns a fresh Ed25519 key pair for a session participant.
func GenerateKeyPair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}

// Sign canonicalises msg and produces a signed Envelope.
func Sign(msg Message, priv ed25519.PrivateKey) (*Envelope, error) {
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("envelope: refusing to sign invalid message: %w", err)
	}
	canonical, err := codec.Canonical(msg)
	if err != nil {
		return nil, fmt.Errorf("envelope: canonicalise: %w", err)
	}
	sig := ed25519.Sign(priv, canonical)
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("envelope: private key has no ed25519 public key")
	}
	return &Envelope{
		Message:         msg,
		SenderPubKeyB58: base58.Encode(pub),
		SignatureB58:    base58.Encode(sig),
	}, nil
}

// Verify is a pure function: true iff the signature matches the canonical
// encoding of env.Message under env.SenderPubKeyB58. It consults no state
// other than the envelope's own contents.
func Verify(env *Envelope) bool {
	if env == nil {
		return false
	}
	pub, err := base58.Decode(env.SenderPubKeyB58)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	sig, err := base58.Decode(env.SignatureB58)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	canonical, err := codec.Canonical(env.Message)
	if err != nil {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), canonical, sig)
}

// VerifyType verifies the envelope and additionally checks that its message
// carries the expected type tag, surfacing the combined check the session
// needs at every transition edge.
func VerifyType(env *Envelope, want Type) bool {
	if !Verify(env) {
		return false
	}
	return env.Message.Type == want
}

// Parse decodes raw bytes into a Message and validates its schema. It does
// not verify a signature — that is a separate, explicit step so that callers
// cannot accidentally trust an unverified message.
func Parse(raw []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return Message{}, fmt.Errorf("envelope: parse: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Marshal encodes the envelope for transport (not the canonical hashed form,
// just a convenience wire encoding; canonicalisation happens internally on
// sign/verify regardless of how bytes arrived over the wire).
func Marshal(env *Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// Unmarshal decodes an Envelope from transport bytes.
func Unmarshal(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("envelope: unmarshal: %w", err)
	}
	return &env, nil
}
