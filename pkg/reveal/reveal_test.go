// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reveal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifyRevealRoundTrip(t *testing.T) {
	payload := "aGVsbG8td29ybGQ="
	nonce := "bm9uY2UtMTIz"
	hash := ComputeCommitHash(payload, nonce)
	require.True(t, VerifyReveal(hash, payload, nonce))
}

func TestVerifyRevealIsCaseInsensitive(t *testing.T) {
	payload := "cGF5bG9hZA=="
	nonce := "bm9uY2U="
	hash := ComputeCommitHash(payload, nonce)
	require.True(t, VerifyReveal(strings.ToUpper(hash), payload, nonce))
}

func TestVerifyRevealFailsOnBitFlip(t *testing.T) {
	payload := "cGF5bG9hZA=="
	nonce := "bm9uY2U="
	hash := ComputeCommitHash(payload, nonce)

	require.False(t, VerifyReveal(hash, "cGF5bG9hZB==", nonce))
	require.False(t, VerifyReveal(hash, payload, "bm9uY2V4"))

	flipped := []byte(hash)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}
	require.False(t, VerifyReveal(string(flipped), payload, nonce))
}

func TestComputeCommitHashOrderMatters(t *testing.T) {
	require.NotEqual(t, ComputeCommitHash("a", "b"), ComputeCommitHash("b", "a"))
}
