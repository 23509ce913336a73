// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"bytes"
	"testing"
)

func TestKeccak256_KnownAnswers(t *testing.T) {
	tests := map[string]string{
		"":      "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		"hello": "1c8aff950685c2ed4bc3174f3472287b56d9517b9c948127319a09a7a36deac8",
	}
	for input, want := range tests {
		if got := Keccak256([]byte(input)).String(); got != want {
			t.Errorf("keccak256(%q) = %s, wanted %s", input, got, want)
		}
	}
}

func TestKeccak256_IsReproducible(t *testing.T) {
	// Exercises hasher reuse through the pool.
	first := Keccak256([]byte("data"))
	for i := 0; i < 100; i++ {
		if got := Keccak256([]byte("data")); got != first {
			t.Fatalf("digest changed on repetition: %s vs %s", got, first)
		}
	}
}

func TestHash_ConversionRoundTrip(t *testing.T) {
	data := make([]byte, HashSize)
	for i := range data {
		data[i] = byte(i)
	}
	h := HashFromBytes(data)
	if !bytes.Equal(h.ToBytes(), data) {
		t.Errorf("conversion does not round trip")
	}
	if h.IsZero() {
		t.Errorf("non-zero hash reported as zero")
	}
	if !(Hash{}).IsZero() {
		t.Errorf("zero hash not reported as zero")
	}
	if short := HashFromBytes([]byte{1}); short[0] != 1 || short[1] != 0 {
		t.Errorf("short input must be zero padded, got %s", short)
	}
}
