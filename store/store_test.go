// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package store

import (
	"errors"
	"testing"

	"github.com/strata-db/strata/common"
)

func TestNullStore_ReadsFindNothing(t *testing.T) {
	var s NullStore
	if _, exists, err := s.Get([]byte{1}); err != nil || exists {
		t.Errorf("null store must report every key as absent, got exists=%v err=%v", exists, err)
	}
	if entry, err := s.GetNext([]byte{1}); err != nil || entry != nil {
		t.Errorf("null store must have no next entry, got %v, %v", entry, err)
	}
	if entry, err := s.GetPrev(nil); err != nil || entry != nil {
		t.Errorf("null store must have no previous entry, got %v, %v", entry, err)
	}
}

func TestNullStore_WritesAreDiscarded(t *testing.T) {
	var s NullStore
	if err := s.Put([]byte{1}, []byte{2}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := s.Delete([]byte{1}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, exists, _ := s.Get([]byte{1}); exists {
		t.Errorf("write to a null store must not be observable")
	}
}

func TestUnknownStore_EveryOperationFails(t *testing.T) {
	var s UnknownStore
	if _, _, err := s.Get([]byte{1}); !errors.Is(err, common.ErrUnknownRegion) {
		t.Errorf("expected ErrUnknownRegion, got %v", err)
	}
	if _, err := s.GetNext([]byte{1}); !errors.Is(err, common.ErrUnknownRegion) {
		t.Errorf("expected ErrUnknownRegion, got %v", err)
	}
	if _, err := s.GetPrev(nil); !errors.Is(err, common.ErrUnknownRegion) {
		t.Errorf("expected ErrUnknownRegion, got %v", err)
	}
	if err := s.Put([]byte{1}, []byte{2}); !errors.Is(err, common.ErrUnknownRegion) {
		t.Errorf("expected ErrUnknownRegion, got %v", err)
	}
	if err := s.Delete([]byte{1}); !errors.Is(err, common.ErrUnknownRegion) {
		t.Errorf("expected ErrUnknownRegion, got %v", err)
	}
}
