// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package snapshot

// Filter is one snapshot policy. A snapshot is created at a height if any
// configured filter asks for it, and retained as long as any filter still
// wants it.
type Filter interface {
	// ShouldCreate reports whether a snapshot is wanted at this height.
	ShouldCreate(height uint64) bool
	// ShouldKeep reports whether a snapshot taken at ssHeight is still
	// wanted when the store has advanced to curHeight.
	ShouldKeep(ssHeight, curHeight uint64) bool
}

// IntervalFilter snapshots every Interval heights and retains the most
// recent Limit of them.
type IntervalFilter struct {
	Interval uint64
	Limit    uint64
}

func (f IntervalFilter) ShouldCreate(height uint64) bool {
	return f.Interval > 0 && height%f.Interval == 0
}

func (f IntervalFilter) ShouldKeep(ssHeight, curHeight uint64) bool {
	if f.Interval == 0 || ssHeight%f.Interval != 0 {
		return false
	}
	return curHeight-ssHeight < f.Interval*f.Limit
}

// HeightFilter pins a snapshot at one specific height, optionally only
// until the store reaches the KeepUntil height. A zero KeepUntil keeps it
// forever.
type HeightFilter struct {
	Height    uint64
	KeepUntil uint64
}

func (f HeightFilter) ShouldCreate(height uint64) bool {
	return height == f.Height
}

func (f HeightFilter) ShouldKeep(ssHeight, curHeight uint64) bool {
	if ssHeight != f.Height {
		return false
	}
	return f.KeepUntil == 0 || curHeight < f.KeepUntil
}
