/*
NAME
  history.go - index-addressed history rings backing the predictors.

DESCRIPTION
  See Readme.md

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package blackbox

// frameHistory is the 3-slot arena backing a frame type's history ring
// (spec.md §3, §9): slot 0 is where the currently-decoding frame is
// staged, slot 1 is the previous committed frame, slot 2 is the one before
// that. Slots are addressed by a rotating index rather than by pointer, so
// there is no self-referential state to copy or leak across sessions. It
// is instantiated once per predicted frame type (main I/P, slow S, GPS G);
// only main frames use all three slots, but the shape costs nothing extra
// for S and G.
type frameHistory struct {
	slots [3][MaxFields]int64
	// order[0] is the index of the staging slot, order[1] previous,
	// order[2] previous-previous.
	order [3]int
}

func newFrameHistory() *frameHistory {
	return &frameHistory{order: [3]int{0, 1, 2}}
}

func (h *frameHistory) staging() *[MaxFields]int64      { return &h.slots[h.order[0]] }
func (h *frameHistory) previous() *[MaxFields]int64     { return &h.slots[h.order[1]] }
func (h *frameHistory) prevPrevious() *[MaxFields]int64 { return &h.slots[h.order[2]] }

// commit rotates the ring: staging becomes previous, previous becomes
// previous-previous, and the old previous-previous slot becomes the new
// (about to be overwritten) staging slot.
func (h *frameHistory) commit() {
	h.order = [3]int{h.order[2], h.order[0], h.order[1]}
}

// reset zeroes all slots and restores identity ordering; used between
// sessions in the same file.
func (h *frameHistory) reset() {
	for i := range h.slots {
		h.slots[i] = [MaxFields]int64{}
	}
	h.order = [3]int{0, 1, 2}
}

// gpsHomeHistory is the 2-slot arena backing GPS-home frames: slot 0 is
// staging, slot 1 is the last committed home fix.
type gpsHomeHistory struct {
	slots [2][MaxFields]int64
	order [2]int
}

func newGPSHomeHistory() *gpsHomeHistory {
	return &gpsHomeHistory{order: [2]int{0, 1}}
}

func (h *gpsHomeHistory) staging() *[MaxFields]int64 { return &h.slots[h.order[0]] }
func (h *gpsHomeHistory) previous() *[MaxFields]int64 { return &h.slots[h.order[1]] }

func (h *gpsHomeHistory) commit() {
	h.order = [2]int{h.order[1], h.order[0]}
}

func (h *gpsHomeHistory) reset() {
	for i := range h.slots {
		h.slots[i] = [MaxFields]int64{}
	}
	h.order = [2]int{0, 1}
}
