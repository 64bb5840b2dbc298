package state

import (
	"errors"
	"fmt"

	"github.com/danmuck/g2ctl/internal/protocol"
)

var (
	ErrSlot            = errors.New("state: invalid slot")
	ErrArea            = errors.New("state: invalid area")
	ErrNoModule        = errors.New("state: no such module")
	ErrNoSection       = errors.New("state: section not loaded")
	ErrVariation       = errors.New("state: invalid variation")
	ErrParamIndex      = errors.New("state: invalid param index")
	ErrSlotMismatch    = errors.New("state: slot mismatch")
	ErrVersionMismatch = errors.New("state: version mismatch")
	ErrVoiceMode       = errors.New("state: invalid voice mode")
	ErrNotLoaded       = errors.New("state: performance settings not loaded")
)

// Slot is one of the four patch slots of a performance.
type Slot int

const (
	SlotA Slot = iota
	SlotB
	SlotC
	SlotD
)

// Slots lists A through D.
var Slots = []Slot{SlotA, SlotB, SlotC, SlotD}

// SlotFromIndex validates a 0-based slot index.
func SlotFromIndex(i int) (Slot, error) {
	if i < 0 || i >= len(Slots) {
		return 0, fmt.Errorf("%w: %d", ErrSlot, i)
	}
	return Slot(i), nil
}

func (s Slot) Index() int { return int(s) }

// ID is the slot byte used in responses.
func (s Slot) ID() int { return int(s) + protocol.SlotIDOffset }

// TestID reports whether id addresses this slot, in either the request
// (0..3) or response (8..11) numbering.
func (s Slot) TestID(id int) bool {
	return id == int(s) || id == s.ID()
}

func (s Slot) String() string {
	if s < SlotA || s > SlotD {
		return fmt.Sprintf("Slot(%d)", int(s))
	}
	return string(rune('A' + int(s)))
}

// AreaID selects a module area within a patch. The numeric value is the
// on-wire location.
type AreaID int

const (
	AreaFx AreaID = iota
	AreaVoice
	AreaSettings
)

// UserAreas are the areas holding user modules.
var UserAreas = []AreaID{AreaFx, AreaVoice}

// AreaFromIndex validates an on-wire location.
func AreaFromIndex(i int) (AreaID, error) {
	if i < int(AreaFx) || i > int(AreaSettings) {
		return 0, fmt.Errorf("%w: %d", ErrArea, i)
	}
	return AreaID(i), nil
}

func (a AreaID) String() string {
	switch a {
	case AreaFx:
		return "Fx"
	case AreaVoice:
		return "Voice"
	case AreaSettings:
		return "Settings"
	default:
		return fmt.Sprintf("Area(%d)", int(a))
	}
}
