package slot

import "errors"

var (
	errNotAcceptingInterests = errors.New("slot not accepting interests in current state")
	errPacketNumberConflict  = errors.New("interest name conflicts with slot's bound packet number")
	errSegmentNotPending     = errors.New("segment not in Pending state")
	errWrongState            = errors.New("slot not in New or Assembling state")
	errNothingPending        = errors.New("no segment is Pending")
	errAlreadyLocked         = errors.New("slot already locked")
	errNotLocked             = errors.New("slot not locked")
	errCannotResetLocked     = errors.New("cannot reset a locked slot")
)
