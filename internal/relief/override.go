package relief

import (
	"errors"

	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/model"
)

// ErrInvalidTransition is returned when a caller attempts an override
// transition the state machine does not allow. This indicates a defect in
// the calling code, not bad input data.
var ErrInvalidTransition = errors.New("invalid claim transition")

// OverrideState is the per-item position in the claim confirmation flow.
type OverrideState string

const (
	StateExcluded            OverrideState = "excluded"
	StatePendingConfirmation OverrideState = "pending_confirmation"
	StateClaimable           OverrideState = "claimable"
)

// Override gates the transition of a line item from excluded to claimable.
// Granting a claim requires an explicit confirmation step; removing one is
// always immediate. The asymmetry is the point: over-claiming has regulatory
// consequences, under-claiming does not, so retreat stays easy and advance
// stays deliberate.
type Override struct {
	state  OverrideState
	tag    model.Category
	reason string
}

// NewOverride starts a tracker positioned on the item's current claim state.
func NewOverride(item model.LineItem) *Override {
	state := StateExcluded
	if item.Claim.Claimable {
		state = StateClaimable
	}
	return &Override{state: state}
}

// State reports the current position.
func (o *Override) State() OverrideState { return o.state }

// Reason returns the typically-ineligible reason captured when the claim was
// requested, or "" when none applied. The UI must show it alongside the
// confirmation prompt.
func (o *Override) Reason() string { return o.reason }

// RequestClaim moves an excluded item to pending confirmation, capturing the
// typicality reason for the given name and tag. The item itself is not
// touched until Confirm.
func (o *Override) RequestClaim(itemName string, tag model.Category) error {
	if o.state != StateExcluded {
		return ErrInvalidTransition
	}
	o.state = StatePendingConfirmation
	o.tag = tag
	o.reason = IsTypicallyIneligible(itemName, tag)
	return nil
}

// Confirm completes a pending claim: the item becomes claimable under the
// requested tag with autoAssigned false, since the user explicitly
// confirmed.
func (o *Override) Confirm(item *model.LineItem) error {
	if o.state != StatePendingConfirmation {
		return ErrInvalidTransition
	}
	item.Claim.Claim(o.tag, false)
	o.state = StateClaimable
	return nil
}

// Cancel abandons a pending claim. The item stays excluded and untouched.
func (o *Override) Cancel() error {
	if o.state != StatePendingConfirmation {
		return ErrInvalidTransition
	}
	o.state = StateExcluded
	o.tag = ""
	o.reason = ""
	return nil
}

// RemoveClaim retreats a claimable item to excluded immediately, clearing
// tag and autoAssigned in the same transition. No confirmation required.
func (o *Override) RemoveClaim(item *model.LineItem) error {
	if o.state != StateClaimable {
		return ErrInvalidTransition
	}
	item.Claim.ClearClaim()
	o.state = StateExcluded
	o.tag = ""
	o.reason = ""
	return nil
}
