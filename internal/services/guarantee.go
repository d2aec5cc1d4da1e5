package services

import (
	"maffix/internal/models"
)

// ShouldForceGuarantee reports whether the next pull must be restricted to
// the floor rarity or above. Threshold <= 0 disables the guarantee.
func ShouldForceGuarantee(state *models.GuaranteeState, threshold int) bool {
	if threshold <= 0 {
		return false
	}

	return state.Counter >= threshold
}

// ApplyPullOutcome advances the pity counter after one pull: a result at or
// above the floor resets it, anything else counts one more miss. Called once
// per pull inside a batch, so a 10-pull can both trigger and re-arm.
func ApplyPullOutcome(state *models.GuaranteeState, result models.Rarity, floor models.Rarity) {
	if result >= floor {
		state.Counter = 0
		return
	}

	state.Counter++
}
