package services

import (
	"testing"

	"maffix/internal/models"
)

func TestGuaranteeForcesAtThreshold(t *testing.T) {
	state := &models.GuaranteeState{UserID: 1, PoolSlug: "launch-event"}

	// nine misses arm the counter, the tenth pull is forced
	for i := 0; i < 9; i++ {
		if ShouldForceGuarantee(state, 10) {
			t.Fatalf("should not force before threshold, counter=%d", state.Counter)
		}
		ApplyPullOutcome(state, models.RarityCommon, models.RaritySuperRare)
	}
	if ShouldForceGuarantee(state, 10) {
		t.Fatalf("counter=%d, threshold not reached yet", state.Counter)
	}

	ApplyPullOutcome(state, models.RarityCommon, models.RaritySuperRare)
	if !ShouldForceGuarantee(state, 10) {
		t.Fatalf("expected forced pull at counter=%d", state.Counter)
	}
}

func TestGuaranteeResetsOnFloorHit(t *testing.T) {
	state := &models.GuaranteeState{Counter: 10}

	ApplyPullOutcome(state, models.RaritySuperRare, models.RaritySuperRare)
	if state.Counter != 0 {
		t.Fatalf("counter should reset after floor hit; got %d", state.Counter)
	}

	// a natural win above the floor also resets
	state.Counter = 7
	ApplyPullOutcome(state, models.RarityUltraRare, models.RaritySuperRare)
	if state.Counter != 0 {
		t.Fatalf("counter should reset on any result >= floor; got %d", state.Counter)
	}
}

func TestGuaranteeDisabledThreshold(t *testing.T) {
	state := &models.GuaranteeState{Counter: 1000}
	if ShouldForceGuarantee(state, 0) {
		t.Fatal("threshold 0 must disable the guarantee")
	}
	if ShouldForceGuarantee(state, -1) {
		t.Fatal("negative threshold must disable the guarantee")
	}
}

func TestGuaranteeBatchSemantics(t *testing.T) {
	state := &models.GuaranteeState{Counter: 9}
	floor := models.RaritySuperRare

	// pull 1 of a batch: counter hits the threshold
	ApplyPullOutcome(state, models.RarityCommon, floor)
	if !ShouldForceGuarantee(state, 10) {
		t.Fatal("second pull of the batch should be forced")
	}

	// pull 2: forced, lands on the floor, counter re-arms from zero
	ApplyPullOutcome(state, models.RaritySuperRare, floor)
	if state.Counter != 0 {
		t.Fatalf("counter should be 0 after the forced hit; got %d", state.Counter)
	}
	if ShouldForceGuarantee(state, 10) {
		t.Fatal("pull after the forced hit must not be forced")
	}

	// remaining pulls count misses again
	for i := 0; i < 3; i++ {
		ApplyPullOutcome(state, models.RarityRare, floor)
	}
	if state.Counter != 3 {
		t.Fatalf("expected 3 misses recorded; got %d", state.Counter)
	}
}
