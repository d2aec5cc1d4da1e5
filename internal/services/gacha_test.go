package services

import (
	"errors"
	"math/rand"
	"testing"

	"maffix/internal/models"
)

func testPrizes() []*models.Prize {
	return []*models.Prize{
		{ID: 1, Name: "Photocard", Rarity: models.RarityCommon, Weight: 6400},
		{ID: 2, Name: "Voice Message", Rarity: models.RarityRare, Weight: 3000},
		{ID: 3, Name: "Video Call Slot", Rarity: models.RaritySuperRare, Weight: 550},
		{ID: 4, Name: "Signed Card", Rarity: models.RarityUltraRare, Weight: 50},
	}
}

func TestPrizeChoicesFiltering(t *testing.T) {
	prizes := testPrizes()
	prizes = append(prizes, &models.Prize{ID: 5, Rarity: models.RarityCommon, Weight: 0})
	prizes = append(prizes, &models.Prize{ID: 6, Rarity: models.RarityCommon, Weight: -10})

	choices := PrizeChoices(prizes, 0)
	if len(choices) != 4 {
		t.Fatalf("non-positive weights must be dropped; got %d choices", len(choices))
	}

	choices = PrizeChoices(prizes, models.RaritySuperRare)
	if len(choices) != 2 {
		t.Fatalf("floor must drop lower rarities; got %d choices", len(choices))
	}
	for _, choice := range choices {
		if choice.Item.Rarity < models.RaritySuperRare {
			t.Fatalf("choice %d below floor", choice.Item.ID)
		}
	}
}

func TestNewPrizeChooserExhausted(t *testing.T) {
	_, err := NewPrizeChooser(nil, 0)
	if !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("empty pool must report exhaustion; got %v", err)
	}

	prizes := []*models.Prize{
		{ID: 1, Rarity: models.RarityCommon, Weight: 0},
	}
	_, err = NewPrizeChooser(prizes, 0)
	if !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("all-zero weights must report exhaustion; got %v", err)
	}

	// floor above every rarity leaves nothing drawable
	_, err = NewPrizeChooser(testPrizes(), models.RarityUltraRare+1)
	if !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("unreachable floor must report exhaustion; got %v", err)
	}
}

func TestChooserSingleEntry(t *testing.T) {
	prizes := []*models.Prize{
		{ID: 7, Rarity: models.RarityCommon, Weight: 1},
	}
	chooser, err := NewPrizeChooser(prizes, 0)
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		if got := chooser.PickSource(rng); got.ID != 7 {
			t.Fatalf("single entry must always win; got %d", got.ID)
		}
	}
}

func TestChooserDeterministicWithSeed(t *testing.T) {
	a, err := NewPrizeChooser(testPrizes(), 0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewPrizeChooser(testPrizes(), 0)
	if err != nil {
		t.Fatal(err)
	}

	rngA := rand.New(rand.NewSource(42))
	rngB := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		if a.PickSource(rngA).ID != b.PickSource(rngB).ID {
			t.Fatalf("same seed must give the same sequence, diverged at %d", i)
		}
	}
}

func TestChooserStatApprox(t *testing.T) {
	prizes := []*models.Prize{
		{ID: 1, Rarity: models.RarityCommon, Weight: 1},
		{ID: 2, Rarity: models.RarityCommon, Weight: 99},
	}
	chooser, err := NewPrizeChooser(prizes, 0)
	if err != nil {
		t.Fatal(err)
	}

	const n = 100000
	rng := rand.New(rand.NewSource(42))
	hit := 0
	for i := 0; i < n; i++ {
		if chooser.PickSource(rng).ID == 1 {
			hit++
		}
	}

	freq := float64(hit) / float64(n)
	// should be around 0.01
	if diff := freq - 0.01; diff > 0.005 || diff < -0.005 {
		t.Fatalf("freq=%f not close to weight share 0.01", freq)
	}
}
