package services

import (
	"errors"
	"math/rand"

	"maffix/internal/models"

	"github.com/mroth/weightedrand/v2"
)

// errNoValidChoices is the library's unexported sentinel for "zero Choices
// with Weight >= 1", captured via the public API since weightedrand does not
// export it.
var errNoValidChoices = func() error {
	_, err := weightedrand.NewChooser[struct{}, int]()
	return err
}()

// ServiceGacha wraps a weighted chooser. Cumulative weights are integers all
// the way down, so interval membership never touches floating point.
type ServiceGacha[T any] struct {
	chooser *weightedrand.Chooser[T, int]
}

func NewServiceGacha[T any](choices []weightedrand.Choice[T, int]) (*ServiceGacha[T], error) {
	chooser, err := weightedrand.NewChooser(choices...)
	if err != nil {
		return nil, err
	}

	return &ServiceGacha[T]{chooser}, nil
}

func (service *ServiceGacha[T]) Pick() T {
	return service.chooser.Pick()
}

// PickSource draws with the caller's rand source; a seeded source makes the
// full pick sequence reproducible.
func (service *ServiceGacha[T]) PickSource(rs *rand.Rand) T {
	return service.chooser.PickSource(rs)
}

// PrizeChoices converts a pool snapshot into chooser choices, dropping
// non-positive weights and, when floor > 0, everything below the floor
// rarity.
func PrizeChoices(prizes []*models.Prize, floor models.Rarity) []weightedrand.Choice[*models.Prize, int] {
	choices := make([]weightedrand.Choice[*models.Prize, int], 0, len(prizes))
	for _, prize := range prizes {
		if prize.Weight <= 0 {
			continue
		}
		if floor > 0 && prize.Rarity < floor {
			continue
		}
		choices = append(choices, weightedrand.NewChoice(prize, prize.Weight))
	}

	return choices
}

// NewPrizeChooser builds a chooser over the drawable snapshot. A zero total
// weight surfaces as ErrPoolExhausted so draws fail cleanly.
func NewPrizeChooser(prizes []*models.Prize, floor models.Rarity) (*ServiceGacha[*models.Prize], error) {
	choices := PrizeChoices(prizes, floor)
	if len(choices) == 0 {
		return nil, ErrPoolExhausted
	}

	service, err := NewServiceGacha(choices)
	if err != nil {
		if errors.Is(err, errNoValidChoices) {
			return nil, ErrPoolExhausted
		}
		return nil, err
	}

	return service, nil
}
