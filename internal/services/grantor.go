package services

import (
	"context"
	"errors"

	"maffix/internal/datastore"
	"maffix/internal/models"
	"maffix/internal/pkg/caching"

	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type ServiceGrantor struct {
	container  *do.Injector
	postgresDB *bun.DB
	cache      caching.Cache
}

func NewServiceGrantor(container *do.Injector) (*ServiceGrantor, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	return &ServiceGrantor{container, postgresDB, cache}, nil
}

func (service *ServiceGrantor) ValidateAPIKey(apiKey string) (*models.Grantor, error) {
	ctx := context.Background()
	callback := func() (*models.Grantor, error) {
		return datastore.FindGrantorByAPIKey(ctx, service.postgresDB, apiKey)
	}

	grantor, err := caching.UseCache(ctx, service.cache, "grantor:"+apiKey, CACHE_TTL_5_MINS, callback)
	if err != nil {
		return nil, err
	}

	if grantor == nil {
		return nil, errors.New("wrong api key")
	}

	return grantor, nil
}
