package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"maffix/internal/datastore"
	"maffix/internal/models"
	"maffix/internal/pkg/caching"

	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type ServiceUser struct {
	container  *do.Injector
	postgresDB *bun.DB
	cache      caching.Cache
}

func NewServiceUser(container *do.Injector) (*ServiceUser, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	return &ServiceUser{container, postgresDB, cache}, nil
}

func (service *ServiceUser) FindOrCreateUser(ctx context.Context, userAuth *models.UserFromAuth) (*models.User, error) {
	if userAuth == nil {
		return nil, errors.New("userAuth is nil")
	}

	user, _ := service.FindUserByID(ctx, userAuth.ID)
	if user != nil {
		if user.Username != strings.ToLower(userAuth.Username) ||
			user.DisplayName != userAuth.DisplayName ||
			user.PhotoURL != userAuth.PhotoURL {
			user.Username = strings.ToLower(userAuth.Username)
			user.DisplayName = userAuth.DisplayName
			user.PhotoURL = userAuth.PhotoURL
			datastore.UpdateUserProfile(ctx, service.postgresDB, user)
			_ = service.cache.Delete(ctx, DBKeyUser(user.ID))
		}
		return user, nil
	}

	now := time.Now()
	newUser := &models.User{
		ID:          userAuth.ID,
		Username:    strings.ToLower(userAuth.Username),
		DisplayName: userAuth.DisplayName,
		PhotoURL:    userAuth.PhotoURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	log.Println("Create new user:", "user:", newUser.ID, "username:", newUser.Username)
	user, err := datastore.CreateUser(ctx, service.postgresDB, newUser)
	if err != nil {
		return nil, err
	}

	// every user owns exactly one balance row
	_, err = datastore.GetOrCreateBalance(ctx, service.postgresDB, user.ID)
	if err != nil {
		return user, err
	}

	user.IsNewUser = true
	return user, nil
}

func (service *ServiceUser) FindUserByID(ctx context.Context, userID int64) (*models.User, error) {
	callback := func() (*models.User, error) {
		return datastore.FindUserByID(ctx, service.postgresDB, userID)
	}
	return caching.UseCache(ctx, service.cache, DBKeyUser(userID), CACHE_TTL_5_MINS, callback)
}
