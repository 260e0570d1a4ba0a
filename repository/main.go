package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/tnqbao/gau-asset-service/infra"
)

var ErrNotFound = errors.New("record not found")

type Repository struct {
	AssetRepo    *AssetRepository
	UserRepo     *UserRepository
	ActivityRepo ActivityRepository
}

var repository *Repository

func InitRepository(infra *infra.Infra) *Repository {
	if repository != nil {
		return repository
	}
	if infra.Postgres == nil || infra.Postgres.DB == nil {
		panic("database connection is nil")
	}

	var activity ActivityRepository
	if infra.Mongo != nil {
		activity = NewActivityMongoRepository(infra.Mongo.Activity)
	} else {
		activity = NewActivityPostgresRepository(infra.Postgres.DB)
	}

	repository = &Repository{
		AssetRepo:    NewAssetRepository(infra.Postgres.DB),
		UserRepo:     NewUserRepository(infra.Postgres.DB),
		ActivityRepo: activity,
	}
	return repository
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
