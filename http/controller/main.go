package controller

import (
	"github.com/tnqbao/gau-file-hub/config"
	"github.com/tnqbao/gau-file-hub/infra"
	"github.com/tnqbao/gau-file-hub/repository"
	"github.com/tnqbao/gau-file-hub/service"
)

type Controller struct {
	Config     *config.Config
	Infra      *infra.Infra
	Repository *repository.Repository
	Registry   *service.FileRegistry
	Searcher   *service.SearchService
	Stats      *service.StatsService
}

func NewController(config *config.Config, infra *infra.Infra, repo *repository.Repository) *Controller {
	if repo == nil {
		panic("Failed to initialize Repository")
	}

	db := infra.Postgres.DB
	ledger := service.NewQuotaLedger(config.EnvConfig.Storage.QuotaPerUser)
	registry := service.NewFileRegistry(
		db,
		infra.Minio,
		infra.Produce.IndexService,
		ledger,
		infra.Logger,
		config.EnvConfig.Storage.MaxFileSize,
	)

	return &Controller{
		Config:     config,
		Infra:      infra,
		Repository: repo,
		Registry:   registry,
		Searcher:   service.NewSearchService(db),
		Stats:      service.NewStatsService(db, config.EnvConfig.Storage.QuotaPerUser),
	}
}
