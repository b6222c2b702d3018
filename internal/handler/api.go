package handler

import (
	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db          *gorm.DB
	experiments *service.ExperimentService
	checkIns    *service.CheckInService
	orgs        *service.OrgService
	system      *service.SystemSettingService
	summaries   service.SummaryGenerator
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB) *API {
	systemService := service.NewSystemSettingService(gdb)

	return &API{
		db:          gdb,
		experiments: service.NewExperimentService(gdb),
		checkIns:    service.NewCheckInService(gdb),
		orgs:        service.NewOrgService(gdb),
		system:      systemService,
		summaries:   service.NewAISummaryService(systemService),
	}
}

// SetSummaryGenerator swaps the AI summary backend, mainly for tests.
func (a *API) SetSummaryGenerator(generator service.SummaryGenerator) {
	a.summaries = generator
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}
