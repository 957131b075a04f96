package api

import (
	"github.com/leandeep/marker-comb/app/database"
	"github.com/leandeep/marker-comb/app/marker"
	"github.com/leandeep/marker-comb/app/report"
	"github.com/leandeep/marker-comb/app/store"
	"github.com/leandeep/marker-comb/app/tasks"
)

type Handler struct {
	markerRepo   database.MarkerRepository
	resultRepo   database.ResultRepository
	accepted     *store.AcceptedStore
	quarantine   *store.QuarantineStore
	qualifier    *marker.Qualifier
	reportWriter *report.Writer
	scheduler    tasks.TaskSchedulerInterface
}
