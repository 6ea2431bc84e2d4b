package web

import (
	"net/http"

	"gymadmin/internal/application/projections"
)

func (s *server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	deps := projections.GetDashboardDeps{
		MemberStore:  s.stores.MemberStore,
		TrainerStore: s.stores.TrainerStore,
		Cache:        s.opts.Cache,
		Metrics:      s.opts.Metrics,
		TTL:          s.opts.DashboardTTL,
	}
	query := projections.GetDashboardQuery{Months: s.opts.TrendMonths}
	result, err := projections.QueryGetDashboard(r.Context(), query, deps, s.opts.Now())
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleListTrainers(w http.ResponseWriter, r *http.Request) {
	items, err := projections.QueryGetTrainerList(r.Context(), s.stores.TrainerStore)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trainers": items})
}
