package apihttp

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	analytics "campus-energy/internal/analytics/application"
	energy "campus-energy/internal/energy/domain"
)

var weekStartLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"}

func (s *server) freshness(table energy.Table) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := s.deps.Freshness.Latest(r.Context(), table)
		if err != nil {
			s.writeError(w, r, fmt.Sprintf("Failed to retrieve %s date data.", table), err)
			return
		}
		writeJSON(w, http.StatusOK, f)
	}
}

// freshnessByName serves the freshness of the table named in the path.
func (s *server) freshnessByName(w http.ResponseWriter, r *http.Request) {
	table, err := energy.ParseTable(mux.Vars(r)["table"])
	if err != nil {
		s.writeError(w, r, "Unknown table.", err)
		return
	}
	s.freshness(table)(w, r)
}

// getEnergy answers 404 when every 30-day average is zero.
func (s *server) getEnergy(w http.ResponseWriter, r *http.Request) {
	avg, err := s.deps.Analytics.ThirtyDayTotals(r.Context())
	if err != nil {
		s.writeError(w, r, "Failed to retrieve energy summary.", err)
		return
	}
	if !avg.HasData() {
		writeMessage(w, http.StatusNotFound, "No energy data found for the last 30 days.")
		return
	}
	writeJSON(w, http.StatusOK, avg)
}

func (s *server) getBubbleChart(w http.ResponseWriter, r *http.Request) {
	points, err := s.deps.Analytics.FuelEfficiencySeries(r.Context())
	if err != nil {
		s.writeError(w, r, "Failed to retrieve fuel-efficiency data.", err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *server) getCombinedWeekly(w http.ResponseWriter, r *http.Request) {
	weeks, err := s.deps.Analytics.WeeklyCombined(r.Context())
	if err != nil {
		s.writeError(w, r, "Failed to retrieve combined weekly data", err)
		return
	}
	writeJSON(w, http.StatusOK, weeks)
}

func (s *server) getDailyWithinWeek(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("weekStart"))
	if raw == "" {
		writeMessage(w, http.StatusBadRequest, "Week start date is required")
		return
	}
	weekStart, ok := parseWeekStart(raw)
	if !ok {
		s.writeError(w, r, "Invalid week start date", fmt.Errorf("%w: %q", energy.ErrInvalidDate, raw))
		return
	}
	days, err := s.deps.Analytics.DailyWithinWeek(r.Context(), weekStart)
	if err != nil {
		s.writeError(w, r, "Failed to retrieve daily energy data", err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func parseWeekStart(raw string) (time.Time, bool) {
	for _, layout := range weekStartLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func (s *server) getBuildingSeries(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("buildingName")
	if name == "" {
		writeMessage(w, http.StatusBadRequest, "Building name is required.")
		return
	}
	series, err := s.deps.Analytics.BuildingSeries(r.Context(), name)
	if err != nil {
		s.writeError(w, r, "Failed to retrieve building data.", err)
		return
	}
	if len(series) == 0 {
		writeMessage(w, http.StatusNotFound, "No data found for this building.")
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// getTreeData keeps the list shape the dashboard expects.
func (s *server) getTreeData(w http.ResponseWriter, r *http.Request) {
	totals, err := s.deps.Analytics.LifetimeVsPeriod(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		s.writeError(w, r, "Failed to retrieve tree visualization data", err)
		return
	}
	writeJSON(w, http.StatusOK, []analytics.TreeTotals{totals})
}

func (s *server) getSolarTotals(w http.ResponseWriter, r *http.Request) {
	sites, err := s.deps.Analytics.SolarSiteTotals(r.Context())
	if err != nil {
		s.writeError(w, r, "Failed to retrieve solar totals.", err)
		return
	}
	writeJSON(w, http.StatusOK, sites)
}
