package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/digienergy/simulation/pkg/log"
	"github.com/digienergy/simulation/pkg/schedule"
	"github.com/digienergy/simulation/pkg/storage"
	"github.com/digienergy/simulation/pkg/types"
)

// parseMonthQuery reads the meter, year and month query parameters. The meter
// defaults to the configured one.
func (s *Server) parseMonthQuery(r *http.Request) (string, int, time.Month, error) {
	meterNo := r.URL.Query().Get("meter")
	if meterNo == "" {
		meterNo = s.cfg.MeterNo
	}

	yearStr := r.URL.Query().Get("year")
	monthStr := r.URL.Query().Get("month")
	if yearStr == "" || monthStr == "" {
		return "", 0, 0, fmt.Errorf("year and month are required")
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid year: %w", err)
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid month: %w", err)
	}
	if month < 1 || month > 12 {
		return "", 0, 0, fmt.Errorf("month must be 1-12, got %d", month)
	}
	return meterNo, year, time.Month(month), nil
}

// handleSimulate runs the engine for the requested month and persists the
// resulting series, statistics and statement. The records themselves are
// fetched via /api/series.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, year, month, err := s.parseMonthQuery(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.engine.RunMonth(ctx, year, month)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "simulation failed", slog.Int("year", year), slog.Int("month", int(month)), slog.Any("error", err))
		writeJSONError(w, "simulation failed", http.StatusInternalServerError)
		return
	}

	if err := s.storage.UpsertIntervals(ctx, res.Records); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to store intervals", slog.Any("error", err))
		writeJSONError(w, "failed to store intervals", http.StatusInternalServerError)
		return
	}
	if err := s.storage.UpsertMonthlyStats(ctx, res.Stats); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to store stats", slog.Any("error", err))
		writeJSONError(w, "failed to store stats", http.StatusInternalServerError)
		return
	}
	if err := s.storage.UpsertStatement(ctx, res.Statement); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to store statement", slog.Any("error", err))
		writeJSONError(w, "failed to store statement", http.StatusInternalServerError)
		return
	}

	writeJSON(w, struct {
		Stats     types.MonthlyStats `json:"stats"`
		Statement types.Statement    `json:"statement"`
	}{Stats: res.Stats, Statement: res.Statement})
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	meterNo, year, month, err := s.parseMonthQuery(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := s.storage.GetIntervals(ctx, meterNo, year, month)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSONError(w, "series not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get intervals", slog.String("meterNo", meterNo), slog.Any("error", err))
		writeJSONError(w, "failed to get intervals", http.StatusInternalServerError)
		return
	}
	writeJSON(w, records)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	meterNo, year, month, err := s.parseMonthQuery(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	stats, err := s.storage.GetMonthlyStats(ctx, meterNo, year, month)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSONError(w, "stats not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get stats", slog.String("meterNo", meterNo), slog.Any("error", err))
		writeJSONError(w, "failed to get stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}

func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	meterNo, year, month, err := s.parseMonthQuery(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	statement, err := s.storage.GetStatement(ctx, meterNo, year, month)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSONError(w, "statement not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get statement", slog.String("meterNo", meterNo), slog.Any("error", err))
		writeJSONError(w, "failed to get statement", http.StatusInternalServerError)
		return
	}
	writeJSON(w, statement)
}

// chartData is one day of the series shaped for plotting.
type chartData struct {
	MeterNo  string                 `json:"meterNo"`
	Date     string                 `json:"date"`
	Times    []string               `json:"times"`
	DemandKW []float64              `json:"demandKW"`
	Periods  []types.CapacityPeriod `json:"periods"`
}

// handleChart returns a single day of the stored series in a columnar shape.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	meterNo := r.URL.Query().Get("meter")
	if meterNo == "" {
		meterNo = s.cfg.MeterNo
	}
	date := r.URL.Query().Get("date")
	year, month, _, err := schedule.ParseDate(date)
	if err != nil {
		writeJSONError(w, "invalid date: "+date, http.StatusBadRequest)
		return
	}

	records, err := s.storage.GetIntervals(ctx, meterNo, year, month)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSONError(w, "series not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get intervals", slog.String("meterNo", meterNo), slog.Any("error", err))
		writeJSONError(w, "failed to get intervals", http.StatusInternalServerError)
		return
	}

	data := chartData{MeterNo: meterNo, Date: date}
	for _, rec := range records {
		if rec.Date != date {
			continue
		}
		data.Times = append(data.Times, rec.Time)
		data.DemandKW = append(data.DemandKW, rec.DemandKW)
		data.Periods = append(data.Periods, rec.CapacityPeriod)
	}
	if len(data.Times) == 0 {
		writeJSONError(w, "no data for "+date, http.StatusNotFound)
		return
	}
	writeJSON(w, data)
}
