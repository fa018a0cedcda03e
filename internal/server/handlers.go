package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/airscope/coverage-cli/internal/model"
	"github.com/airscope/coverage-cli/internal/spatial"
	"github.com/airscope/coverage-cli/pkg/geocode"
)

const (
	defaultNearestN  = 10
	defaultMapPoints = 1000
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stored, err := s.store.CountResults(r.Context())
	if err != nil {
		zap.L().Error("server: count stored results", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results_ready":  s.results.Ready(),
		"result_rows":    s.results.RowCount(),
		"eligible_count": s.results.EligibleCount(),
		"input_ready":    s.inputs.Ready(),
		"input_rows":     s.inputs.RowCount(),
		"stored_results": stored,
	})
}

func (s *Server) handleNearestEligible(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := s.resolvePoint(w, r)
	if !ok {
		return
	}
	n, ok := queryInt(w, r, "n", defaultNearestN)
	if !ok {
		return
	}

	s.ensureResultsLoaded()

	results, err := s.results.NearestEligible(lat, lon, n)
	if err != nil {
		if eris.Is(err, spatial.ErrNegativeK) {
			writeError(w, http.StatusBadRequest, "n must be >= 0")
			return
		}
		zap.L().Error("server: nearest eligible", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   map[string]float64{"lat": lat, "lon": lon},
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleNearest(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := s.resolvePoint(w, r)
	if !ok {
		return
	}
	n, ok := queryInt(w, r, "n", defaultNearestN)
	if !ok {
		return
	}

	s.ensureInputsLoaded()

	points, err := s.inputs.Nearest(lat, lon, n)
	if err != nil {
		if eris.Is(err, spatial.ErrNegativeK) {
			writeError(w, http.StatusBadRequest, "n must be >= 0")
			return
		}
		zap.L().Error("server: nearest", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":  map[string]float64{"lat": lat, "lon": lon},
		"count":  len(points),
		"points": points,
	})
}

func (s *Server) handleMapData(w http.ResponseWriter, r *http.Request) {
	maxPoints, ok := queryInt(w, r, "max_points", defaultMapPoints)
	if !ok {
		return
	}

	s.ensureResultsLoaded()

	rows := s.results.Rows(maxPoints)
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(rows),
		"points": rows,
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.results.Load(s.cfg.Index.ResultsCSV); err != nil {
		zap.L().Error("server: reload results", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "results reload failed")
		return
	}
	if err := s.inputs.Load(s.cfg.Index.InputCSV); err != nil {
		zap.L().Error("server: reload inputs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "input reload failed")
		return
	}

	zap.L().Info("server: indexes reloaded",
		zap.Int("result_rows", s.results.RowCount()),
		zap.Int("input_rows", s.inputs.RowCount()),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"result_rows": s.results.RowCount(),
		"input_rows":  s.inputs.RowCount(),
	})
}

func (s *Server) handleSaveResult(w http.ResponseWriter, r *http.Request) {
	var row model.ResultRow
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(row.Address) == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	if err := s.store.SaveResult(r.Context(), row); err != nil {
		zap.L().Error("server: save result", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "save failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"status":  "saved",
		"address": row.Address,
	})
}

func (s *Server) handleFreshResult(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	ttl := time.Duration(s.cfg.Store.ResultTTLHours) * time.Hour
	row, err := s.store.FreshResult(r.Context(), address, ttl)
	if err != nil {
		zap.L().Error("server: fresh result", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if row == nil {
		writeError(w, http.StatusNotFound, "no fresh result for address")
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// resolvePoint extracts the query point from lat/lon parameters or, failing
// that, geocodes the address parameter. It writes the error response itself
// and reports success through ok.
func (s *Server) resolvePoint(w http.ResponseWriter, r *http.Request) (lat, lon float64, ok bool) {
	q := r.URL.Query()
	latStr, lonStr := q.Get("lat"), q.Get("lon")

	if latStr != "" || lonStr != "" {
		parsedLat, latErr := strconv.ParseFloat(latStr, 64)
		parsedLon, lonErr := strconv.ParseFloat(lonStr, 64)
		if latErr != nil || lonErr != nil {
			writeError(w, http.StatusBadRequest, "lat and lon must both be valid numbers")
			return 0, 0, false
		}
		return parsedLat, parsedLon, true
	}

	address := strings.TrimSpace(q.Get("address"))
	if address == "" {
		writeError(w, http.StatusBadRequest, "provide lat and lon, or an address")
		return 0, 0, false
	}

	pt, err := s.geocoder.Geocode(r.Context(), address)
	if err != nil {
		if eris.Is(err, geocode.ErrNoMatch) || eris.Is(err, geocode.ErrDisabled) {
			writeError(w, http.StatusUnprocessableEntity, "address could not be geocoded")
			return 0, 0, false
		}
		zap.L().Error("server: geocode", zap.String("address", address), zap.Error(err))
		writeError(w, http.StatusBadGateway, "geocoding failed")
		return 0, 0, false
	}
	return pt.Lat, pt.Lon, true
}

// queryInt parses an optional integer query parameter. It writes a 400 and
// reports ok=false on a malformed value; negative values pass through so the
// index can reject them.
func queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return v, true
}

// ensureResultsLoaded lazily loads the results index on first use so the
// server answers queries started before an explicit reload.
func (s *Server) ensureResultsLoaded() {
	if s.results.Ready() {
		return
	}
	if err := s.results.Load(s.cfg.Index.ResultsCSV); err != nil {
		zap.L().Warn("server: lazy results load failed", zap.Error(err))
	}
}

func (s *Server) ensureInputsLoaded() {
	if s.inputs.Ready() {
		return
	}
	if err := s.inputs.Load(s.cfg.Index.InputCSV); err != nil {
		zap.L().Warn("server: lazy input load failed", zap.Error(err))
	}
}
