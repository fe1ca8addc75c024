package http

import (
	"net/http"

	"saldo/internal/core"
	applog "saldo/internal/log"
	"saldo/internal/services"
)

// loadDashboard resolves ?offset and ?points and fetches the dashboard,
// writing the error response itself on failure.
func (s *Server) loadDashboard(w http.ResponseWriter, r *http.Request) (services.Dashboard, bool) {
	offset, err := parseOffset(r)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return services.Dashboard{}, false
	}
	points, err := parseIntParam(r.URL.Query(), "points", 0)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return services.Dashboard{}, false
	}

	var d services.Dashboard
	if points > 0 {
		d, err = s.dashboard.GetWithPoints(r.Context(), offset, points)
	} else {
		d, err = s.dashboard.Get(r.Context(), offset)
	}
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Dashboard computation failed",
				applog.FieldError, err, applog.FieldOffset, offset)
			writeError(w, status, "failed to compute dashboard")
		} else {
			writeError(w, status, err.Error())
		}
		return services.Dashboard{}, false
	}
	return d, true
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, ok := s.loadDashboard(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toDashboardJSON(d))
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	d, ok := s.loadDashboard(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"window": toWindowJSON(d.Window),
		"points": toTimelineJSON(d.Timeline),
	})
}

func (s *Server) handleSegments(w http.ResponseWriter, r *http.Request) {
	flow, err := parseFlowParam(r)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	d, ok := s.loadDashboard(w, r)
	if !ok {
		return
	}
	segs := d.ExpenseSegments
	if flow == core.FlowIncome {
		segs = d.IncomeSegments
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"window":   toWindowJSON(d.Window),
		"flow":     flow.String(),
		"segments": toSegmentsJSON(segs),
	})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	d, ok := s.loadDashboard(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"window":     toWindowJSON(d.Window),
		"comparison": toComparisonJSON(d.Comparison),
		"insights":   toInsightsJSON(d.Insights),
	})
}
