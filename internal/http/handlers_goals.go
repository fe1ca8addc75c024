package http

import (
	"fmt"
	"net/http"
	"strings"

	"saldo/internal/core"
	applog "saldo/internal/log"
	"saldo/internal/ports"
)

// handleListGoals reports goal progress as of today. Goals come from the
// dashboard so they share its cache.
func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	d, ok := s.loadDashboard(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"goals": toGoalsJSON(d.Goals)})
}

// handleCreateGoal takes name, target and an optional deadline (YYYY-MM-DD).
func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	if s.goals == nil {
		writeError(w, statusFor(ports.ErrReadOnly), "backend cannot store goals")
		return
	}
	ctx := r.Context()

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	cents, err := core.ParseDecimalToCents(p.Get("target"))
	if err != nil {
		writeError(w, statusFor(err), "target: "+err.Error())
		return
	}
	var deadline *core.Date
	if v := p.Get("deadline"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("%v: %v", errBadParam, err))
			return
		}
		deadline = &d
	}

	g, err := s.goals.Create(ctx, p.Get("name"), core.Money{Cents: cents}, deadline)
	if err != nil {
		s.writeGoalError(w, r, "Goal create failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, goalBody(g))
}

// handleContributeGoal takes a signed amount; negative withdraws.
func (s *Server) handleContributeGoal(w http.ResponseWriter, r *http.Request) {
	if s.goals == nil {
		writeError(w, statusFor(ports.ErrReadOnly), "backend cannot store goals")
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	amount, err := parseSignedAmount(p.Get("amount"))
	if err != nil {
		writeError(w, statusFor(err), "amount: "+err.Error())
		return
	}

	g, err := s.goals.Contribute(r.Context(), strings.TrimSpace(r.PathValue("id")), amount)
	if err != nil {
		s.writeGoalError(w, r, "Goal contribution failed", err)
		return
	}
	writeJSON(w, http.StatusOK, goalBody(g))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if s.goals == nil {
		writeError(w, statusFor(ports.ErrReadOnly), "backend cannot store goals")
		return
	}
	if err := s.goals.Delete(r.Context(), strings.TrimSpace(r.PathValue("id"))); err != nil {
		s.writeGoalError(w, r, "Goal delete failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeGoalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), msg, applog.FieldError, err)
		writeError(w, status, "failed to save goal")
		return
	}
	writeError(w, status, err.Error())
}

func parseSignedAmount(s string) (core.Money, error) {
	s = strings.TrimSpace(s)
	sign := int64(1)
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = s[1:]
	}
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: sign * cents}, nil
}

type goalRecordJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Target    moneyJSON `json:"target"`
	Saved     moneyJSON `json:"saved"`
	StartDate string    `json:"start_date"`
	Deadline  string    `json:"deadline,omitempty"`
}

func goalBody(g core.Goal) goalRecordJSON {
	out := goalRecordJSON{
		ID:        g.ID,
		Name:      g.Name,
		Target:    money(g.Target),
		Saved:     money(g.Saved),
		StartDate: g.StartDate.String(),
	}
	if g.Deadline != nil {
		out.Deadline = g.Deadline.String()
	}
	return out
}
