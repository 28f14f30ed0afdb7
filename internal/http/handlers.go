package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcarneiro/airbnb-organizer/internal/core"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"phase":  string(s.org.State().Phase),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.org.State())
}

// handleSignIn blocks until the identity provider answers, which for Google
// means the user finished the browser consent.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.signInTimeout)
	defer cancel()
	if err := s.org.SignIn(ctx); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.org.State())
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.org.SignOut(r.Context()); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.org.State())
}

func (s *Server) handleSetStore(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if err := s.org.SetStoreID(r.Context(), sanitizeInput(req.SpreadsheetID)); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.org.State())
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.org.Reload(r.Context()); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.org.State())
}

func (s *Server) handleListMonths(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, mapViews(s.org.Summaries(), newSummaryView))
}

func (s *Server) handleGetMonth(w http.ResponseWriter, r *http.Request) {
	sum, err := s.org.Summary(mux.Vars(r)["month"])
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryView(sum))
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	s.setPaid(w, r, s.org.MarkPaid)
}

func (s *Server) handleMarkUnpaid(w http.ResponseWriter, r *http.Request) {
	s.setPaid(w, r, s.org.MarkUnpaid)
}

func (s *Server) setPaid(w http.ResponseWriter, r *http.Request, set func(context.Context, string) (bool, error)) {
	month := mux.Vars(r)["month"]
	changed, err := set(r.Context(), month)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	key, _ := core.ParseMonthKey(month)
	writeJSON(w, http.StatusOK, map[string]any{"month": key.String(), "changed": changed})
}

func (s *Server) handleOccupancy(w http.ResponseWriter, r *http.Request) {
	month := mux.Vars(r)["month"]
	pct, err := s.org.Occupancy(month)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	key, _ := core.ParseMonthKey(month)
	writeJSON(w, http.StatusOK, map[string]any{"month": key.String(), "occupancy_percent": pct})
}

func (s *Server) handleYearlyProfit(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, mapViews(s.org.YearlyProfit(), newYearSeriesView))
}

func (s *Server) handleListReservations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, mapViews(s.org.Reservations(), newReservationView))
}

func (s *Server) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	var req reservationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	checkIn, nights, total, err := req.parse()
	if err != nil {
		writeErr(w, r, err)
		return
	}
	res, err := s.org.AddReservation(checkIn, nights, total)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newReservationView(res))
}

func (s *Server) handleUpdateReservation(w http.ResponseWriter, r *http.Request) {
	var req reservationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	checkIn, nights, total, err := req.parse()
	if err != nil {
		writeErr(w, r, err)
		return
	}
	res, err := s.org.UpdateReservation(mux.Vars(r)["id"], checkIn, nights, total)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newReservationView(res))
}

func (s *Server) handleDeleteReservation(w http.ResponseWriter, r *http.Request) {
	if err := s.org.DeleteReservation(mux.Vars(r)["id"]); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, mapViews(s.org.Expenses(), newExpenseView))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	e, err := req.expense()
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if e, err = s.org.AddExpense(e); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newExpenseView(e))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	e, err := req.expense()
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if e, err = s.org.UpdateExpense(mux.Vars(r)["id"], e); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseView(e))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.org.DeleteExpense(mux.Vars(r)["id"]); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newSettingsView(s.org.Settings()))
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if err := s.org.UpdateSettings(req.settings()); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSettingsView(s.org.Settings()))
}
