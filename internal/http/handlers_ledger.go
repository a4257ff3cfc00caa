package http

import (
	"net/http"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, total, err := s.ledger.Categories(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]categoryView, 0, len(cats))
	for _, c := range cats {
		views = append(views, categoryJSON(c))
	}
	NewJSONResponse().Body(map[string]any{
		"categories": views,
		"grandTotal": money(total),
	}).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cat, err := s.ledger.CreateCategory(r.Context(), userID(r), sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(categoryJSON(cat)).Write(w)
}

func (s *Server) handleSetTotal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req setTotalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	total, err := req.Amount.NonNegative()
	if err != nil {
		writeError(w, r, err)
		return
	}
	cat, err := s.ledger.SetTotal(r.Context(), userID(r), id, total)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(categoryJSON(cat)).Write(w)
}

func (s *Server) handleAdjustTotal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req adjustTotalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	delta, err := req.Delta.Signed()
	if err != nil {
		writeError(w, r, err)
		return
	}
	cat, err := s.ledger.AdjustTotal(r.Context(), userID(r), id, delta)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(categoryJSON(cat)).Write(w)
}

func (s *Server) handleResetTotals(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.ResetTotals(r.Context(), userID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleCategoryItems(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := s.ledger.CategoryItems(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"items": itemsJSON(items)}).Write(w)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.ledger.Items(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"items": itemsJSON(items)}).Write(w)
}

// handleCreateItem records a manual entry. Negative amounts are discount
// lines and are refused only when the total would go below zero.
func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := req.Amount.Signed()
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := s.ledger.AddItem(r.Context(), userID(r), req.Category, sanitizeInput(req.Name), amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(itemJSON(item)).Write(w)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.ledger.Budgets(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]budgetView, 0, len(budgets))
	for _, b := range budgets {
		views = append(views, budgetJSON(b))
	}
	NewJSONResponse().Body(map[string]any{"budgets": views}).Write(w)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req createBudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := req.Amount.Positive()
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.ledger.CreateBudget(r.Context(), userID(r), req.CategoryID, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(budgetJSON(b)).Write(w)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateBudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := req.Amount.NonNegative()
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.ledger.UpdateBudget(r.Context(), userID(r), id, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(budgetJSON(b)).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteBudget(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleBudgetProgress(w http.ResponseWriter, r *http.Request) {
	rows, err := s.budgets.Progress(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"budgets": progressJSON(rows)}).Write(w)
}

func (s *Server) handleBudgetAlerts(w http.ResponseWriter, r *http.Request) {
	rows, err := s.budgets.Alerts(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"alerts": progressJSON(rows)}).Write(w)
}
