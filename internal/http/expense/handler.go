package expense

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/lexledger/internal/attachment"
	"github.com/MrJamesThe3rd/lexledger/internal/expense"
	"github.com/MrJamesThe3rd/lexledger/internal/http/respond"
	"github.com/MrJamesThe3rd/lexledger/internal/linking"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

type Handler struct {
	svc         *expense.Service
	links       *linking.Manager
	attachments *attachment.Service
}

func NewHandler(svc *expense.Service, links *linking.Manager, attachments *attachment.Service) *Handler {
	return &Handler{svc: svc, links: links, attachments: attachments}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/balances", h.balances)
	r.Get("/summary", h.summary)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/restore", h.restore)
	r.Delete("/{id}/purge", h.purge)

	r.Get("/{id}/tags", h.listTags)
	r.Put("/{id}/tags", h.setTags)
	r.Post("/{id}/tags", h.attachTags)
	r.Delete("/{id}/tags/{tagID}", h.detachTag)

	r.Get("/{id}/attachments", h.listAttachments)
	r.Post("/{id}/attachments", h.linkAttachment)
	r.Delete("/{id}/attachments/{attachmentID}", h.unlinkAttachment)
}

type createExpenseRequest struct {
	Direction   expense.Direction `json:"direction"`
	Amount      decimal.Decimal   `json:"amount"`
	Date        string            `json:"date"`
	Category    string            `json:"category"`
	CaseID      *uuid.UUID        `json:"case_id,omitempty"`
	Description string            `json:"description"`
	Memo        string            `json:"memo"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	caller, err := tenant.FromContext(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req createExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	e, err := h.svc.Create(r.Context(), caller, expense.CreateParams{
		Direction:   req.Direction,
		Amount:      req.Amount,
		Date:        date,
		Category:    req.Category,
		CaseID:      req.CaseID,
		Description: req.Description,
		Memo:        req.Memo,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(e))
}

// parseFilter reads the list filter from the query string. Repeated tag
// parameters must all be present on an expense.
func parseFilter(r *http.Request) (expense.ListFilter, error) {
	q := r.URL.Query()
	filter := expense.ListFilter{}

	if s := q.Get("start_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return filter, fmt.Errorf("invalid start_date: %w", err)
		}

		filter.StartDate = new(t)
	}

	if s := q.Get("end_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return filter, fmt.Errorf("invalid end_date: %w", err)
		}

		filter.EndDate = new(t)
	}

	if s := q.Get("category"); s != "" {
		filter.Category = new(s)
	}

	if s := q.Get("case_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return filter, fmt.Errorf("invalid case_id: %w", err)
		}

		filter.CaseID = new(id)
	}

	if s := q.Get("direction"); s != "" {
		d := expense.Direction(s)
		if !d.Valid() {
			return filter, fmt.Errorf("invalid direction %q", s)
		}

		filter.Direction = new(d)
	}

	for _, s := range q["tag"] {
		id, err := uuid.Parse(s)
		if err != nil {
			return filter, fmt.Errorf("invalid tag: %w", err)
		}

		filter.TagIDs = append(filter.TagIDs, id)
	}

	return filter, nil
}

func parsePage(r *http.Request) (expense.Pageable, error) {
	q := r.URL.Query()
	page := expense.Pageable{}

	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return page, fmt.Errorf("invalid limit: %w", err)
		}

		page.Limit = n
	}

	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return page, fmt.Errorf("invalid offset: %w", err)
		}

		page.Offset = n
	}

	if s := q.Get("cursor"); s != "" {
		c, err := expense.DecodeCursor(s)
		if err != nil {
			return page, err
		}

		page.After = &c
	}

	return page, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	caller, err := tenant.FromContext(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	page, err := parsePage(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.svc.List(r.Context(), caller, filter, page)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toPageResponse(result))
}

func (h *Handler) balances(w http.ResponseWriter, r *http.Request) {
	caller, err := tenant.FromContext(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entries, err := h.svc.Balances(r.Context(), caller, filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]balanceResponse, len(entries))
	for i, entry := range entries {
		resp[i] = balanceResponse{Expense: toResponse(entry.Expense), Balance: entry.Balance}
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	caller, err := tenant.FromContext(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	totals, err := h.svc.Summary(r.Context(), caller, filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]categoryTotalResponse, len(totals))
	for i, t := range totals {
		resp[i] = categoryTotalResponse{Category: t.Category, Direction: t.Direction, Total: t.Total, Count: t.Count}
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	caller, id, err := respond.Target(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	e, err := h.svc.Get(r.Context(), caller, id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(e))
}

type updateExpenseRequest struct {
	Direction   *expense.Direction `json:"direction,omitempty"`
	Amount      *decimal.Decimal   `json:"amount,omitempty"`
	Date        *string            `json:"date,omitempty"`
	Category    *string            `json:"category,omitempty"`
	CaseID      *uuid.UUID         `json:"case_id,omitempty"`
	ClearCaseID bool               `json:"clear_case_id,omitempty"`
	Description *string            `json:"description,omitempty"`
	Memo        *string            `json:"memo,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	caller, id, err := respond.Target(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req updateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	params := expense.UpdateParams{
		Direction:   req.Direction,
		Amount:      req.Amount,
		Category:    req.Category,
		CaseID:      req.CaseID,
		ClearCaseID: req.ClearCaseID,
		Description: req.Description,
		Memo:        req.Memo,
	}

	if req.Date != nil {
		d, err := time.Parse(time.DateOnly, *req.Date)
		if err != nil {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}

		params.Date = &d
	}

	e, err := h.svc.Update(r.Context(), caller, id, params)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(e))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	caller, id, err := respond.Target(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), caller, id); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	caller, id, err := respond.Target(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	e, err := h.svc.Restore(r.Context(), caller, id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(e))
}

func (h *Handler) purge(w http.ResponseWriter, r *http.Request) {
	caller, id, err := respond.Target(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.svc.Purge(r.Context(), caller, id); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type tagChange func(ctx context.Context, caller tenant.Caller, expenseID uuid.UUID, tagIDs []uuid.UUID) error

type tagsRequest struct {
	TagIDs []uuid.UUID `json:"tag_ids"`
}

func (h *Handler) listTags(w http.ResponseWriter, r *http.Request) {
	caller, id, err := respond.Target(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	tags, err := h.links.Tags(r.Context(), caller, id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toTagResponseList(tags))
}

func (h *Handler) setTags(w http.ResponseWriter, r *http.Request) {
	h.changeTags(w, r, h.links.SetTags)
}

func (h *Handler) attachTags(w http.ResponseWriter, r *http.Request) {
	h.changeTags(w, r, func(ctx context.Context, caller tenant.Caller, id uuid.UUID, tagIDs []uuid.UUID) error {
		return h.links.Attach(ctx, caller, id, tagIDs...)
	})
}

func (h *Handler) changeTags(w http.ResponseWriter, r *http.Request, apply tagChange) {
	caller, id, err := respond.Target(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req tagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := apply(r.Context(), caller, id, req.TagIDs); err != nil {
		respond.Error(w, r, err)
		return
	}

	h.listTags(w, r)
}

func (h *Handler) detachTag(w http.ResponseWriter, r *http.Request) {
	caller, id, err := respond.Target(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	tagID, err := uuid.Parse(chi.URLParam(r, "tagID"))
	if err != nil {
		http.Error(w, "invalid tag id", http.StatusBadRequest)
		return
	}

	if err := h.links.Detach(r.Context(), caller, id, tagID); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listAttachments(w http.ResponseWriter, r *http.Request) {
	caller, id, err := respond.Target(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	list, err := h.attachments.ListForExpense(r.Context(), caller, id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]attachmentResponse, len(list))
	for i, a := range list {
		resp[i] = toAttachmentResponse(a)
	}

	respond.JSON(w, http.StatusOK, resp)
}

type linkAttachmentRequest struct {
	AttachmentID uuid.UUID `json:"attachment_id"`
	DisplayOrder int       `json:"display_order"`
	Description  string    `json:"description"`
}

func (h *Handler) linkAttachment(w http.ResponseWriter, r *http.Request) {
	caller, id, err := respond.Target(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req linkAttachmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	a, err := h.attachments.LinkToExpense(r.Context(), caller, attachment.LinkParams{
		AttachmentID: req.AttachmentID,
		ExpenseID:    id,
		DisplayOrder: req.DisplayOrder,
		Description:  req.Description,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toAttachmentResponse(a))
}

// unlinkAttachment removes one link. An attachment left without links
// returns to TEMPORARY with ?reusable=true and is deleted otherwise.
func (h *Handler) unlinkAttachment(w http.ResponseWriter, r *http.Request) {
	caller, id, err := respond.Target(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	attachmentID, err := uuid.Parse(chi.URLParam(r, "attachmentID"))
	if err != nil {
		http.Error(w, "invalid attachment id", http.StatusBadRequest)
		return
	}

	reusable, _ := strconv.ParseBool(r.URL.Query().Get("reusable"))

	if err := h.attachments.Unlink(r.Context(), caller, id, attachmentID, reusable); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
