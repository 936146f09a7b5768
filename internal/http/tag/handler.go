package tag

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/lexledger/internal/http/respond"
	"github.com/MrJamesThe3rd/lexledger/internal/tag"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

type Handler struct {
	svc *tag.Service
}

func NewHandler(svc *tag.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/most-used", h.mostUsed)
	r.Get("/suggest", h.suggest)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/restore", h.restore)
}

type tagResponse struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Color      string     `json:"color"`
	Scope      tag.Scope  `json:"scope"`
	OwnerID    *uuid.UUID `json:"owner_id,omitempty"`
	UsageCount int64      `json:"usage_count"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func toResponse(t *tag.Tag) tagResponse {
	return tagResponse{
		ID:         t.ID,
		Name:       t.Name,
		Color:      t.Color,
		Scope:      t.Scope,
		OwnerID:    t.OwnerID,
		UsageCount: t.UsageCount,
		LastUsedAt: t.LastUsedAt,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

func toResponseList(tags []*tag.Tag) []tagResponse {
	resp := make([]tagResponse, len(tags))
	for i, t := range tags {
		resp[i] = toResponse(t)
	}

	return resp
}

type createTagRequest struct {
	Name  string    `json:"name"`
	Color string    `json:"color"`
	Scope tag.Scope `json:"scope"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	caller, err := tenant.FromContext(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req createTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	t, err := h.svc.Create(r.Context(), caller, tag.CreateParams{Name: req.Name, Color: req.Color, Scope: req.Scope})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(t))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	caller, err := tenant.FromContext(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	tags, err := h.svc.List(r.Context(), caller)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(tags))
}

// limit reads ?limit; the service clamps missing or oversized values.
func limit(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}

func (h *Handler) mostUsed(w http.ResponseWriter, r *http.Request) {
	caller, err := tenant.FromContext(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	tags, err := h.svc.MostUsed(r.Context(), caller, limit(r))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(tags))
}

func (h *Handler) suggest(w http.ResponseWriter, r *http.Request) {
	caller, err := tenant.FromContext(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	tags, err := h.svc.Suggest(r.Context(), caller, r.URL.Query().Get("q"), limit(r))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(tags))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	caller, id, err := respond.Target(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	t, err := h.svc.Get(r.Context(), caller, id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(t))
}

type updateTagRequest struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	caller, id, err := respond.Target(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req updateTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	t, err := h.svc.Update(r.Context(), caller, id, tag.UpdateParams{Name: req.Name, Color: req.Color})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(t))
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

	t, err := h.svc.Restore(r.Context(), caller, id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(t))
}
