package attachment

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/lexledger/internal/attachment"
	"github.com/MrJamesThe3rd/lexledger/internal/http/respond"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

// Handler manages attachment metadata. File bytes live in object storage;
// clients register an upload here after writing it to StoragePath.
type Handler struct {
	svc *attachment.Service
}

func NewHandler(svc *attachment.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.upload)
	r.Get("/orphaned", h.orphaned)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/failed", h.markFailed)
}

type attachmentResponse struct {
	ID            uuid.UUID         `json:"id"`
	FileName      string            `json:"file_name"`
	OriginalName  string            `json:"original_name"`
	FileSize      int64             `json:"file_size"`
	MimeType      string            `json:"mime_type"`
	StoragePath   string            `json:"storage_path"`
	Status        attachment.Status `json:"status"`
	UploadedAt    time.Time         `json:"uploaded_at"`
	UploadedBy    uuid.UUID         `json:"uploaded_by"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
	LinkedAt      *time.Time        `json:"linked_at,omitempty"`
	FailureReason string            `json:"failure_reason,omitempty"`
}

func toResponse(a *attachment.Attachment) attachmentResponse {
	return attachmentResponse{
		ID:            a.ID,
		FileName:      a.FileName,
		OriginalName:  a.OriginalName,
		FileSize:      a.FileSize,
		MimeType:      a.MimeType,
		StoragePath:   a.StoragePath,
		Status:        a.Status,
		UploadedAt:    a.UploadedAt,
		UploadedBy:    a.UploadedBy,
		ExpiresAt:     a.ExpiresAt,
		LinkedAt:      a.LinkedAt,
		FailureReason: a.FailureReason,
	}
}

type uploadRequest struct {
	FileName     string `json:"file_name"`
	OriginalName string `json:"original_name"`
	FileSize     int64  `json:"file_size"`
	MimeType     string `json:"mime_type"`
	StoragePath  string `json:"storage_path"`
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	caller, err := tenant.FromContext(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	a, err := h.svc.Upload(r.Context(), caller, attachment.UploadParams{
		FileName:     req.FileName,
		OriginalName: req.OriginalName,
		FileSize:     req.FileSize,
		MimeType:     req.MimeType,
		StoragePath:  req.StoragePath,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(a))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	caller, id, err := respond.Target(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	a, err := h.svc.Get(r.Context(), caller, id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(a))
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

type markFailedRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) markFailed(w http.ResponseWriter, r *http.Request) {
	caller, id, err := respond.Target(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req markFailedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.MarkFailed(r.Context(), caller, id, req.Reason); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) orphaned(w http.ResponseWriter, r *http.Request) {
	caller, err := tenant.FromContext(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	list, err := h.svc.FindOrphaned(r.Context(), caller)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]attachmentResponse, len(list))
	for i, a := range list {
		resp[i] = toResponse(a)
	}

	respond.JSON(w, http.StatusOK, resp)
}
