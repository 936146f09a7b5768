package importcsv

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/lexledger/internal/expense"
	"github.com/MrJamesThe3rd/lexledger/internal/http/respond"
	"github.com/MrJamesThe3rd/lexledger/internal/importer"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

const maxUpload = 10 << 20

type Handler struct {
	importSvc  *importer.Service
	expenseSvc *expense.Service
}

func NewHandler(importSvc *importer.Service, expenseSvc *expense.Service) *Handler {
	return &Handler{
		importSvc:  importSvc,
		expenseSvc: expenseSvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importCSV)
	r.Post("/confirm", h.confirmImport)
}

type expenseResponse struct {
	ID          uuid.UUID         `json:"id"`
	Direction   expense.Direction `json:"direction"`
	Amount      decimal.Decimal   `json:"amount"`
	Date        string            `json:"date"`
	Category    string            `json:"category"`
	CaseID      *uuid.UUID        `json:"case_id,omitempty"`
	Description string            `json:"description"`
	CreatedAt   time.Time         `json:"created_at"`
}

type importSuccessResponse struct {
	Imported int               `json:"imported"`
	Expenses []expenseResponse `json:"expenses"`
}

type createParamsDTO struct {
	Direction   expense.Direction `json:"direction"`
	Amount      decimal.Decimal   `json:"amount"`
	Date        string            `json:"date"`
	Category    string            `json:"category"`
	CaseID      *uuid.UUID        `json:"case_id,omitempty"`
	Description string            `json:"description"`
	Memo        string            `json:"memo,omitempty"`
}

type conflictDTO struct {
	Incoming createParamsDTO `json:"incoming"`
	Existing expenseResponse `json:"existing"`
}

type importConflictResponse struct {
	New       []createParamsDTO `json:"new"`
	Conflicts []conflictDTO     `json:"conflicts"`
}

type confirmRequest struct {
	Params []createParamsDTO `json:"params"`
}

// importCSV parses an uploaded ledger and imports it. When some rows match
// existing expenses nothing is written; the response lists new rows and
// conflicts with 409 so the client can resubmit a selection to /confirm.
func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	caller, err := tenant.FromContext(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(maxUpload); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	params, err := h.importSvc.Import(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.expenseSvc.ImportBatch(r.Context(), caller, params)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if len(result.Conflicts) > 0 {
		resp := importConflictResponse{
			New:       make([]createParamsDTO, 0, len(result.New)),
			Conflicts: make([]conflictDTO, 0, len(result.Conflicts)),
		}
		for _, p := range result.New {
			resp.New = append(resp.New, toParamsDTO(p))
		}

		for _, c := range result.Conflicts {
			resp.Conflicts = append(resp.Conflicts, conflictDTO{
				Incoming: toParamsDTO(c.Incoming),
				Existing: toExpenseResponse(c.Existing),
			})
		}

		respond.JSON(w, http.StatusConflict, resp)

		return
	}

	respond.JSON(w, http.StatusCreated, toSuccessResponse(result.Imported))
}

func (h *Handler) confirmImport(w http.ResponseWriter, r *http.Request) {
	caller, err := tenant.FromContext(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	params := make([]expense.CreateParams, 0, len(req.Params))
	for _, p := range req.Params {
		date, err := time.Parse(time.DateOnly, p.Date)
		if err != nil {
			http.Error(w, "invalid date "+p.Date, http.StatusBadRequest)
			return
		}

		params = append(params, expense.CreateParams{
			Direction:   p.Direction,
			Amount:      p.Amount,
			Date:        date,
			Category:    p.Category,
			CaseID:      p.CaseID,
			Description: p.Description,
			Memo:        p.Memo,
		})
	}

	expenses, err := h.expenseSvc.CreateBatch(r.Context(), caller, params)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toSuccessResponse(expenses))
}

func toSuccessResponse(expenses []*expense.Expense) importSuccessResponse {
	responses := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		responses = append(responses, toExpenseResponse(e))
	}

	return importSuccessResponse{
		Imported: len(expenses),
		Expenses: responses,
	}
}

func toExpenseResponse(e *expense.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		Direction:   e.Direction,
		Amount:      e.Amount,
		Date:        e.Date.Format(time.DateOnly),
		Category:    e.Category,
		CaseID:      e.CaseID,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
	}
}

func toParamsDTO(p expense.CreateParams) createParamsDTO {
	return createParamsDTO{
		Direction:   p.Direction,
		Amount:      p.Amount,
		Date:        p.Date.Format(time.DateOnly),
		Category:    p.Category,
		CaseID:      p.CaseID,
		Description: p.Description,
		Memo:        p.Memo,
	}
}
