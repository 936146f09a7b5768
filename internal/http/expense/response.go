package expense

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/lexledger/internal/attachment"
	"github.com/MrJamesThe3rd/lexledger/internal/expense"
	"github.com/MrJamesThe3rd/lexledger/internal/tag"
)

type expenseResponse struct {
	ID          uuid.UUID         `json:"id"`
	Direction   expense.Direction `json:"direction"`
	Amount      decimal.Decimal   `json:"amount"`
	Date        string            `json:"date"`
	Category    string            `json:"category"`
	CaseID      *uuid.UUID        `json:"case_id,omitempty"`
	Description string            `json:"description"`
	Memo        string            `json:"memo,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	CreatedBy   uuid.UUID         `json:"created_by"`
	UpdatedAt   time.Time         `json:"updated_at"`
	UpdatedBy   uuid.UUID         `json:"updated_by"`
	RestoredAt  *time.Time        `json:"restored_at,omitempty"`
}

type pageResponse struct {
	Items      []expenseResponse `json:"items"`
	Total      int               `json:"total"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

type balanceResponse struct {
	Expense expenseResponse `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

type categoryTotalResponse struct {
	Category  string            `json:"category"`
	Direction expense.Direction `json:"direction"`
	Total     decimal.Decimal   `json:"total"`
	Count     int               `json:"count"`
}

type tagResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color"`
	Scope tag.Scope `json:"scope"`
}

type attachmentResponse struct {
	ID           uuid.UUID         `json:"id"`
	FileName     string            `json:"file_name"`
	OriginalName string            `json:"original_name"`
	FileSize     int64             `json:"file_size"`
	MimeType     string            `json:"mime_type"`
	Status       attachment.Status `json:"status"`
	LinkedAt     *time.Time        `json:"linked_at,omitempty"`
}

func toResponse(e *expense.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		Direction:   e.Direction,
		Amount:      e.Amount,
		Date:        e.Date.Format(time.DateOnly),
		Category:    e.Category,
		CaseID:      e.CaseID,
		Description: e.Description,
		Memo:        e.Memo,
		CreatedAt:   e.CreatedAt,
		CreatedBy:   e.CreatedBy,
		UpdatedAt:   e.UpdatedAt,
		UpdatedBy:   e.UpdatedBy,
		RestoredAt:  e.RestoredAt,
	}
}

func toResponseList(expenses []*expense.Expense) []expenseResponse {
	resp := make([]expenseResponse, len(expenses))
	for i, e := range expenses {
		resp[i] = toResponse(e)
	}

	return resp
}

func toPageResponse(p *expense.Page) pageResponse {
	resp := pageResponse{
		Items:  toResponseList(p.Items),
		Total:  p.Total,
		Limit:  p.Limit,
		Offset: p.Offset,
	}

	if p.NextCursor != nil {
		resp.NextCursor = p.NextCursor.Encode()
	}

	return resp
}

func toTagResponseList(tags []*tag.Tag) []tagResponse {
	resp := make([]tagResponse, len(tags))
	for i, t := range tags {
		resp[i] = tagResponse{ID: t.ID, Name: t.Name, Color: t.Color, Scope: t.Scope}
	}

	return resp
}

func toAttachmentResponse(a *attachment.Attachment) attachmentResponse {
	return attachmentResponse{
		ID:           a.ID,
		FileName:     a.FileName,
		OriginalName: a.OriginalName,
		FileSize:     a.FileSize,
		MimeType:     a.MimeType,
		Status:       a.Status,
		LinkedAt:     a.LinkedAt,
	}
}
