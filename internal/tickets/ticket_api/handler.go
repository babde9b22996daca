package ticket_api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"zafo-tickets/internal/auth"
	"zafo-tickets/internal/backend"
	"zafo-tickets/internal/logger"
	"zafo-tickets/internal/models"
	"zafo-tickets/internal/tickets/db"
	"zafo-tickets/internal/tickets/render"
	"zafo-tickets/internal/utils"
)

const (
	maxBodyBytes    = 1 << 20
	MaxBatchTickets = 200
	maxPreviewSize  = 1024
)

type DocumentService interface {
	SingleDocument(ctx context.Context, ticket models.TicketRecord, requestedBy string) (*models.TicketDocument, error)
	BatchDocument(ctx context.Context, tickets []models.TicketRecord, requestedBy string) (*models.TicketDocument, error)
	OrderDocument(ctx context.Context, orderID, requestedBy string) (*models.TicketDocument, error)
	TicketDocument(ctx context.Context, ticketNumber, requestedBy string) (*models.TicketDocument, error)
	PreviewQR(ticket models.TicketRecord, size int) []byte
	CountGenerations(ctx context.Context) (int, error)
	GenerationsForTicket(ctx context.Context, ticketNumber string) ([]models.Generation, error)
}

type Handler struct {
	Documents DocumentService
	Logger    *logger.Logger
}

// RegisterPublicRoutes mounts the endpoints that need no caller identity.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/api/tickets/documents/count", h.GetGenerationCount)
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/tickets", func(r chi.Router) {
		r.Post("/document", h.PostSingleDocument)
		r.Post("/documents", h.PostBatchDocument)
		r.Post("/qr", h.PostQRPreview)
		r.Get("/orders/{orderId}/document", h.GetOrderDocument)
		r.Get("/{ticketNumber}/document", h.GetTicketDocument)
		r.Get("/{ticketNumber}/generations", h.GetTicketGenerations)
	})
}

// PostSingleDocument renders the ticket in the request body.
func (h *Handler) PostSingleDocument(w http.ResponseWriter, r *http.Request) {
	var ticket models.TicketRecord
	if !h.decode(w, r, &ticket) {
		return
	}
	if ticket.TicketNumber == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid ticket", "ticketNumber is required"))
		return
	}

	doc, err := h.Documents.SingleDocument(r.Context(), ticket, auth.UserID(r.Context()))
	h.respondDocument(w, r, doc, err)
}

// PostBatchDocument renders a list of tickets, one per page.
func (h *Handler) PostBatchDocument(w http.ResponseWriter, r *http.Request) {
	var list []models.TicketRecord
	if !h.decode(w, r, &list) {
		return
	}
	if len(list) > MaxBatchTickets {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Too many tickets",
			fmt.Sprintf("at most %d tickets per document", MaxBatchTickets)))
		return
	}

	doc, err := h.Documents.BatchDocument(r.Context(), list, auth.UserID(r.Context()))
	h.respondDocument(w, r, doc, err)
}

func (h *Handler) GetOrderDocument(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	doc, err := h.Documents.OrderDocument(r.Context(), orderID, auth.UserID(r.Context()))
	h.respondDocument(w, r, doc, err)
}

func (h *Handler) GetTicketDocument(w http.ResponseWriter, r *http.Request) {
	ticketNumber := chi.URLParam(r, "ticketNumber")
	doc, err := h.Documents.TicketDocument(r.Context(), ticketNumber, auth.UserID(r.Context()))
	h.respondDocument(w, r, doc, err)
}

// PostQRPreview answers with the inline PNG preview of the ticket's code.
func (h *Handler) PostQRPreview(w http.ResponseWriter, r *http.Request) {
	size := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxPreviewSize {
			utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid size",
				fmt.Sprintf("size must be between 1 and %d", maxPreviewSize)))
			return
		}
		size = parsed
	}

	var ticket models.TicketRecord
	if !h.decode(w, r, &ticket) {
		return
	}

	raster := h.Documents.PreviewQR(ticket, size)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raster)
}

type GenerationCountResponse struct {
	TotalCount int `json:"total_count"`
}

func (h *Handler) GetGenerationCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.Documents.CountGenerations(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Counting generations failed: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Error retrieving document count", err.Error()))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(GenerationCountResponse{TotalCount: count})
}

type GenerationView struct {
	ID            string   `json:"id"`
	Filename      string   `json:"filename"`
	Mode          string   `json:"mode"`
	Pages         int      `json:"pages"`
	TicketNumbers []string `json:"ticket_numbers"`
	RequestedBy   string   `json:"requested_by,omitempty"`
	CreatedAt     string   `json:"created_at"`
}

func (h *Handler) GetTicketGenerations(w http.ResponseWriter, r *http.Request) {
	ticketNumber := chi.URLParam(r, "ticketNumber")
	generations, err := h.Documents.GenerationsForTicket(r.Context(), ticketNumber)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Listing generations for %s failed: %v", ticketNumber, err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Error retrieving document history", err.Error()))
		return
	}

	views := make([]GenerationView, 0, len(generations))
	for _, g := range generations {
		views = append(views, GenerationView{
			ID:            g.ID,
			Filename:      g.Filename,
			Mode:          g.Mode,
			Pages:         g.Pages,
			TicketNumbers: db.SplitTicketNumbers(g.TicketNumbers),
			RequestedBy:   g.RequestedBy,
			CreatedAt:     g.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Document history retrieved", views))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return false
	}
	return true
}

func (h *Handler) respondDocument(w http.ResponseWriter, r *http.Request, doc *models.TicketDocument, err error) {
	if err != nil {
		status, message := statusFor(err)
		h.Logger.Error("API", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
		utils.WriteJSON(w, status, utils.ErrorResponse(message, err.Error()))
		return
	}
	if doc == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Content)))
	w.Header().Set("X-Document-Pages", strconv.Itoa(doc.Pages))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Content)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound, "Tickets not found"
	case errors.Is(err, backend.ErrUpstream):
		return http.StatusBadGateway, "Ticket service unavailable"
	case errors.Is(err, render.ErrRasterize):
		return http.StatusInternalServerError, "Ticket rendering failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "Request cancelled"
	default:
		return http.StatusInternalServerError, "Document generation failed"
	}
}
