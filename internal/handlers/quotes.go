package handlers

import (
	"encoding/json"
	"net/http"

	"refill-pricing/internal/logger"
	"refill-pricing/internal/models"
)

const quotesPathPrefix = "/api/quotes/"

// QuoteHandler обслуживает JSON API расчётов стоимости.
type QuoteHandler struct {
	quoteService QuoteService
	log          *logger.Logger
}

// NewQuoteHandler создает новый обработчик расчётов
func NewQuoteHandler(quoteService QuoteService, log *logger.Logger) *QuoteHandler {
	return &QuoteHandler{
		quoteService: quoteService,
		log:          log,
	}
}

// Quotes маршрутизирует /api/quotes по методу.
func (h *QuoteHandler) Quotes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.CreateQuote(w, r)
	case http.MethodGet:
		h.ListQuotes(w, r)
	default:
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// CreateQuote считает стоимость по телу запроса и возвращает сохранённый расчёт.
func (h *QuoteHandler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req models.CreateQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	quote, err := h.quoteService.CreateQuote(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to calculate quote")
		return
	}

	writeJSONResponse(w, http.StatusCreated, quote)
}

// GetQuote возвращает расчёт по ID
func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id, err := extractUUIDFromPath(r.URL.Path, quotesPathPrefix)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	quote, err := h.quoteService.GetQuote(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get quote")
		return
	}

	writeJSONResponse(w, http.StatusOK, quote)
}

// ListQuotes возвращает последние расчёты, новые первыми
func (h *QuoteHandler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit, offset := parsePagination(r)
	quotes, err := h.quoteService.ListQuotes(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list quotes")
		return
	}

	writeJSONResponse(w, http.StatusOK, quotes)
}
