package service

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/model"
	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/relief"
	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/store"
)

// userIDHeader carries the caller-supplied user identity. Verification is an
// upstream collaborator's job; this layer only scopes data by it.
const userIDHeader = "X-User-Id"

// Handler exposes the service over JSON HTTP.
type Handler struct {
	svc    *ReceiptService
	logger *zap.Logger
}

// NewHandler builds the HTTP handler tree.
func NewHandler(svc *ReceiptService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Mux returns the route table. CORS preflight handling wraps this mux at the
// server layer.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("/v1/extract", h.extract)

	mux.HandleFunc("POST /v1/receipts", h.saveReceipt)
	mux.HandleFunc("GET /v1/receipts", h.listReceipts)
	mux.HandleFunc("GET /v1/receipts/{id}", h.getReceipt)
	mux.HandleFunc("DELETE /v1/receipts/{id}", h.deleteReceipt)
	mux.HandleFunc("POST /v1/receipts/{id}/items", h.updateLineItems)

	mux.HandleFunc("POST /v1/receipts/{id}/items/{itemId}/claim/request", h.requestClaim)
	mux.HandleFunc("POST /v1/receipts/{id}/items/{itemId}/claim/confirm", h.confirmClaim)
	mux.HandleFunc("POST /v1/receipts/{id}/items/{itemId}/claim/cancel", h.cancelClaim)
	mux.HandleFunc("DELETE /v1/receipts/{id}/items/{itemId}/claim", h.removeClaim)

	mux.HandleFunc("GET /v1/relief/categories", h.reliefCategories)
	mux.HandleFunc("GET /v1/relief/ledger", h.reliefLedger)
	mux.HandleFunc("GET /v1/relief/lifestyle", h.lifestyleHeadroom)
	mux.HandleFunc("GET /v1/relief/report", h.reliefReport)

	return mux
}

// successEnvelope and errorEnvelope mirror the extraction collaborator's
// response contract so clients handle both services uniformly.
type successEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(successEnvelope{Success: true, Data: data}); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorEnvelope{Success: false, Error: msg, Details: details}); err != nil {
		h.logger.Error("failed to encode error response", zap.Error(err))
	}
}

// writeServiceError maps domain errors onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not found", err.Error())
	case errors.Is(err, ErrForbidden):
		h.writeError(w, http.StatusForbidden, "forbidden", "")
	case errors.Is(err, relief.ErrInvalidTransition):
		h.writeError(w, http.StatusConflict, "invalid claim transition", err.Error())
	default:
		h.logger.Error("request failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing user id", userIDHeader+" header is required")
		return "", false
	}
	return userID, true
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	h.writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

type extractRequest struct {
	Image    string `json:"image"`
	MimeType string `json:"mimeType"`
}

// extract mirrors the extraction collaborator's own contract: 400 for a
// missing or undecodable image, 405 for anything but POST, and a successful
// fallback draft rather than a 500 when the OCR backend is down.
func (h *Handler) extract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "use POST")
		return
	}

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Image == "" {
		h.writeError(w, http.StatusBadRequest, "image is required", "")
		return
	}
	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "image is not valid base64", err.Error())
		return
	}

	result := h.svc.ScanReceipt(r.Context(), image, req.MimeType)
	h.writeData(w, http.StatusOK, result)
}

func (h *Handler) saveReceipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var in SaveReceiptInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	in.UserID = userID

	result, err := h.svc.SaveReceipt(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusCreated, result)
}

func (h *Handler) listReceipts(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	pageToken := r.URL.Query().Get("pageToken")

	receipts, nextToken, err := h.svc.ListReceipts(r.Context(), userID, year, int32(pageSize), pageToken)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, map[string]interface{}{
		"receipts":      receipts,
		"nextPageToken": nextToken,
	})
}

func (h *Handler) getReceipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	receipt, err := h.svc.GetReceipt(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, receipt)
}

func (h *Handler) deleteReceipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteReceipt(r.Context(), userID, r.PathValue("id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, map[string]string{"deleted": r.PathValue("id")})
}

type updateItemsRequest struct {
	Items []model.LineItem `json:"items"`
}

func (h *Handler) updateLineItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req updateItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.svc.UpdateLineItems(r.Context(), userID, r.PathValue("id"), req.Items)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, result)
}

type requestClaimBody struct {
	Tag model.Category `json:"tag"`
}

func (h *Handler) requestClaim(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var body requestClaimBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if _, known := relief.CatalogEntry(body.Tag); !known {
		h.writeError(w, http.StatusBadRequest, "unknown relief category", string(body.Tag))
		return
	}

	reason, err := h.svc.RequestClaim(r.Context(), userID, r.PathValue("id"), r.PathValue("itemId"), body.Tag)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, map[string]interface{}{
		"state":  relief.StatePendingConfirmation,
		"reason": reason,
	})
}

func (h *Handler) confirmClaim(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	receipt, err := h.svc.ConfirmClaim(r.Context(), userID, r.PathValue("id"), r.PathValue("itemId"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, receipt)
}

func (h *Handler) cancelClaim(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.svc.CancelClaim(r.Context(), userID, r.PathValue("id"), r.PathValue("itemId")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, map[string]interface{}{"state": relief.StateExcluded})
}

func (h *Handler) removeClaim(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	receipt, err := h.svc.RemoveClaim(r.Context(), userID, r.PathValue("id"), r.PathValue("itemId"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, receipt)
}

func (h *Handler) reliefCategories(w http.ResponseWriter, _ *http.Request) {
	h.writeData(w, http.StatusOK, relief.Catalog())
}

// yearParam defaults to the year query parameter, required for ledger and
// report views.
func (h *Handler) yearParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year <= 0 {
		h.writeError(w, http.StatusBadRequest, "year is required", "pass ?year=YYYY")
		return 0, false
	}
	return year, true
}

func (h *Handler) reliefLedger(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	year, ok := h.yearParam(w, r)
	if !ok {
		return
	}

	ledger, err := h.svc.Ledger(r.Context(), userID, year)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, ledger)
}

func (h *Handler) lifestyleHeadroom(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	year, ok := h.yearParam(w, r)
	if !ok {
		return
	}
	amount, _ := strconv.ParseFloat(r.URL.Query().Get("amount"), 64)

	check, err := h.svc.LifestyleHeadroom(r.Context(), userID, year, amount)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, check)
}

func (h *Handler) reliefReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	year, ok := h.yearParam(w, r)
	if !ok {
		return
	}

	report, err := h.svc.ReliefReport(r.Context(), userID, year)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "xlsx" {
		data, err := report.ToXLSX()
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("lhdn-relief-%d.xlsx", year)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(data); err != nil {
			h.logger.Error("failed to write report", zap.Error(err))
		}
		return
	}
	h.writeData(w, http.StatusOK, report)
}
