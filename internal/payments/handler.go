package payments

import (
	"errors"
	"net/http"

	"github.com/wolfman30/careconnect/internal/http/middleware"
	"github.com/wolfman30/careconnect/internal/http/respond"
	"github.com/wolfman30/careconnect/internal/validation"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// Handler serves the patient-facing /api/payments routes.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

type topUpResponse struct {
	Success bool `json:"success"`
	*TopUpResult
}

type coinsResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*CoinPurchaseResult
}

type cryptoResponse struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	ChargeID    string       `json:"chargeId"`
	Transaction *Transaction `json:"transaction"`
}

// TopUp handles POST /api/payments/wallet/topup
func (h *Handler) TopUp(w http.ResponseWriter, r *http.Request) {
	patientID, ok := h.patientID(w, r)
	if !ok {
		return
	}
	var req TopUpRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.TopUp(r.Context(), patientID, req)
	if err != nil {
		h.writeError(w, err, "failed to start wallet top-up")
		return
	}
	respond.JSON(w, http.StatusCreated, topUpResponse{Success: true, TopUpResult: res})
}

// PurchaseCoins handles POST /api/payments/coins/purchase
func (h *Handler) PurchaseCoins(w http.ResponseWriter, r *http.Request) {
	patientID, ok := h.patientID(w, r)
	if !ok {
		return
	}
	var req CoinPurchaseRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.PurchaseCoins(r.Context(), patientID, req)
	if err != nil {
		h.writeError(w, err, "failed to purchase coins")
		return
	}
	respond.JSON(w, http.StatusCreated, coinsResponse{Success: true, Message: "Coins purchased successfully", CoinPurchaseResult: res})
}

// CryptoCharge handles POST /api/payments/crypto/charge
func (h *Handler) CryptoCharge(w http.ResponseWriter, r *http.Request) {
	patientID, ok := h.patientID(w, r)
	if !ok {
		return
	}
	var req CryptoChargeRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := h.svc.CryptoCharge(r.Context(), patientID, req)
	if err != nil {
		h.writeError(w, err, "failed to create crypto charge")
		return
	}
	respond.JSON(w, http.StatusCreated, cryptoResponse{Success: true, Message: "Crypto charge created", ChargeID: tx.ExternalID, Transaction: tx})
}

// Transactions handles GET /api/payments/transactions
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	patientID, ok := h.patientID(w, r)
	if !ok {
		return
	}
	list, err := h.svc.Transactions(r.Context(), patientID)
	if err != nil {
		h.writeError(w, err, "failed to list transactions")
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

func (h *Handler) patientID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return claims.Subject, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		respond.Validation(w, verr)
	case errors.Is(err, ErrInsufficientFunds):
		respond.Error(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, ErrPatientNotFound), errors.Is(err, ErrTransactionNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrCheckoutUnavailable):
		respond.Error(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error(fallback, "error", err)
		respond.Error(w, http.StatusInternalServerError, fallback)
	}
}
