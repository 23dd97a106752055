package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"volunteer_chat/internal/service"
	"volunteer_chat/pkg/logger"
)

type LedgerHandler struct {
	ledgerService service.LedgerService
	log           logger.Logger
}

func NewLedgerHandler(ledgerService service.LedgerService, log logger.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
		log:           log,
	}
}

func (h *LedgerHandler) Balance(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	balance, err := h.ledgerService.Balance(c.Request.Context(), actor.ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, balance)
}

func (h *LedgerHandler) Transactions(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}

	entries, err := h.ledgerService.History(c.Request.Context(), actor.ID, limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": entries})
}

type RedeemRequest struct {
	Points    int64  `json:"points" binding:"required,gt=0"`
	BookingID *int64 `json:"booking_id"`
}

func (h *LedgerHandler) Redeem(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	balance, err := h.ledgerService.Redeem(c.Request.Context(), service.RedeemInput{
		UserID:    actor.ID,
		Points:    req.Points,
		BookingID: req.BookingID,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, balance)
}

type CreateReferralRequest struct {
	RefereeID      int64  `json:"referee_id" binding:"required,gt=0"`
	OrganizationID *int64 `json:"organization_id"`
}

// CreateReferral records the caller as referrer of another user.
func (h *LedgerHandler) CreateReferral(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req CreateReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	referral, err := h.ledgerService.CreateReferral(c.Request.Context(), service.CreateReferralInput{
		ReferrerID:     actor.ID,
		RefereeID:      req.RefereeID,
		OrganizationID: req.OrganizationID,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, referral)
}

func (h *LedgerHandler) ApproveReferral(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	referral, entries, err := h.ledgerService.ApproveReferral(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"referral": referral, "transactions": entries})
}

func (h *LedgerHandler) RejectReferral(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	referral, err := h.ledgerService.RejectReferral(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, referral)
}
