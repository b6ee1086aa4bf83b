package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hunnydu/internal/auth"
	"hunnydu/internal/model"
	"hunnydu/internal/service"
)

// adminHandler serves the identity service: it provisions families and
// members and mints API tokens after it has verified credentials itself.
type adminHandler struct {
	families *service.FamilyService
	issuer   *auth.Issuer
	log      *zap.SugaredLogger
}

type createFamilyRequest struct {
	Name string `json:"family_name"`
}

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	FamilyID *uint  `json:"family_id"`
	TZOffset int    `json:"tz_offset"`
}

type linkTelegramRequest struct {
	TelegramID int64 `json:"telegram_id"`
}

type issueTokenRequest struct {
	UserID uint `json:"user_id"`
}

func (h *adminHandler) createFamily(c *gin.Context) {
	var req createFamilyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, fmt.Errorf("%w: %v", model.ErrInvalidInput, err))
		return
	}
	family, err := h.families.CreateFamily(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": family.ID, "family_name": family.Name})
}

func (h *adminHandler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, fmt.Errorf("%w: %v", model.ErrInvalidInput, err))
		return
	}
	user, err := h.families.RegisterMember(c.Request.Context(), service.MemberInput{
		Username: req.Username,
		Email:    req.Email,
		Role:     req.Role,
		FamilyID: req.FamilyID,
		TZOffset: req.TZOffset,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "username": user.Username, "role": user.Role})
}

func (h *adminHandler) linkTelegram(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	var req linkTelegramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, fmt.Errorf("%w: %v", model.ErrInvalidInput, err))
		return
	}
	if err := h.families.LinkTelegram(c.Request.Context(), id, req.TelegramID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Telegram linked."})
}

func (h *adminHandler) issueToken(c *gin.Context) {
	var req issueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, fmt.Errorf("%w: %v", model.ErrInvalidInput, err))
		return
	}
	user, err := h.families.Member(c.Request.Context(), req.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	token, err := h.issuer.Issue(user.ID, model.CapabilitiesForRole(user.Role), time.Now())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
