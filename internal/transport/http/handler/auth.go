package handler

import (
	"encoding/json"
	"net/http"

	"github.com/geeta-saathi/backend/internal/application/auth"
	"github.com/geeta-saathi/backend/internal/pkg/validate"
)

type sendCodeRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required"`
}

type verifyCodeRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required"`
	Code        string `json:"code" validate:"required"`
}

type refreshRequest struct {
	Token string `json:"token"`
}

// AuthHandler serves the phone OTP handshake under /api/auth.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func (h *AuthHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	issued, err := h.svc.Issue(r.Context(), req.PhoneNumber)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SendCodeEnvelope{
		Message: "OTP sent successfully",
		DevCode: issued.Code,
	})
}

func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Phone number and OTP are required")
		return
	}
	verdict, err := h.svc.Verify(r.Context(), req.PhoneNumber, req.Code)
	if err != nil {
		httpError(w, r, err)
		return
	}
	if !verdict.Success {
		writeError(w, r, http.StatusUnauthorized, "Invalid or expired OTP")
		return
	}
	writeJSON(w, http.StatusOK, LoginEnvelope{
		Message: "Login successful",
		Token:   verdict.Token,
		User:    verdict.User,
	})
}

// Refresh echoes the supplied token back unchanged. There is no validation
// or rotation yet; clients keep using the token issued at verification.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	writeJSON(w, http.StatusOK, TokenEnvelope{Message: "Token refreshed", Token: req.Token})
}
