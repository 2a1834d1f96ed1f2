package handlers

import (
	"net/http"
	"strconv"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/models"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/service"
)

// FamilyHandler handles family lifecycle HTTP requests
type FamilyHandler struct {
	familyService *service.FamilyService
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(familyService *service.FamilyService) *FamilyHandler {
	return &FamilyHandler{familyService: familyService}
}

// CreateFamily creates a family with the caller as admin
func (h *FamilyHandler) CreateFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	family, err := h.familyService.CreateFamily(user.ID, req.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, family)
}

// GetFamily returns the family with its members
func (h *FamilyHandler) GetFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid family id")
		return
	}

	family, err := h.familyService.GetFamily(user.ID, familyID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, family)
}

// GetMyMembership returns the caller's membership, if any
func (h *FamilyHandler) GetMyMembership(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	membership, err := h.familyService.GetMembership(user.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, membership)
}

// InviteMember creates an invitation addressed to an email
func (h *FamilyHandler) InviteMember(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid family id")
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	invitation, err := h.familyService.InviteMember(user.ID, familyID, req.Email)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, invitation)
}

// ListInvitations returns the family's invitations
func (h *FamilyHandler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid family id")
		return
	}

	invitations, err := h.familyService.ListInvitations(user.ID, familyID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, invitations)
}

// ListMyInvitations returns open invitations addressed to the caller
func (h *FamilyHandler) ListMyInvitations(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	invitations, err := h.familyService.ListMyInvitations(user.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, invitations)
}

// AcceptInvitation joins the caller to the inviting family
func (h *FamilyHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	invitationID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid invitation id")
		return
	}

	member, err := h.familyService.AcceptInvitation(user.ID, invitationID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, member)
}

// RejectInvitation declines an invitation addressed to the caller
func (h *FamilyHandler) RejectInvitation(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	invitationID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid invitation id")
		return
	}

	if err := h.familyService.RejectInvitation(user.ID, invitationID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

// CancelInvitation withdraws a pending invitation
func (h *FamilyHandler) CancelInvitation(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	invitationID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid invitation id")
		return
	}

	if err := h.familyService.CancelInvitation(user.ID, invitationID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

// UpdateMemberPermissions overwrites a member's capability flags
func (h *FamilyHandler) UpdateMemberPermissions(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid family id")
		return
	}
	targetID, err := pathID(r, "userId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var perms models.MemberPermissions
	if err := decodeJSON(r, &perms); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.familyService.UpdateMemberPermissions(user.ID, familyID, targetID, perms); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

// UpdateMemberRole changes a member's family-local role
func (h *FamilyHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid family id")
		return
	}
	targetID, err := pathID(r, "userId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.familyService.UpdateMemberRole(user.ID, familyID, targetID, req.Role); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

// RemoveMember removes another member from the family
func (h *FamilyHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid family id")
		return
	}
	targetID, err := pathID(r, "userId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.familyService.RemoveMember(user.ID, familyID, targetID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

// LeaveFamily removes the caller's own membership
func (h *FamilyHandler) LeaveFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	if err := h.familyService.LeaveFamily(user.ID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

// ListAuditLog returns recent audit entries for the family
func (h *FamilyHandler) ListAuditLog(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid family id")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	entries, err := h.familyService.ListAuditLog(user.ID, familyID, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}
