package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"concord/internal/domain"
)

// moveField distinguishes "is_above absent" (no reorder) from "is_above:
// null" (move to the bottom of the chain).
type moveField struct {
	set bool
	val *uuid.UUID
}

func (m *moveField) UnmarshalJSON(b []byte) error {
	m.set = true
	if string(b) == "null" {
		return nil
	}
	var id uuid.UUID
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}
	m.val = &id
	return nil
}

func pageParams(r *http.Request, defaultAmount int) (amount, offset int) {
	amount = defaultAmount
	if v, err := strconv.Atoi(r.URL.Query().Get("amount")); err == nil && v > 0 {
		amount = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return amount, offset
}

func (h *Handler) createGuild(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	guild, err := h.guilds.CreateGuild(r.Context(), currentUser(r).ID, req.Name, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, guild)
}

func (h *Handler) getGuild(w http.ResponseWriter, r *http.Request) {
	guildID, err := pathUUID(r, "guildID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	guild, err := h.guilds.GetGuild(r.Context(), currentUser(r).ID, guildID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, guild)
}

func (h *Handler) updateGuild(w http.ResponseWriter, r *http.Request) {
	guildID, err := pathUUID(r, "guildID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Icon        *string `json:"icon"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	guild, err := h.guilds.UpdateGuild(r.Context(), currentUser(r).ID, guildID, req.Name, req.Description, req.Icon)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, guild)
}

func (h *Handler) listChannels(w http.ResponseWriter, r *http.Request) {
	guildID, err := pathUUID(r, "guildID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	channels, err := h.guilds.ListChannels(r.Context(), currentUser(r).ID, guildID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, channels)
}

func (h *Handler) createChannel(w http.ResponseWriter, r *http.Request) {
	guildID, err := pathUUID(r, "guildID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ch, err := h.guilds.CreateChannel(r.Context(), currentUser(r).ID, guildID, req.Name, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ch)
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	guildID, err := pathUUID(r, "guildID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	roles, err := h.guilds.ListRoles(r.Context(), currentUser(r).ID, guildID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	guildID, err := pathUUID(r, "guildID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Name        string            `json:"name"`
		Color       int32             `json:"color"`
		Permissions domain.Permission `json:"permissions"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	role, err := h.guilds.CreateRole(r.Context(), currentUser(r).ID, guildID, req.Name, req.Color, req.Permissions)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	guildID, err := pathUUID(r, "guildID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	roleID, err := pathUUID(r, "roleID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	role, err := h.guilds.GetRole(r.Context(), currentUser(r).ID, guildID, roleID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	guildID, err := pathUUID(r, "guildID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	roleID, err := pathUUID(r, "roleID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Name        *string            `json:"name"`
		Color       *int32             `json:"color"`
		Permissions *domain.Permission `json:"permissions"`
		IsAbove     moveField          `json:"is_above"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	role, err := h.guilds.UpdateRole(r.Context(), currentUser(r).ID, guildID, roleID,
		req.Name, req.Color, req.Permissions, req.IsAbove.val, req.IsAbove.set)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	guildID, err := pathUUID(r, "guildID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	roleID, err := pathUUID(r, "roleID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.guilds.DeleteRole(r.Context(), currentUser(r).ID, guildID, roleID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listInvites(w http.ResponseWriter, r *http.Request) {
	guildID, err := pathUUID(r, "guildID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	invites, err := h.guilds.ListInvites(r.Context(), currentUser(r).ID, guildID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invites)
}

func (h *Handler) createInvite(w http.ResponseWriter, r *http.Request) {
	guildID, err := pathUUID(r, "guildID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	// An empty body means a random invite id.
	_ = decode(r, &req)
	invite, err := h.guilds.CreateInvite(r.Context(), currentUser(r).ID, guildID, req.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, invite)
}

func (h *Handler) listBans(w http.ResponseWriter, r *http.Request) {
	guildID, err := pathUUID(r, "guildID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	bans, err := h.guilds.ListBans(r.Context(), currentUser(r).ID, guildID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bans)
}

func (h *Handler) unban(w http.ResponseWriter, r *http.Request) {
	guildID, err := pathUUID(r, "guildID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		UserID uuid.UUID `json:"user_uuid"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.guilds.Unban(r.Context(), currentUser(r).ID, guildID, req.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	guildID, err := pathUUID(r, "guildID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	amount, offset := pageParams(r, 50)
	entries, err := h.guilds.ListAudit(r.Context(), currentUser(r).ID, guildID, amount, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
