package http

import (
	"net/http"
)

func (h *Handler) getMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathUUID(r, "memberID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	member, err := h.guilds.GetMember(r.Context(), currentUser(r).ID, memberID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	guildID, err := pathUUID(r, "guildID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	members, err := h.guilds.ListMembers(r.Context(), currentUser(r).ID, guildID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *Handler) kickMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathUUID(r, "memberID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.guilds.Kick(r.Context(), currentUser(r).ID, memberID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) banMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathUUID(r, "memberID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Reason *string `json:"reason"`
	}
	// The reason is optional and so is the body.
	_ = decode(r, &req)
	if err := h.guilds.Ban(r.Context(), currentUser(r).ID, memberID, req.Reason); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathUUID(r, "memberID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	roleID, err := pathUUID(r, "roleID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.guilds.AssignRole(r.Context(), currentUser(r).ID, memberID, roleID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) unassignRole(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathUUID(r, "memberID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	roleID, err := pathUUID(r, "roleID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.guilds.RemoveRole(r.Context(), currentUser(r).ID, memberID, roleID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getInvite(w http.ResponseWriter, r *http.Request) {
	inviteID := pathString(r, "inviteID")
	invite, guild, err := h.guilds.GetInvite(r.Context(), inviteID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invite": invite, "guild": guild})
}

func (h *Handler) joinInvite(w http.ResponseWriter, r *http.Request) {
	inviteID := pathString(r, "inviteID")
	member, err := h.guilds.JoinInvite(r.Context(), currentUser(r).ID, inviteID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}
