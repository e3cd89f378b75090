package http

import (
	"net/http"

	"concord/internal/domain"
	"concord/internal/store"
)

func (h *Handler) getChannel(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathUUID(r, "channelID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ch, err := h.guilds.GetChannel(r.Context(), currentUser(r).ID, channelID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (h *Handler) updateChannel(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathUUID(r, "channelID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Name        *string   `json:"name"`
		Description *string   `json:"description"`
		IsAbove     moveField `json:"is_above"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ch, err := h.guilds.UpdateChannel(r.Context(), currentUser(r).ID, channelID,
		req.Name, req.Description, req.IsAbove.val, req.IsAbove.set)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (h *Handler) deleteChannel(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathUUID(r, "channelID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.guilds.DeleteChannel(r.Context(), currentUser(r).ID, channelID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathUUID(r, "channelID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	amount, offset := pageParams(r, store.MaxHistoryPage)
	msgs, err := h.msgs.History(r.Context(), currentUser(r).ID, channelID, amount, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *Handler) listChannelPermissions(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathUUID(r, "channelID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	perms, err := h.guilds.ListChannelPermissions(r.Context(), currentUser(r).ID, channelID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, perms)
}

func (h *Handler) setChannelPermission(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathUUID(r, "channelID")
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
		Permissions domain.Permission `json:"permissions"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.guilds.SetChannelPermission(r.Context(), currentUser(r).ID, channelID, roleID, req.Permissions); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteChannelPermission(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathUUID(r, "channelID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	roleID, err := pathUUID(r, "roleID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.guilds.DeleteChannelPermission(r.Context(), currentUser(r).ID, channelID, roleID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
