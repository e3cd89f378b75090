package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"concord/internal/domain"
	"concord/internal/service"
)

const maxAvatarSize = 4 << 20

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

// updateMe accepts multipart form data with an optional "avatar" file and an
// optional "json" field carrying the profile patch. A plain JSON body works
// too when no avatar is involved.
func (h *Handler) updateMe(w http.ResponseWriter, r *http.Request) {
	var patch service.ProfileUpdate
	var avatar []byte

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
			writeError(w, r, domain.ErrBadRequest)
			return
		}
		if raw := r.FormValue("json"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &patch); err != nil {
				writeError(w, r, domain.ErrBadRequest)
				return
			}
		}
		if f, _, err := r.FormFile("avatar"); err == nil {
			defer f.Close()
			avatar, err = io.ReadAll(io.LimitReader(f, maxAvatarSize))
			if err != nil {
				writeError(w, r, err)
				return
			}
		}
	} else if err := decode(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), currentUser(r).ID, patch, avatar)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) myGuilds(w http.ResponseWriter, r *http.Request) {
	guilds, err := h.users.Guilds(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, guilds)
}

func (h *Handler) friends(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.Friends(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) addFriend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target string `json:"target"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.users.AddFriend(r.Context(), currentUser(r).ID, req.Target); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeFriend(w http.ResponseWriter, r *http.Request) {
	targetID, err := pathUUID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.users.RemoveFriend(r.Context(), currentUser(r).ID, targetID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
