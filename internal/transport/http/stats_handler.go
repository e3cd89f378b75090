package http

import (
	"net/http"
	"time"
)

type statsResponse struct {
	Instance      string `json:"instance"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Users         int64  `json:"users"`
	Guilds        int64  `json:"guilds"`
	Messages      int64  `json:"messages"`
	Sockets       int64  `json:"sockets"`
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.Users().Count(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	guilds, err := h.store.Guilds().Count(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	messages, err := h.store.Messages().Count(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Instance:      h.instance,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Users:         users,
		Guilds:        guilds,
		Messages:      messages,
		Sockets:       h.gw.Connections(),
	})
}
