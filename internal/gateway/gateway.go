// Package gateway owns the realtime side: the WebSocket upgrade, per-socket
// sessions, and the bridge between pub/sub topics and connected clients.
package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"concord/internal/cache"
	"concord/internal/domain"
	"concord/internal/observability/metrics"
	"concord/internal/service"
)

const protocolName = "Authorization"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	Subprotocols:    []string{protocolName},
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Gateway struct {
	auth   *service.AuthService
	users  *service.UserService
	perms  *service.PermissionService
	msgs   *service.MessageService
	pubsub *cache.PubSub
	log    *slog.Logger

	connections atomic.Int64
}

func New(auth *service.AuthService, users *service.UserService, perms *service.PermissionService, msgs *service.MessageService, pubsub *cache.PubSub, log *slog.Logger) *Gateway {
	return &Gateway{auth: auth, users: users, perms: perms, msgs: msgs, pubsub: pubsub, log: log}
}

// HandleSocket upgrades to the unified gateway. The access token rides in
// the subprotocol header, "Authorization, <token>", because the browser
// WebSocket API cannot set arbitrary headers.
func (g *Gateway) HandleSocket(w http.ResponseWriter, r *http.Request) {
	g.serve(w, r, nil)
}

// HandleChannelSocket is the deprecated per-channel endpoint. It behaves
// like HandleSocket with the named channel already subscribed.
func (g *Gateway) HandleChannelSocket(channelID domain.ChannelID) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.serve(w, r, &channelID)
	}
}

func (g *Gateway) serve(w http.ResponseWriter, r *http.Request, preSubscribe *domain.ChannelID) {
	token, ok := subprotocolToken(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "missing Authorization subprotocol")
		return
	}
	userID, err := g.auth.VerifyAccess(r.Context(), token)
	if err != nil {
		jsonError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := g.users.Get(r.Context(), userID)
	if err != nil {
		jsonError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := g.perms.Gate(r.Context(), user); err != nil {
		jsonError(w, http.StatusForbidden, "forbidden")
		return
	}

	var initial []string
	if preSubscribe != nil {
		if err := g.perms.CheckChannelAccess(r.Context(), userID, *preSubscribe); err != nil {
			jsonError(w, http.StatusForbidden, "forbidden")
			return
		}
		initial = append(initial, preSubscribe.String())
	}

	conn, err := upgrader.Upgrade(w, r, http.Header{"Sec-WebSocket-Protocol": {protocolName}})
	if err != nil {
		g.log.Debug("socket upgrade failed", slog.String("error", err.Error()))
		return
	}

	metrics.SocketConnections.Inc()
	g.connections.Add(1)
	s := newSession(g, conn, user)
	s.run(r.Context(), initial)
}

// Connections reports the number of live sockets.
func (g *Gateway) Connections() int64 { return g.connections.Load() }

// subprotocolToken pulls the access token out of Sec-WebSocket-Protocol.
// The header value is a comma-separated list; the first entry must be the
// literal protocol name and the second is the token.
func subprotocolToken(r *http.Request) (string, bool) {
	raw := r.Header.Get("Sec-WebSocket-Protocol")
	parts := strings.Split(raw, ",")
	if len(parts) < 2 || strings.TrimSpace(parts[0]) != protocolName {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
