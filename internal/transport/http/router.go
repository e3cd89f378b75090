// Package http is the REST surface: one chi router over the service layer,
// plus the mount points for the realtime gateway.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"concord/internal/domain"
	"concord/internal/gateway"
	"concord/internal/service"
	"concord/internal/store"
)

type Handler struct {
	log    *slog.Logger
	auth   *service.AuthService
	users  *service.UserService
	guilds *service.GuildService
	msgs   *service.MessageService
	email  *service.EmailService
	perms  *service.PermissionService
	store  *store.Store
	gw     *gateway.Gateway

	instance     string
	cookiePath   string
	frontendURL  string
	initialGuild string
	started      time.Time
}

type Deps struct {
	Log    *slog.Logger
	Auth   *service.AuthService
	Users  *service.UserService
	Guilds *service.GuildService
	Msgs   *service.MessageService
	Email  *service.EmailService
	Perms  *service.PermissionService
	Store  *store.Store
	GW     *gateway.Gateway

	Instance    string
	CookiePath  string
	FrontendURL string

	// InitialGuild, when set, is an invite id every fresh account joins on
	// registration.
	InitialGuild string
}

func NewRouter(d Deps) http.Handler {
	h := &Handler{
		log:          d.Log,
		auth:         d.Auth,
		users:        d.Users,
		guilds:       d.Guilds,
		msgs:         d.Msgs,
		email:        d.Email,
		perms:        d.Perms,
		store:        d.Store,
		gw:           d.GW,
		instance:     d.Instance,
		cookiePath:   d.CookiePath,
		frontendURL:  d.FrontendURL,
		initialGuild: d.InitialGuild,
		started:      time.Now(),
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(httprate.LimitByIP(300, time.Minute))

	origins := []string{"*"}
	if h.frontendURL != "" {
		origins = []string{h.frontendURL}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(withMetrics)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/versions", h.versions)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", h.stats)

		// The gateway authenticates through the websocket subprotocol, not
		// the Authorization header.
		r.Get("/socket", h.gw.HandleSocket)
		r.Get("/channels/{channelID}/socket", h.channelSocket)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/login", h.login)
			r.Get("/refresh", h.refresh)
			r.Get("/logout", h.logout)
			r.Get("/verify-email", h.confirmEmail)
			r.Get("/reset-password", h.checkResetToken)
			r.Post("/reset-password", h.resetPassword)
			r.Group(func(r chi.Router) {
				r.Use(h.requireAuth)
				r.Post("/revoke", h.revoke)
				r.Get("/devices", h.devices)
				r.Post("/verify-email", h.requestVerifyEmail)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			// /me stays reachable for unverified accounts so they can see
			// their own state and ask for the verification mail again.
			r.Route("/me", func(r chi.Router) {
				r.Get("/", h.me)
				r.Patch("/", h.updateMe)
				r.Get("/guilds", h.myGuilds)
				r.Get("/friends", h.friends)
				r.Post("/friends", h.addFriend)
				r.Delete("/friends/{userID}", h.removeFriend)
			})

			r.Group(func(r chi.Router) {
				r.Use(h.requireVerified)

				r.Route("/guilds", func(r chi.Router) {
					r.Get("/", h.myGuilds)
					r.Post("/", h.createGuild)
					r.Route("/{guildID}", func(r chi.Router) {
						r.Get("/", h.getGuild)
						r.Patch("/", h.updateGuild)
						r.Get("/channels", h.listChannels)
						r.Post("/channels", h.createChannel)
						r.Get("/roles", h.listRoles)
						r.Post("/roles", h.createRole)
						r.Get("/roles/{roleID}", h.getRole)
						r.Patch("/roles/{roleID}", h.updateRole)
						r.Delete("/roles/{roleID}", h.deleteRole)
						r.Get("/invites", h.listInvites)
						r.Post("/invites", h.createInvite)
						r.Get("/members", h.listMembers)
						r.Get("/bans", h.listBans)
						r.Delete("/bans", h.unban)
						r.Get("/audit-logs", h.listAudit)
					})
				})

				r.Route("/channels/{channelID}", func(r chi.Router) {
					r.Get("/", h.getChannel)
					r.Patch("/", h.updateChannel)
					r.Delete("/", h.deleteChannel)
					r.Get("/messages", h.history)
					r.Get("/permissions", h.listChannelPermissions)
					r.Put("/permissions/{roleID}", h.setChannelPermission)
					r.Delete("/permissions/{roleID}", h.deleteChannelPermission)
				})

				r.Route("/members/{memberID}", func(r chi.Router) {
					r.Get("/", h.getMember)
					r.Delete("/", h.kickMember)
					r.Post("/ban", h.banMember)
					r.Put("/roles/{roleID}", h.assignRole)
					r.Delete("/roles/{roleID}", h.unassignRole)
				})

				r.Get("/invites/{inviteID}", h.getInvite)
				r.Post("/invites/{inviteID}", h.joinInvite)
			})
		})
	})

	return r
}

func (h *Handler) versions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"instance": h.instance,
		"versions": []string{"v1"},
	})
}

func (h *Handler) channelSocket(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathUUID(r, "channelID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.gw.HandleChannelSocket(channelID)(w, r)
}

func pathString(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, domain.ErrBadRequest
	}
	return id, nil
}
