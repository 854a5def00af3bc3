package main

import (
	"net"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SetupRoutes configures HTTP routes. admin may be nil to leave the admin
// API unmounted.
func SetupRoutes(hub *Hub, admin *Admin, cfg *Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/ws", hub.ServeWS)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"players": hub.game.PlayerCount(),
			"clients": hub.ClientCount(),
		})
	})
	r.Get("/invite.png", HandleInvite(cfg.Server.PublicURL))
	if admin != nil {
		r.Mount("/admin", admin.Routes())
	}

	// Serve static files with no-cache so browsers always revalidate
	fs := http.FileServer(http.Dir(cfg.Server.ClientDir))
	r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		fs.ServeHTTP(w, r)
	}))
	return r
}

// ServeWS upgrades a request to a game connection
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ip := extractIP(r)
	if h.bans.IsBanned(ip) {
		http.Error(w, "banned", http.StatusForbidden)
		return
	}
	if !h.reserve(ip) {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.release(ip)
		Log.Warnw("upgrade error", "ip", ip, "err", err)
		return
	}

	client := NewClient(h, conn, ip)
	h.register <- client

	go client.WritePump()
	go client.ReadPump()
}
