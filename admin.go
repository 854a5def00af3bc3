package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// Admin serves the operator API mounted under /admin
type Admin struct {
	auth      *Auth
	game      *Game
	hub       *Hub
	analytics *Analytics
}

func NewAdmin(auth *Auth, game *Game, hub *Hub, analytics *Analytics) *Admin {
	return &Admin{auth: auth, game: game, hub: hub, analytics: analytics}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Routes returns the admin router. Everything except login needs a token.
func (a *Admin) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/login", a.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(a.auth.Middleware)
		r.Get("/metrics", a.handleMetrics)
		r.Get("/bots", a.handleBots)
		r.Post("/bots/save", a.handleSaveBots)
		r.Get("/bans", a.handleBans)
		r.Delete("/bans/{ip}", a.handleLiftBan)
		r.Get("/analytics", a.handleAnalytics)
	})
	return r
}

func (a *Admin) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	token, err := a.auth.Login(body.Password, extractIP(r))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	case errors.Is(err, ErrAdminDisabled):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrLoginRate):
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": err.Error()})
	default:
		Log.Warnw("admin login failed", "ip", extractIP(r))
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}
}

func (a *Admin) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"players": a.game.PlayerCount(),
		"clients": a.hub.ClientCount(),
		"metrics": a.game.Metrics().Snapshot(),
	})
}

type botInfo struct {
	Name        string   `json:"name"`
	Personality string   `json:"personality"`
	Epsilon     float64  `json:"epsilon"`
	Replay      int      `json:"replay"`
	Stats       BotStats `json:"stats"`
}

func (a *Admin) handleBots(w http.ResponseWriter, r *http.Request) {
	bots := a.game.Bots()
	out := make([]botInfo, 0, len(bots))
	for _, b := range bots {
		out = append(out, botInfo{
			Name:        b.Name,
			Personality: b.Personality,
			Epsilon:     b.Epsilon(),
			Replay:      b.ReplayLen(),
			Stats:       b.Stats(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *Admin) handleSaveBots(w http.ResponseWriter, r *http.Request) {
	if err := a.game.SaveBrains(); err != nil {
		Log.Errorw("admin brain save failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "bots": len(a.game.Bots())})
}

func (a *Admin) handleBans(w http.ResponseWriter, r *http.Request) {
	bans := a.hub.bans.Bans()
	out := make(map[string]string, len(bans))
	for ip, until := range bans {
		out[ip] = until.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *Admin) handleLiftBan(w http.ResponseWriter, r *http.Request) {
	ip := chi.URLParam(r, "ip")
	if !a.hub.bans.Lift(ip) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no active ban"})
		return
	}
	Log.Infow("ban lifted", "ip", ip)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *Admin) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	days := 7
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "days must be a positive integer"})
			return
		}
		days = n
	}
	counts, err := a.analytics.EventCounts(days)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	killers, err := a.analytics.TopActors(EvtKill, days, 10)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": days, "events": counts, "top_killers": killers})
}
