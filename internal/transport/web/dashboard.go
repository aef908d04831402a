// Package web serves the read-only leaderboard dashboard. It renders the
// aggregate on every request; it never mutates anything and never blocks
// the session driver beyond a shared read lock.
package web

import (
	"context"
	_ "embed"
	"html/template"
	"log"
	"net/http"

	"safequiz-bot/internal/domain"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

//go:embed dashboard.html
var dashboardHTML string

// LeaderboardSource is the read-only view the dashboard needs from the core.
type LeaderboardSource interface {
	Leaderboard(ctx context.Context, lang string) ([]domain.LeaderboardRow, error)
}

// Handler renders the leaderboard dashboard.
type Handler struct {
	source LeaderboardSource
	lang   string
	tmpl   *template.Template
}

func NewHandler(source LeaderboardSource, lang string) *Handler {
	return &Handler{
		source: source,
		lang:   lang,
		tmpl:   template.Must(template.New("dashboard").Parse(dashboardHTML)),
	}
}

type dashboardRow struct {
	Position int
	Name     string
	Points   int
	Rank     string
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	rows, err := h.source.Leaderboard(r.Context(), h.lang)
	if err != nil {
		log.Printf("render dashboard: %v", err)
		http.Error(w, "leaderboard unavailable", http.StatusInternalServerError)
		return
	}
	view := make([]dashboardRow, 0, len(rows))
	for i, row := range rows {
		view = append(view, dashboardRow{
			Position: i + 1,
			Name:     domain.DisplayName(row.Identity),
			Points:   row.Points,
			Rank:     row.Rank,
		})
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.Execute(w, view); err != nil {
		log.Printf("render dashboard: %v", err)
	}
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// NewRouter wires the dashboard routes with a permissive CORS layer.
func NewRouter(h *Handler) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", h.Dashboard).Methods("GET")
	r.HandleFunc("/healthz", h.Health).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
	})
	return c.Handler(r)
}
