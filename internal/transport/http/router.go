// Package http exposes the operational endpoints of the bot.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// NewRouter wires health, metrics and leaderboard endpoints.
func NewRouter(board LeaderboardSource, feed LeaderboardSubscriber, gatherer prometheus.Gatherer, log logrus.FieldLogger) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/api/leaderboard", leaderboardHandler(board, log)).Methods(http.MethodGet)
	r.HandleFunc("/ws/leaderboard", NewWSHandler(board, feed, log).ServeWS)
	return r
}

func leaderboardHandler(board LeaderboardSource, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, err := board.Leaderboard(r.Context())
		if err != nil {
			log.WithError(err).Error("load leaderboard failed")
			http.Error(w, "leaderboard unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(lb); err != nil {
			log.WithError(err).Warn("write leaderboard failed")
		}
	}
}
