package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LobbySize tracks the number of authenticated connections awaiting a role.
	LobbySize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quizgate_lobby_size",
			Help: "Number of pending connections in the lobby",
		},
	)

	// HallSize tracks the number of role-assigned active connections.
	HallSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quizgate_hall_size",
			Help: "Number of active connections in the hall",
		},
	)

	// Evictions counts forced closes caused by reconnect replacement.
	Evictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quizgate_evictions_total",
			Help: "Connections force-closed after replacement by a newer connection",
		},
	)

	// BroadcastsSent counts client-bound fan-out messages, by outcome.
	BroadcastsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizgate_broadcasts_total",
			Help: "Fan-out messages sent to clients",
		},
		[]string{"event", "status"},
	)

	// DiscardedMessages counts inbound messages and events dropped with a warning.
	DiscardedMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizgate_discarded_messages_total",
			Help: "Messages discarded by the router",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(LobbySize, HallSize, Evictions, BroadcastsSent, DiscardedMessages)
}

// Serve exposes the prometheus metrics endpoint until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
