package observability

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gagbot_commands_total",
			Help: "Moderation commands processed, by command and outcome",
		},
		[]string{"command", "outcome"},
	)

	enforcedDeletionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gagbot_enforced_deletions_total",
			Help: "Messages deleted because their sender was gagged",
		},
	)

	updateProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gagbot_update_processing_duration_seconds",
			Help:    "Time spent processing updates",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	registerOnce sync.Once
)

// Server exposes the prometheus registry over HTTP. It is a lifecycle
// component: Start is non-blocking, Stop drains the listener.
type Server struct {
	srv *http.Server
}

func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	registerOnce.Do(func() {
		prometheus.MustRegister(commandsTotal, enforcedDeletionsTotal, updateProcessingDuration)
	})
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// RecordCommand counts one processed moderation command.
func RecordCommand(command, outcome string) {
	commandsTotal.WithLabelValues(command, outcome).Inc()
}

// RecordEnforcedDeletion counts one deleted message of a gagged sender.
func RecordEnforcedDeletion() {
	enforcedDeletionsTotal.Inc()
}

// StartUpdateProcessing returns a function to record update processing duration.
func StartUpdateProcessing() func(status string) {
	start := time.Now()
	return func(status string) {
		updateProcessingDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}
}
