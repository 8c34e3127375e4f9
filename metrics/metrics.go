package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Kampouse/fastkv-server/errors"
	"github.com/Kampouse/fastkv-server/log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// InstrumentationService exposes the collected metrics, either by
// serving them to a prometheus scraper or by pushing them to a push
// gateway.
type InstrumentationService interface {
	// StartInstrumentation starts exposing metrics.
	StartInstrumentation()

	// StopInstrumentation stops exposing metrics.
	StopInstrumentation(ctx context.Context)
}

// New constructs the instrumentation service for the configured mode.
func New(config *MetricsConfig, logger log.Logger) (InstrumentationService, error) {
	switch config.Mode {
	case metricsModeNone:
		return &stubService{}, nil
	case metricsModePull:
		return newPullService(config, logger), nil
	case metricsModePush:
		return newPushService(config, logger)
	default:
		return nil, fmt.Errorf("metrics: unsupported mode: '%v'", config.Mode)
	}
}

type stubService struct{}

func (s *stubService) StartInstrumentation() {}

func (s *stubService) StopInstrumentation(ctx context.Context) {}

// pullService hosts an endpoint prometheus can scrape.
type pullService struct {
	server *http.Server
	logger log.Logger
}

func newPullService(config *MetricsConfig, logger log.Logger) *pullService {
	return &pullService{
		server: &http.Server{
			Addr:           net.JoinHostPort(config.PullAddr, config.PullPort),
			Handler:        promhttp.Handler(),
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
		logger: logger.ForClass("metrics", "pullService"),
	}
}

func (s *pullService) StartInstrumentation() {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error(context.Background(), "metrics server stopped", log.MapFields{
				"call_type": "MetricsServeFailure",
				"addr":      s.server.Addr,
				"err":       err.Error(),
			})
		}
	}()
}

func (s *pullService) StopInstrumentation(ctx context.Context) {
	_ = s.server.Shutdown(ctx)
}

// pushService periodically pushes metrics to a prometheus push gateway.
type pushService struct {
	pusher   *push.Pusher
	interval time.Duration
	logger   log.Logger
	cancel   context.CancelFunc
}

func newPushService(config *MetricsConfig, logger log.Logger) (*pushService, error) {
	for key, value := range map[string]string{
		cfgMetricsPushAddr:          config.PushAddr,
		cfgMetricsPushJobName:       config.PushJobName,
		cfgMetricsPushInstanceLabel: config.PushInstanceLabel,
	} {
		if value == "" {
			return nil, fmt.Errorf("metrics: %s required for push mode", key)
		}
	}

	pusher := push.New(config.PushAddr, config.PushJobName).
		Grouping("instance", config.PushInstanceLabel).
		Gatherer(prometheus.DefaultGatherer)

	return &pushService{
		pusher:   pusher,
		interval: config.PushInterval,
		logger:   logger.ForClass("metrics", "pushService"),
	}, nil
}

func (s *pushService) StartInstrumentation() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.startWorker(ctx)
}

func (s *pushService) StopInstrumentation(ctx context.Context) {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *pushService) startWorker(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-t.C:
			if err := s.pusher.PushContext(ctx); err != nil {
				err := errors.New(errors.ErrPrometheusPushError, err)
				s.logger.Error(ctx, "unable to push to prometheus", err)
			}
		}
	}
}
