package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kampouse/fastkv-server/config"
	"github.com/Kampouse/fastkv-server/gateway"
	"github.com/Kampouse/fastkv-server/log"
	"github.com/Kampouse/fastkv-server/metrics"
	"github.com/spf13/pflag"
)

const shutdownGracePeriod = 30 * time.Second

func parseConfig() (*gateway.Config, error) {
	conf := &gateway.Config{}
	parser, err := config.Generate(conf)
	if err != nil {
		return nil, err
	}

	if err := parser.Parse(); err != nil {
		if err == pflag.ErrHelp {
			_ = parser.Usage()
		}
		return nil, err
	}

	return conf, nil
}

func newServer(conf *gateway.Config, handler http.Handler) *http.Server {
	bind := conf.BindPublicConfig
	return &http.Server{
		Addr:           fmt.Sprintf("%s:%d", bind.HttpInterface, bind.HttpPort),
		Handler:        handler,
		ReadTimeout:    time.Duration(bind.HttpReadTimeoutMs) * time.Millisecond,
		WriteTimeout:   time.Duration(bind.HttpWriteTimeoutMs) * time.Millisecond,
		MaxHeaderBytes: int(bind.HttpMaxHeaderBytes),
	}
}

func serve(s *http.Server, conf *gateway.Config) error {
	if conf.BindPublicConfig.HttpsEnabled {
		return s.ListenAndServeTLS(conf.BindPublicConfig.TlsCertificatePath,
			conf.BindPublicConfig.TlsPrivateKeyPath)
	}

	return s.ListenAndServe()
}

func main() {
	conf, err := parseConfig()
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}

	gateway.InitLogger(conf)
	ctx := context.Background()
	gateway.RootLogger.Info(ctx, "Starting gateway with configuration", conf)

	group, err := gateway.NewServiceGroup(ctx, conf)
	if err != nil {
		gateway.RootLogger.Fatal(ctx, "failed to start services", log.MapFields{
			"err": err.Error(),
		})
		os.Exit(1)
	}

	metricsService, err := metrics.New(&conf.MetricsConfig, gateway.RootLogger)
	if err != nil {
		gateway.RootLogger.Fatal(ctx, "failed to start metrics service", log.MapFields{
			"err": err.Error(),
		})
		os.Exit(1)
	}
	metricsService.StartInstrumentation()

	s := newServer(conf, gateway.NewPublicRouter(gateway.NewRouterProps(conf), group))

	errC := make(chan error, 1)
	go func() {
		errC <- serve(s, conf)
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errC:
		if err != nil && err != http.ErrServerClosed {
			gateway.RootLogger.Fatal(ctx, "http server failed to listen", log.MapFields{
				"err": err.Error(),
			})
			os.Exit(1)
		}
	case sig := <-signals:
		gateway.RootLogger.Info(ctx, "shutting down", log.MapFields{
			"signal": sig.String(),
		})
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownGracePeriod)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		gateway.RootLogger.Warn(ctx, "http server shutdown failed", log.MapFields{
			"err": err.Error(),
		})
	}

	group.Close()
	metricsService.StopInstrumentation(shutdownCtx)
}
