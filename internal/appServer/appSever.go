// launching the server, redis, postgres, kafka
package appServer

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ds124wfegd/imgenhance/config"
	"github.com/ds124wfegd/imgenhance/internal/database"
	"github.com/ds124wfegd/imgenhance/internal/pkg/kafka"
	"github.com/ds124wfegd/imgenhance/internal/pkg/storage"
	"github.com/ds124wfegd/imgenhance/internal/service"
	"github.com/ds124wfegd/imgenhance/internal/transport"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func NewServer(cfg *config.Config) {

	setupLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	stores := openBackends(ctx, cfg)
	cancel()
	defer stores.Close()

	orchestrator := newOrchestrator(cfg)
	enhanceService := service.NewEnhanceService(orchestrator, stores.resultCache(), service.Options{
		Budget:         cfg.Pipeline.Budget,
		MaxConcurrent:  cfg.Pipeline.MaxConcurrent,
		MaxInputPixels: cfg.Pipeline.MaxInputPixels,
	})

	// Async jobs need the job table
	var jobService service.JobService
	if jobRepo := stores.jobRepository(); jobRepo != nil {
		imgRepo := database.NewImageRepository(storage.NewFileStorage(cfg.Storage.BasePath))
		kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaProducer.Close()

		jobService = service.NewJobService(jobRepo, imgRepo, stores.jobCache(), kafkaProducer, cfg.Pipeline.MaxInputPixels)
		logrus.Info("Async jobs enabled")
	} else {
		logrus.Warn("Database disabled, async job endpoints will answer 503")
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := transport.InitRoutes(
		transport.NewEnhanceHandler(enhanceService),
		transport.NewJobHandler(jobService),
		cfg.Server.Timeout,
	)

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, router); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.WithFields(logrus.Fields{
		"port":    cfg.Server.Port,
		"version": cfg.Server.AppVersion,
	}).Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}
}
