package main

import (
	"context"
	"docinsight-backend/config"
	"docinsight-backend/controller"
	"docinsight-backend/dao"
	"docinsight-backend/router"
	"docinsight-backend/service/analysis"
	"docinsight-backend/service/extraction"
	"docinsight-backend/service/insight"
	"docinsight-backend/service/mq"
	"docinsight-backend/service/processing"
	"docinsight-backend/service/storage"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and processing workers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Cfg
	if err := initDB(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	llm, err := insight.NewModel(ctx, cfg.Model)
	if err != nil {
		return err
	}
	generator := insight.NewGenerator(llm, cfg.Model.Name, insight.WithTimeout(cfg.Model.Timeout))

	docs := dao.NewDocumentDAO(dao.DB)

	var archiver *storage.Archiver
	pipelineOpts := []processing.PipelineOption{}
	if cfg.OSS.Enabled {
		archiver = storage.NewArchiver(storage.NewOSSClient(cfg.OSS), cfg.OSS.BucketName, cfg.OSS.PresignExpires)
		pipelineOpts = append(pipelineOpts, processing.WithArchiver(archiver))
	}

	pipeline := processing.NewPipeline(docs, extraction.NewExtractor(), generator, pipelineOpts...)
	pool := processing.NewPool(pipeline, cfg.Worker.Num, cfg.Worker.QueueSize)
	pool.Start()

	var (
		scheduler   processing.Scheduler = pool
		mqScheduler *mq.Scheduler
	)
	if cfg.Dispatch.Mode == config.DispatchRocketMQ {
		mqScheduler, err = mq.NewScheduler(cfg.Dispatch.NameServer, pool)
		if err != nil {
			return err
		}
		if err := mqScheduler.Run(); err != nil {
			return err
		}
		scheduler = mqScheduler
	}

	docSvc := processing.NewService(docs, scheduler, generator, cfg.Upload.Dir, cfg.Upload.MaxFileSize)
	analysisSvc := analysis.NewService(
		docs,
		dao.NewPromptTemplateDAO(dao.DB),
		dao.NewAnalysisDAO(dao.DB),
		generator,
		analysis.NewCache(cfg.Cache.Size, cfg.Cache.TTL),
	)

	var linker controller.DownloadLinker
	if archiver != nil {
		linker = archiver
	}

	gin.SetMode(gin.ReleaseMode)
	engine := router.Register(router.Deps{
		Documents:          controller.NewDocumentController(docSvc, linker, cfg.Status.PollInterval),
		Prompts:            controller.NewPromptController(analysisSvc),
		Analysis:           controller.NewAnalysisController(analysisSvc),
		JWTSecretKey:       cfg.JWT.SecretKey,
		AllowOrigins:       cfg.Server.AllowOrigins,
		MaxMultipartMemory: cfg.Upload.MaxFileSize,
		HealthCheck: func(ctx context.Context) error {
			return dao.Ping(ctx, dao.DB)
		},
	})

	return serve(ctx, engine, cfg.Addr(), func(ctx context.Context) {
		// 先停止消费，再等待本地队列中的任务结束
		if mqScheduler != nil {
			mqScheduler.Shutdown()
		}
		if err := pool.Shutdown(ctx); err != nil {
			slog.Error("Failed to shutdown processing pool", "err", err)
		}
	})
}

func serve(ctx context.Context, handler http.Handler, addr string, onShutdown func(context.Context)) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if err != nil {
			serveErr = fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Failed to shutdown server", "err", err)
	}
	onShutdown(shutdownCtx)
	return serveErr
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initDB(); err != nil {
			return err
		}
		slog.Info("Database migrated", "driver", config.Cfg.Database.Driver)
		return nil
	},
}

// newAnalysisService 供不需要模型的命令使用
func newAnalysisService(db *gorm.DB) *analysis.Service {
	return analysis.NewService(
		dao.NewDocumentDAO(db),
		dao.NewPromptTemplateDAO(db),
		dao.NewAnalysisDAO(db),
		nil,
		analysis.NewCache(1, time.Minute),
	)
}
