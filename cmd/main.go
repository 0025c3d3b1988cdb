package main

import (
	"context"
	"flag"
	stdlog "log"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/openhrm/escalation-engine/pkg/api"
	"github.com/openhrm/escalation-engine/pkg/audit"
	"github.com/openhrm/escalation-engine/pkg/config"
	"github.com/openhrm/escalation-engine/pkg/engine"
	"github.com/openhrm/escalation-engine/pkg/metrics"
	"github.com/openhrm/escalation-engine/pkg/notify"
	"github.com/openhrm/escalation-engine/pkg/ratelimit"
	"github.com/openhrm/escalation-engine/pkg/store"
	"github.com/openhrm/escalation-engine/pkg/version"
	"github.com/openhrm/escalation-engine/pkg/workflow"
)

func main() {
	var (
		debug      bool
		configPath string
	)
	flag.BoolVar(&debug, "debug", false, "enable debug level logging")
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	zl := setupLogger(debug)
	log := zl.Sugar()
	log.With("version", version.Version).Info("Starting escalation engine")

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Error loading escalation engine config: %v", err)
	}

	if debug {
		log.Infof("%#v", cfg)
	}

	recorder := metrics.NewRecorder()
	server := api.NewServer(zl, cfg, debug, recorder.Handler())

	redisStore := store.NewRedisStore(cfg.Redis, log)
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	if err := redisStore.Ping(startupCtx); err != nil {
		cancelStartup()
		log.Fatalf("Error connecting to redis at %s: %v", cfg.Redis.Address, err)
	}
	cancelStartup()

	var notifier workflow.Notifier
	if cfg.Mail.Host != "" {
		notifier = notify.NewMailNotifier(cfg.Mail, log)
	} else {
		notifier = notify.NewLogNotifier(log)
		log.Infow("Mail host not configured; reminders go to the log only")
	}

	var auditSink audit.Sink
	if len(cfg.Audit.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(audit.KafkaSinkConfig{
			Brokers: cfg.Audit.Brokers,
			Topic:   cfg.Audit.Topic,
		}, zl)
		if err != nil {
			log.Fatalf("Error creating kafka audit sink: %v", err)
		}
		auditSink = audit.NewQueuedSink(kafkaSink, audit.QueuedSinkConfig{}, zl)
		log.Infow("Audit trail goes to kafka", "brokers", cfg.Audit.Brokers, "topic", cfg.Audit.Topic)
	} else {
		auditSink = audit.NewLogSink(zl)
	}
	defer func() {
		if err := auditSink.Close(); err != nil {
			log.Warnw("Audit sink close failed", "error", err)
		}
	}()

	dispatcher := engine.NewDispatcher(redisStore, notifier, engine.DispatcherConfig{
		MaxAttempts:    cfg.Engine.DispatchRetryCount,
		InitialBackoff: time.Duration(cfg.Engine.DispatchBackoffMs) * time.Millisecond,
		BaseURL:        cfg.Mail.BaseURL,
		BrandingName:   cfg.Mail.SenderName,
	}, log)
	evaluator := workflow.NewEvaluator(cfg.Engine.WarningThreshold)
	orchestrator := engine.NewOrchestrator(redisStore, dispatcher, evaluator, recorder, auditSink, log)

	limiter := ratelimit.New(ratelimit.DefaultAPIConfig())
	defer limiter.Stop()

	err = server.RegisterAll([]api.APIController{
		engine.NewController(orchestrator, dispatcher, recorder, log, limiter.Middleware()),
	})
	if err != nil {
		log.Fatalf("Error registering engine controllers: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Routine{
		Orchestrator: orchestrator,
		Interval:     cfg.Engine.ScanIntervalDuration(),
		RunTimeout:   cfg.Engine.RunTimeoutDuration(),
		Log:          log,
	}.Start(ctx)

	if err := server.Listen(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

func setupLogger(debug bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	// Disable automatic stacktraces for non-fatal levels to avoid noisy traces in WARN/INFO logs
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339))
	}
	cfg.EncoderConfig.TimeKey = "ts"
	logger, err := cfg.Build()
	if err != nil {
		stdlog.Fatalf("failed to set up logger: %v", err)
	}
	return logger
}
