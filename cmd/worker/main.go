package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/streadway/amqp"

	"skillgap-backend/internal/bootstrap"
	"skillgap-backend/internal/queue"
	"skillgap-backend/internal/shared/config"
	"skillgap-backend/internal/shared/metrics"
	"skillgap-backend/internal/shared/storage/db"
	"skillgap-backend/internal/shared/telemetry"
	"skillgap-backend/internal/workerproc"
)

const (
	consumerTag               = "skillgap-worker"
	defaultWorkerConcurrency  = 2
	defaultShutdownTimeoutSec = 30
)

func main() {
	cfg := config.Load()
	if strings.TrimSpace(cfg.AMQPURL) == "" {
		log.Fatal("AMQP_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	concurrency := cfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = defaultWorkerConcurrency
	}
	shutdownTimeout := time.Duration(envInt("WORKER_SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownTimeoutSec)) * time.Second

	app, err := bootstrap.Build(ctx, cfg, bootstrap.Options{
		DB:         db.DefaultWorkerOptions(),
		SkipRouter: true,
		SkipQueue:  true,
	})
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatalf("dial amqp: %v", err)
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("open amqp channel: %v", err)
	}
	if err := queue.DeclareQueue(ch, cfg.AMQPQueue); err != nil {
		log.Fatalf("%v", err)
	}
	// Prefetch matches the pool so no delivery waits behind a busy worker.
	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("amqp qos: %v", err)
	}
	deliveries, err := ch.Consume(cfg.AMQPQueue, consumerTag, false, false, false, false, nil)
	if err != nil {
		log.Fatalf("amqp consume: %v", err)
	}

	telemetry.Info("worker.started", map[string]any{
		"queue":       cfg.AMQPQueue,
		"concurrency": concurrency,
	})

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range deliveries {
				// In-flight jobs finish even after a shutdown signal.
				handleDelivery(context.WithoutCancel(ctx), app.AnalysesService, d)
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-conn.NotifyClose(make(chan *amqp.Error, 1)):
		if err != nil {
			telemetry.Error("worker.connection_closed", map[string]any{"error": err.Error()})
		}
	}

	telemetry.Info("worker.shutdown", map[string]any{"timeout": shutdownTimeout.String()})
	if err := ch.Cancel(consumerTag, false); err != nil {
		telemetry.Warn("worker.cancel_failed", map[string]any{"error": err.Error()})
	}
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(shutdownTimeout):
		telemetry.Warn("worker.shutdown_timeout", map[string]any{"timeout": shutdownTimeout.String()})
	}
}

// handleDelivery processes one delivery and settles it. Malformed messages
// are rejected without requeue; retryable failures are requeued once.
func handleDelivery(ctx context.Context, processor workerproc.Processor, d amqp.Delivery) {
	metrics.IncAnalysisJobsReceived()
	body := string(d.Body)

	decoded, meta, err := workerproc.ParseMessage(body)
	if err != nil {
		fields := baseFields(d, "", "")
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		event := "worker.analysis.decode_failed"
		switch e := err.(type) {
		case workerproc.ErrEmptyBody:
			event = "worker.analysis.empty_body"
		case workerproc.ErrMissingAnalysisID:
			event = "worker.analysis.missing_id"
			if e.RequestID != "" {
				fields["request_id"] = e.RequestID
			}
		default:
			fields["error"] = err.Error()
		}
		telemetry.Error(event, fields)
		if settle(d, d.Reject(false), "", "") {
			metrics.IncAnalysisJobsDeletedUnrecoverable()
		}
		return
	}

	telemetry.Info("worker.analysis.received", baseFields(d, decoded.AnalysisID, decoded.RequestID))

	if err := workerproc.HandleMessage(workerproc.WithParsedMessage(ctx, decoded), processor, body); err != nil {
		requeue := false
		var procErr workerproc.ErrProcess
		if errors.As(err, &procErr) {
			requeue = procErr.Retryable() && !d.Redelivered
		}
		fields := baseFields(d, decoded.AnalysisID, decoded.RequestID)
		fields["error"] = err.Error()
		fields["requeue"] = requeue
		telemetry.Error("worker.analysis.failed", fields)
		metrics.IncAnalysisJobsFailed()
		settle(d, d.Nack(false, requeue), decoded.AnalysisID, decoded.RequestID)
		return
	}

	if settle(d, d.Ack(false), decoded.AnalysisID, decoded.RequestID) {
		telemetry.Info("worker.analysis.completed", baseFields(d, decoded.AnalysisID, decoded.RequestID))
		metrics.IncAnalysisJobsCompleted()
	}
}

func settle(d amqp.Delivery, err error, analysisID, requestID string) bool {
	if err == nil {
		return true
	}
	fields := baseFields(d, analysisID, requestID)
	fields["error"] = err.Error()
	telemetry.Error("worker.analysis.settle_failed", fields)
	return false
}

func baseFields(d amqp.Delivery, analysisID, requestID string) map[string]any {
	fields := map[string]any{
		"analysis_id":  analysisID,
		"delivery_tag": d.DeliveryTag,
		"message_id":   d.MessageId,
		"redelivered":  d.Redelivered,
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}
