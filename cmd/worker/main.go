package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/conorbowles51/owl-n4j-sub001/internal/config"
	"github.com/conorbowles51/owl-n4j-sub001/internal/queue"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/ai"
	ollamaai "github.com/conorbowles51/owl-n4j-sub001/pkg/ai/ollama"
	openaiai "github.com/conorbowles51/owl-n4j-sub001/pkg/ai/openai"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/geo"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/graph"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/logger"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/logger/console"
	casestorage "github.com/conorbowles51/owl-n4j-sub001/pkg/store/pgx"

	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{})
		logger.Init(consoleLogger)
		logger.Fatal("Invalid configuration", "err", err)
	}

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: cfg.Debug,
	})
	logger.Init(consoleLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aiClient := newAIClient(cfg)

	storage, err := casestorage.NewCaseDBStorage(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer storage.Close()

	var geocoder geo.Geocoder
	if cfg.GeocoderEnabled {
		geocoder = geo.NewNominatimGeocoder(geo.NewNominatimGeocoderParams{
			BaseURL:   cfg.GeocoderBaseURL,
			UserAgent: cfg.GeocoderUserAgent,
			Timeout:   cfg.GeocodeTimeout,
		})
	}

	ingestClient, err := graph.NewIngestClient(graph.NewIngestClientParams{
		Store:       storage,
		AIClient:    aiClient,
		Geocoder:    geocoder,
		WorkerLimit: cfg.WorkerLimit,
		HintListCap: cfg.HintListCap,
		ChunkOpts:   cfg.ChunkOpts(),
		Timeouts:    cfg.Timeouts(),
	})
	if err != nil {
		logger.Fatal("Could not create ingest client", "err", err)
	}

	conn := queue.Init(ctx, cfg.RabbitMQURL)
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{cfg.QueueName}); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	// one message at a time: ingestion already parallelizes internally
	if err := consumerCh.Qos(1, 0, false); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		cfg.QueueName,
		cfg.QueueName+"_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", cfg.QueueName, "err", err)
	}

	logger.Info("Listening for messages", "queue", cfg.QueueName)

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Info("Message channel closed", "queue", cfg.QueueName)
					return
				}

				startTime := time.Now()
				logger.Info("Received message", "queue", cfg.QueueName)

				processingErr := queue.ProcessIngestMessage(ctx, ingestClient, string(msg.Body))
				if processingErr != nil {
					logger.Error("Error processing message", "queue", cfg.QueueName, "err", processingErr)
					handleProcessingError(ch, msg, cfg.QueueName)
				} else {
					if err := msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", cfg.QueueName)
				}

				metrics := aiClient.GetMetrics()
				aiDuration := time.Duration(metrics.DurationMs) * time.Millisecond
				logger.Info(
					"AI Metrics",
					"input_tokens", metrics.InputTokens,
					"output_tokens", metrics.OutputTokens,
					"total_tokens", metrics.TotalTokens,
					"duration", formatDuration(aiDuration),
				)
				logger.Info("Processing time", "duration", formatDuration(time.Since(startTime)))
				aiClient.ResetMetrics()
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}

func newAIClient(cfg *config.Config) ai.CaseAIClient {
	switch cfg.AIProvider {
	case "ollama":
		client, err := ollamaai.NewCaseOllamaClient(ollamaai.NewCaseOllamaClientParams{
			CompletionModel:       cfg.CompletionModel,
			ExtractionModel:       cfg.ExtractionModel,
			BaseURL:               cfg.AIBaseURL,
			ApiKey:                cfg.AIAPIKey,
			MaxConcurrentRequests: int64(cfg.AIMaxConcurrent),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		return client
	default:
		return openaiai.NewCaseOpenAIClient(openaiai.NewCaseOpenAIClientParams{
			CompletionModel: cfg.CompletionModel,
			ExtractionModel: cfg.ExtractionModel,
			ChatURL:         cfg.AIBaseURL,
			ChatKey:         cfg.AIAPIKey,
		})
	}
}

func handleProcessingError(ch *amqp.Channel, msg amqp.Delivery, queueName string) {
	retries := 0
	if val, ok := msg.Headers["x-retries"]; ok {
		if v, ok := val.(int32); ok {
			retries = int(v)
		}
	}

	// after 10 attempts the message goes to the dead-letter queue
	if retries >= 10 {
		dlqName := queueName + "_dlq"
		logger.Info("Sending message to DLQ", "dlq", dlqName)
		pubErr := ch.Publish(
			"",
			dlqName,
			false,
			false,
			amqp.Publishing{
				ContentType: "text/plain",
				Body:        msg.Body,
				Headers:     msg.Headers,
			},
		)
		if pubErr != nil {
			logger.Error("Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
		return
	}

	retryName := queueName + "_retry"
	headers := msg.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	headers["x-retries"] = int32(retries + 1)

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp.Publishing{
			ContentType: "text/plain",
			Body:        msg.Body,
			Headers:     headers,
		},
	)
	if pubErr != nil {
		logger.Error("Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
