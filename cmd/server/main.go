package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"polybin/internal/actuator"
	"polybin/internal/alert"
	"polybin/internal/arbiter"
	"polybin/internal/audit"
	"polybin/internal/dashboard"
	"polybin/internal/database"
	"polybin/internal/dataset"
	"polybin/internal/detection"
	"polybin/internal/models"
	"polybin/internal/mqtt"
	"polybin/internal/notifier"
	"polybin/internal/notify"
	"polybin/internal/sensor"
	"polybin/internal/services"
	"polybin/pkg/config"
)

func main() {
	log.Println("Starting Polybin controller...")

	// Load configuration
	cfg := config.Load()

	// Create context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// === Audit store ===
	var sink audit.Sink = audit.NopSink{}
	var history dashboard.History
	db, err := database.NewClickHouseDB(
		cfg.ClickHouseAddr,
		cfg.ClickHouseDB,
		cfg.ClickHouseUser,
		cfg.ClickHousePass,
	)
	if err != nil {
		log.Printf("Warning: ClickHouse unavailable, audit records will only be logged: %v", err)
		if cfg.Debug {
			sink = audit.LogSink{}
		}
	} else {
		defer db.Close()
		sink = db
		history = db
	}
	auditLogger := audit.NewLogger(sink, cfg.AuditQueueSize)

	// === Dataset capture ===
	var samples services.SampleSubmitter
	var uploader *dataset.Uploader
	if cfg.MinioEndpoint != "" {
		client, err := dataset.NewMinioClient(ctx, dataset.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Printf("Warning: dataset capture disabled: %v", err)
		} else {
			uploader = dataset.NewUploader(client, cfg.MinioBucket, dataset.DefaultQueueSize)
			samples = uploader
		}
	}

	// === Initialize MQTT Client ===
	log.Println("Connecting to MQTT broker...")
	mqttClient, err := mqtt.NewClient(mqtt.ClientConfig{
		Broker:      cfg.MQTTBroker,
		ClientID:    cfg.MQTTClientID,
		Username:    cfg.MQTTUsername,
		Password:    cfg.MQTTPassword,
		StatusTopic: cfg.MQTTTopicStatus,
	})
	if err != nil {
		log.Fatalf("Failed to initialize MQTT client: %v", err)
	}
	defer mqttClient.Close()

	publisher := mqtt.NewPublisher(
		mqttClient.GetNativeClient(),
		mqtt.PublisherConfig{EventTopic: cfg.MQTTTopicEvents},
		make(chan *models.Event, 64),
	)

	// === Core components ===
	store := sensor.NewStore()
	reader := sensor.NewReader(sensor.NewSerialLink(sensor.SerialConfig{
		PortName:  cfg.SensorSerialPort,
		BaudRate:  cfg.SensorBaudRate,
		FrameSize: cfg.SensorFrameSize,
		Timeout:   cfg.SerialTimeout,
	}), store)

	debouncer := detection.NewDebouncer(detection.Config{
		ConfirmationTime:  cfg.ConfirmationTime,
		ConfirmationRatio: cfg.ConfirmationRatio,
		WindowSize:        detection.DefaultWindowSize,
		Verbose:           cfg.Debug,
	})

	servo := mqtt.NewServoDriver(mqttClient.GetNativeClient(), mqtt.ServoDriverConfig{
		Topic:  cfg.MQTTTopicServo,
		Settle: cfg.ServoSettle,
	})
	act := actuator.New(servo, actuator.Config{
		Cooldown: cfg.ActuatorCooldown,
		Pause:    cfg.DisposePause,
	})

	alertCfg := alert.DefaultConfig()
	alertCfg.StandardCooldown = cfg.AlertCooldown
	alertCfg.RemoveCooldown = cfg.RemoveAlertCooldown
	alertCfg.InitAttempts = cfg.AudioInitAttempts
	player := alert.NewPlayer(alertCfg, alert.NewCommandBackend(cfg.AudioPlayer), alert.SoundLibrary{Dir: cfg.SoundsDir})

	arb := arbiter.New(act, debouncer, player, auditLogger, cfg.SensorThreshold)

	gsm := notifier.NewGSM(notifier.Config{
		PortName: cfg.GSMSerialPort,
		BaudRate: cfg.GSMBaudRate,
		Warmup:   cfg.GSMWarmup,
	}, nil)
	gate := notify.NewGate(cfg.SensorThreshold, cfg.NotificationInterval)

	// === Dashboard and event fan-out ===
	hub := dashboard.NewHub(func() *models.Event {
		snap := store.Snapshot()
		return services.SensorUpdateEvent(snap.Levels, time.Now())
	})
	events := services.NewEventBroadcaster(hub, publisher)

	// === Services ===
	disposalService := services.NewDisposalService(arb, store, debouncer, samples, events)

	detectionCfg := services.DefaultDetectionServiceConfig()
	detectionCfg.MinConfidence = cfg.DetectionMinConfidence
	detectionCfg.Verbose = cfg.Debug
	detectionService := services.NewDetectionService(debouncer, auditLogger, disposalService, detectionCfg)

	sensorService := services.NewSensorService(reader, store, auditLogger, events, services.SensorServiceConfig{
		Interval: cfg.SensorUpdateInterval,
		Timeout:  cfg.SensorUpdateInterval,
	})

	notificationService := services.NewNotificationService(gate, gsm, store, auditLogger, player, services.NotificationServiceConfig{
		Tick:  cfg.SensorUpdateInterval,
		Delay: cfg.NotificationDelay,
	})

	// Vision frames flow straight into the detection service
	subscriber := mqtt.NewSubscriber(
		mqttClient.GetNativeClient(),
		mqtt.SubscriberConfig{PredictionsTopic: cfg.MQTTTopicPredictions, Verbose: cfg.Debug},
		detectionService.FrameChan,
	)
	if err := subscriber.SubscribeAll(); err != nil {
		log.Fatalf("Failed to subscribe to MQTT topics: %v", err)
	}

	reporter := &services.StatusReporter{
		Detection:    detectionService,
		Debouncer:    debouncer,
		Disposal:     disposalService,
		Sensor:       sensorService,
		Notification: notificationService,
		Queues: func() services.QueueStats {
			written, failed, dropped := auditLogger.Stats()
			played, alertsDropped := player.Stats()
			q := services.QueueStats{
				AuditWritten:  written,
				AuditFailed:   failed,
				AuditDropped:  dropped,
				AlertsPlayed:  played,
				AlertsDropped: alertsDropped,
				AudioEnabled:  player.Enabled(),
				EventsDropped: hub.Dropped(),
			}
			if uploader != nil {
				q.DatasetUploaded, q.DatasetDropped = uploader.Stats()
			}
			return q
		},
	}

	server := dashboard.NewServer(dashboard.Config{
		Addr:         cfg.HTTPAddr,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		Debug:        cfg.Debug,
	}, hub, store, disposalService, history, reporter.Status)

	// === Run ===
	g, gctx := errgroup.WithContext(ctx)
	run := func(start func(context.Context)) {
		g.Go(func() error {
			start(gctx)
			return nil
		})
	}

	run(auditLogger.Start)
	run(player.Start)
	run(publisher.Start)
	run(disposalService.Start)
	run(detectionService.Start)
	run(sensorService.Start)
	run(notificationService.Start)
	if uploader != nil {
		run(uploader.Start)
	}
	g.Go(func() error {
		return server.Start(gctx)
	})

	log.Println("=== Polybin controller is running ===")
	log.Printf("Fill threshold: %.0f, actuator cooldown: %v, confirmation: %v at %.0f%%",
		cfg.SensorThreshold, cfg.ActuatorCooldown, cfg.ConfirmationTime, cfg.ConfirmationRatio*100)
	log.Printf("MQTT Topics:")
	log.Printf("  - Predictions: %s", cfg.MQTTTopicPredictions)
	log.Printf("  - Events:      %s", cfg.MQTTTopicEvents)
	log.Printf("  - Servo:       %s", cfg.MQTTTopicServo)
	log.Printf("Serial: sensors on %s, GSM on %s", cfg.SensorSerialPort, cfg.GSMSerialPort)
	log.Println("Press Ctrl+C to exit...")

	// === Wait for shutdown ===
	if err := g.Wait(); err != nil {
		log.Printf("Service error: %v", err)
	}
	log.Println("Shutdown complete. Goodbye!")
}
