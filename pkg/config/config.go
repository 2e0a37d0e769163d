package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// MQTT Configuration
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	// MQTT topics
	MQTTTopicPredictions string
	MQTTTopicEvents      string
	MQTTTopicServo       string
	MQTTTopicStatus      string

	// ClickHouse Configuration
	ClickHouseAddr string
	ClickHouseDB   string
	ClickHouseUser string
	ClickHousePass string
	AuditQueueSize int

	// MinIO Configuration (dataset capture)
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Serial links
	SensorSerialPort string
	SensorBaudRate   int
	SensorFrameSize  int
	GSMSerialPort    string
	GSMBaudRate      int
	GSMWarmup        time.Duration
	SerialTimeout    time.Duration

	// Thresholds and intervals
	SensorThreshold        float64
	NotificationInterval   time.Duration
	NotificationDelay      time.Duration
	SensorUpdateInterval   time.Duration
	ActuatorCooldown       time.Duration
	ConfirmationTime       time.Duration
	ConfirmationRatio      float64
	DetectionMinConfidence float64
	AlertCooldown          time.Duration
	RemoveAlertCooldown    time.Duration
	ServoSettle            time.Duration
	DisposePause           time.Duration

	// Audio
	SoundsDir         string
	AudioPlayer       string
	AudioInitAttempts int

	// HTTP
	HTTPAddr string

	Debug bool
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		// MQTT Configuration
		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "polybin"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		// MQTT topics
		MQTTTopicPredictions: getEnv("MQTT_TOPIC_PREDICTIONS", "polybin/vision/predictions"),
		MQTTTopicEvents:      getEnv("MQTT_TOPIC_EVENTS", "polybin/events/{event}"),
		MQTTTopicServo:       getEnv("MQTT_TOPIC_SERVO", "polybin/servo/{axis}"),
		MQTTTopicStatus:      getEnv("MQTT_TOPIC_STATUS", "polybin/status"),

		// ClickHouse Configuration
		ClickHouseAddr: getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:   getEnv("CLICKHOUSE_DB", "polybin"),
		ClickHouseUser: getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePass: getEnv("CLICKHOUSE_PASS", ""),
		AuditQueueSize: getEnvInt("AUDIT_QUEUE_SIZE", 256),

		// MinIO Configuration
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "dataset"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		// Serial links
		SensorSerialPort: getEnv("SENSOR_SERIAL_PORT", "/dev/ttyACM0"),
		SensorBaudRate:   getEnvInt("SENSOR_BAUD_RATE", 19200),
		SensorFrameSize:  getEnvInt("SENSOR_FRAME_SIZE", 20),
		GSMSerialPort:    getEnv("GSM_SERIAL_PORT", "/dev/ttyUSB0"),
		GSMBaudRate:      getEnvInt("GSM_BAUD_RATE", 9600),
		GSMWarmup:        getEnvDuration("GSM_WARMUP", 2*time.Second),
		SerialTimeout:    getEnvDuration("SERIAL_TIMEOUT", 1*time.Second),

		// Thresholds and intervals
		SensorThreshold:        getEnvFloat("SENSOR_THRESHOLD", 13),
		NotificationInterval:   getEnvDuration("NOTIFICATION_INTERVAL", 10*time.Second),
		NotificationDelay:      getEnvDuration("NOTIFICATION_DELAY", 5*time.Second),
		SensorUpdateInterval:   getEnvDuration("SENSOR_UPDATE_INTERVAL", 2*time.Second),
		ActuatorCooldown:       getEnvDuration("ACTUATOR_COOLDOWN", 2*time.Second),
		ConfirmationTime:       getEnvDuration("CONFIRMATION_TIME", 2*time.Second),
		ConfirmationRatio:      getEnvFloat("CONFIRMATION_RATIO", 0.8),
		DetectionMinConfidence: getEnvFloat("DETECTION_MIN_CONFIDENCE", 0.7),
		AlertCooldown:          getEnvDuration("ALERT_COOLDOWN", 300*time.Second),
		RemoveAlertCooldown:    getEnvDuration("REMOVE_ALERT_COOLDOWN", 30*time.Second),
		ServoSettle:            getEnvDuration("SERVO_SETTLE", 1*time.Second),
		DisposePause:           getEnvDuration("DISPOSE_PAUSE", 1*time.Second),

		// Audio
		SoundsDir:         getEnv("SOUNDS_DIR", "./sounds"),
		AudioPlayer:       getEnv("AUDIO_PLAYER", "mpg123"),
		AudioInitAttempts: getEnvInt("AUDIO_INIT_ATTEMPTS", 3),

		// HTTP
		HTTPAddr: getEnv("HTTP_ADDR", ":5000"),

		Debug: getEnvBool("DEBUG", false),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: failed to parse %s as float, using default: %v", key, err)
		return defaultValue
	}
	return floatValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as int, using default: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as bool, using default: %v", key, err)
		return defaultValue
	}
	return boolValue
}

// getEnvDuration accepts Go durations ("1500ms", "2s") or plain seconds ("2", "0.5")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds < 0 {
		log.Printf("Warning: failed to parse %s as duration, using default: %q", key, value)
		return defaultValue
	}
	return time.Duration(seconds * float64(time.Second))
}
