package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"sensor-fusion-go/internal/models"
)

// Gap policies for frames that never came back from the worker pool
const (
	GapPolicySkip   = "skip"
	GapPolicyRepeat = "repeat"
)

type Config struct {
	// Application
	Version      string
	Environment  string
	LogLevel     string
	ErrorLogPath string

	// Logdy (lightweight web log viewer, local debugging only)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Live fusion loop
	CameraIndex   int
	Resolution    models.Resolution
	Frequency     time.Duration // render/poll delay and camera producer idle
	QueueCapacity int
	SensorDelays  [3]time.Duration
	WindowName    string

	// Overlay
	OverlayFont  int
	OverlayScale float64

	// Parallel frame processing
	InputPath        string
	Threads          int
	OutputPath       string
	WorkerPopTimeout time.Duration
	CollectTimeout   time.Duration
	GapPolicy        string

	// Video Recording
	OutputFPS   float64
	OutputCodec string

	// Pose model
	PoseModelPath      string
	PoseInputSize      int
	PoseScoreThreshold float64
	PoseNMSThreshold   float64
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	resolution, err := models.ParseResolution(getEnv("RESOLUTION", "640x480"))
	if err != nil {
		log.Warn().Err(err).Msg("Invalid RESOLUTION, using 640x480")
		resolution = models.Resolution{Width: 640, Height: 480}
	}

	return &Config{
		// Application
		Version:      getEnv("VERSION", "1.0.0"),
		Environment:  getEnv("ENVIRONMENT", "development"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		ErrorLogPath: getEnv("ERROR_LOG_PATH", "./log/errors.log"),

		// Logdy
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// Live fusion loop
		CameraIndex:   getEnvInt("CAMERA_INDEX", 0),
		Resolution:    resolution,
		Frequency:     getEnvDuration("FREQUENCY", time.Millisecond),
		QueueCapacity: getEnvInt("QUEUE_CAPACITY", 2),
		SensorDelays: [3]time.Duration{
			getEnvDuration("SENSOR1_DELAY", 1*time.Second),
			getEnvDuration("SENSOR2_DELAY", 100*time.Millisecond),
			getEnvDuration("SENSOR3_DELAY", 10*time.Millisecond),
		},
		WindowName: getEnv("WINDOW_NAME", "1"),

		// Overlay
		OverlayFont:  getEnvInt("OVERLAY_FONT", 3), // Hershey complex
		OverlayScale: getEnvFloat("OVERLAY_SCALE", 1.2),

		// Parallel frame processing
		InputPath:        getEnv("INPUT_PATH", ""),
		Threads:          getEnvInt("THREADS", 1),
		OutputPath:       getEnv("OUTPUT_PATH", "output.mp4"),
		WorkerPopTimeout: getEnvDuration("WORKER_POP_TIMEOUT", 1*time.Second),
		CollectTimeout:   getEnvDuration("COLLECT_TIMEOUT", 2*time.Second),
		GapPolicy:        getEnv("GAP_POLICY", GapPolicySkip),

		// Video Recording
		OutputFPS:   getEnvFloat("OUTPUT_FPS", 30),
		OutputCodec: getEnv("OUTPUT_CODEC", "mp4v"),

		// Pose model
		PoseModelPath:      getEnv("POSE_MODEL_PATH", "yolov8n-pose.onnx"),
		PoseInputSize:      getEnvInt("POSE_INPUT_SIZE", 640),
		PoseScoreThreshold: getEnvFloat("POSE_SCORE_THRESHOLD", 0.5),
		PoseNMSThreshold:   getEnvFloat("POSE_NMS_THRESHOLD", 0.45),
	}
}

// Validate checks the values both binaries depend on
func (c *Config) Validate() error {
	if c.QueueCapacity < 1 {
		return fmt.Errorf("queue capacity must be at least 1, got %d", c.QueueCapacity)
	}
	if c.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", c.Threads)
	}
	if c.Frequency < 0 {
		return fmt.Errorf("frequency must not be negative, got %s", c.Frequency)
	}
	if c.WorkerPopTimeout <= 0 || c.CollectTimeout <= 0 {
		return fmt.Errorf("worker and collect timeouts must be positive")
	}
	if c.OutputFPS <= 0 {
		return fmt.Errorf("output fps must be positive, got %v", c.OutputFPS)
	}
	switch c.GapPolicy {
	case GapPolicySkip, GapPolicyRepeat:
	default:
		return fmt.Errorf("unknown gap policy %q (want %q or %q)", c.GapPolicy, GapPolicySkip, GapPolicyRepeat)
	}
	return nil
}

// SecondsToDuration converts the --frequency flag (seconds, fractional) to a duration
func SecondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
