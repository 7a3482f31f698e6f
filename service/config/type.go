package config

const (
	StorageFiles = "files"
	StorageMinio = "minio"

	DataFiles    = "files"
	DataPostgres = "postgres"

	DetectorPixel   = "pixel"
	DetectorContour = "contour"
)

// PixelParameters tune the pixel neighbourhood detector.
type PixelParameters struct {
	Margin     int
	Threshold1 float64
	Threshold2 float64
	Window1    int
	Window2    int
}

// ContourParameters tune the contour detector.
type ContourParameters struct {
	BinaryThreshold float32
	MinPerimeter    float64
	MaxPerimeter    float64
}

// RenderParameters drive the annotated image and the edge video.
type RenderParameters struct {
	CircleRadius int
	CannyLow     float32
	CannyHigh    float32
	OutputWidth  int
	OutputHeight int
	Codec        string
	FallbackFPS  float64
}

type MinioParameters struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// QueueParameters locate the AMQP queues of the consume mode.
type QueueParameters struct {
	URL         string
	Queue       string
	ResultQueue string
	Prefetch    int
	Workers     int
}

type IService interface {
	GetModeMaxShutdownTime() int
	GetScratchFolder() string
	GetDataFolder() string
	GetStorageBackend() string
	GetStorageFolder() string
	GetMinioParameters() MinioParameters
	GetDataBackend() string
	GetDatabaseURL() string
	GetDataplaneBucket() string
	GetUpstreamOperator() string
	GetDetectorVersion() string
	GetPixelParameters() PixelParameters
	GetContourParameters() ContourParameters
	GetRenderParameters() RenderParameters
	GetQueueParameters() QueueParameters
	GetTracingEndpoint() string
	GetLogLevel() string
	GetLogFormat() string
	GetLogFile() string
	GetDetectionLogFile() string
	GetListenAddress() string
}
