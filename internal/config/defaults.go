package config

const (
	defaultWorkDir            = "~/.local/share/scribe/work"
	defaultBlobDir            = "~/.local/share/scribe/blobs"
	defaultLogDir             = "~/.local/share/scribe/logs"
	defaultDatabasePath       = "~/.local/share/scribe/scribe.db"
	defaultRedisAddr          = "127.0.0.1:6379"
	defaultQueueHigh          = "scribe:tasks:high"
	defaultQueueLow           = "scribe:tasks:low"
	defaultCatalogBaseURL     = "https://www.googleapis.com/youtube/v3"
	defaultCatalogLanguage    = "en"
	defaultTranscriberBaseURL = "https://api.openai.com/v1"
	defaultTranscriberModel   = "gpt-4o-transcribe"
	defaultTranscriberTimeout = 600
	defaultLLMBaseURL         = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel           = "google/gemini-3-flash-preview"
	defaultLLMTimeout         = 60
	defaultFetchBinary        = "yt-dlp"
	defaultFFmpegBinary       = "ffmpeg"
	defaultSplitThresholdMB   = 20
	defaultSegmentSeconds     = 300
	defaultChunkSize          = 1000
	defaultChunkOverlap       = 100
	defaultDequeueTimeout     = 10
	defaultRetryDelay         = 5
	defaultStageAttempts      = 2
	defaultNtfyTimeout        = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			BlobDir: defaultBlobDir,
			LogDir:  defaultLogDir,
		},
		Database: Database{
			Path: defaultDatabasePath,
		},
		Redis: Redis{
			Addr:      defaultRedisAddr,
			QueueHigh: defaultQueueHigh,
			QueueLow:  defaultQueueLow,
		},
		Catalog: Catalog{
			BaseURL:  defaultCatalogBaseURL,
			Language: defaultCatalogLanguage,
		},
		Transcriber: Transcriber{
			BaseURL:        defaultTranscriberBaseURL,
			Model:          defaultTranscriberModel,
			TimeoutSeconds: defaultTranscriberTimeout,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeout,
		},
		Media: Media{
			FetchBinary:      defaultFetchBinary,
			FFmpegBinary:     defaultFFmpegBinary,
			SplitThresholdMB: defaultSplitThresholdMB,
			SegmentSeconds:   defaultSegmentSeconds,
		},
		Summarize: Summarize{
			ChunkSize:    defaultChunkSize,
			ChunkOverlap: defaultChunkOverlap,
		},
		Worker: Worker{
			DequeueTimeoutSeconds: defaultDequeueTimeout,
			RetryDelaySeconds:     defaultRetryDelay,
			StageAttempts:         defaultStageAttempts,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			Chain:          true,
			Summary:        true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
