package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRedis()
	c.normalizeCatalog()
	c.normalizeTranscriber()
	c.normalizeLLM()
	if err := c.normalizeMedia(); err != nil {
		return err
	}
	c.normalizeWorker()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.BlobDir, err = expandPath(c.Paths.BlobDir); err != nil {
		return fmt.Errorf("paths.blob_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		c.Database.Path = defaultDatabasePath
	}
	if c.Database.Path, err = expandPath(c.Database.Path); err != nil {
		return fmt.Errorf("database.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeRedis() {
	c.Redis.Addr = strings.TrimSpace(c.Redis.Addr)
	if c.Redis.Addr == "" {
		c.Redis.Addr = defaultRedisAddr
	}
	if c.Redis.Password == "" {
		if value, ok := os.LookupEnv("SCRIBE_REDIS_PASSWORD"); ok {
			c.Redis.Password = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Redis.QueueHigh) == "" {
		c.Redis.QueueHigh = defaultQueueHigh
	}
	if strings.TrimSpace(c.Redis.QueueLow) == "" {
		c.Redis.QueueLow = defaultQueueLow
	}
}

func (c *Config) normalizeCatalog() {
	if c.Catalog.APIKey == "" {
		if value, ok := os.LookupEnv("SCRIBE_CATALOG_API_KEY"); ok {
			c.Catalog.APIKey = strings.TrimSpace(value)
		}
	}
	c.Catalog.BaseURL = strings.TrimSpace(c.Catalog.BaseURL)
	if c.Catalog.BaseURL == "" {
		c.Catalog.BaseURL = defaultCatalogBaseURL
	}
	if strings.TrimSpace(c.Catalog.Language) == "" {
		c.Catalog.Language = defaultCatalogLanguage
	}
}

func (c *Config) normalizeTranscriber() {
	if c.Transcriber.APIKey == "" {
		if value, ok := os.LookupEnv("SCRIBE_TRANSCRIBER_API_KEY"); ok {
			c.Transcriber.APIKey = strings.TrimSpace(value)
		}
	}
	c.Transcriber.BaseURL = strings.TrimSpace(c.Transcriber.BaseURL)
	if c.Transcriber.BaseURL == "" {
		c.Transcriber.BaseURL = defaultTranscriberBaseURL
	}
	if strings.TrimSpace(c.Transcriber.Model) == "" {
		c.Transcriber.Model = defaultTranscriberModel
	}
	if c.Transcriber.TimeoutSeconds <= 0 {
		c.Transcriber.TimeoutSeconds = defaultTranscriberTimeout
	}
}

func (c *Config) normalizeLLM() {
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("SCRIBE_LLM_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeout
	}
}

func (c *Config) normalizeMedia() error {
	if strings.TrimSpace(c.Media.FetchBinary) == "" {
		c.Media.FetchBinary = defaultFetchBinary
	}
	if strings.TrimSpace(c.Media.FFmpegBinary) == "" {
		c.Media.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Media.CookieFile != "" {
		expanded, err := expandPath(c.Media.CookieFile)
		if err != nil {
			return fmt.Errorf("media.cookie_file: %w", err)
		}
		c.Media.CookieFile = expanded
	}
	if c.Media.SplitThresholdMB <= 0 {
		c.Media.SplitThresholdMB = defaultSplitThresholdMB
	}
	if c.Media.SegmentSeconds <= 0 {
		c.Media.SegmentSeconds = defaultSegmentSeconds
	}
	return nil
}

func (c *Config) normalizeWorker() {
	if c.Worker.DequeueTimeoutSeconds <= 0 {
		c.Worker.DequeueTimeoutSeconds = defaultDequeueTimeout
	}
	if c.Worker.RetryDelaySeconds <= 0 {
		c.Worker.RetryDelaySeconds = defaultRetryDelay
	}
	if c.Worker.StageAttempts <= 0 {
		c.Worker.StageAttempts = defaultStageAttempts
	}
	if c.Summarize.ChunkSize <= 0 {
		c.Summarize.ChunkSize = defaultChunkSize
	}
	if c.Summarize.ChunkOverlap < 0 {
		c.Summarize.ChunkOverlap = defaultChunkOverlap
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}
