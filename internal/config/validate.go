package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRedis(); err != nil {
		return err
	}
	if err := c.validateSummarize(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRedis() error {
	if c.Redis.Addr == "" {
		return errors.New("redis.addr must be set")
	}
	if c.Redis.QueueHigh == "" || c.Redis.QueueLow == "" {
		return errors.New("redis.queue_high and redis.queue_low must be set")
	}
	if c.Redis.QueueHigh == c.Redis.QueueLow {
		return errors.New("redis.queue_high and redis.queue_low must differ")
	}
	if c.Redis.DB < 0 {
		return errors.New("redis.db must not be negative")
	}
	return nil
}

func (c *Config) validateSummarize() error {
	if c.Summarize.ChunkSize <= 0 {
		return errors.New("summarize.chunk_size must be positive")
	}
	if c.Summarize.ChunkOverlap < 0 {
		return errors.New("summarize.chunk_overlap must not be negative")
	}
	if c.Summarize.ChunkOverlap >= c.Summarize.ChunkSize {
		return fmt.Errorf("summarize.chunk_overlap (%d) must be smaller than summarize.chunk_size (%d)",
			c.Summarize.ChunkOverlap, c.Summarize.ChunkSize)
	}
	return nil
}

func (c *Config) validateMedia() error {
	if c.Media.SplitThresholdMB <= 0 {
		return errors.New("media.split_threshold_mb must be positive")
	}
	if c.Media.SegmentSeconds <= 0 {
		return errors.New("media.segment_seconds must be positive")
	}
	return nil
}

func (c *Config) validateWorker() error {
	if c.Worker.DequeueTimeoutSeconds <= 0 {
		return errors.New("worker.dequeue_timeout_seconds must be positive")
	}
	if c.Worker.StageAttempts <= 0 {
		return errors.New("worker.stage_attempts must be positive")
	}
	return nil
}
