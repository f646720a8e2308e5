package main

import (
	"strings"
	"sync"

	"scribe/internal/config"
	"scribe/internal/queue"
	"scribe/internal/services/catalog"
	"scribe/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withStore opens the relational store for the duration of one command.
func (c *commandContext) withStore(fn func(*config.Config, *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(cfg, st)
}

// withQueue opens the Redis queue for the duration of one command.
func (c *commandContext) withQueue(fn func(*config.Config, *queue.Queue) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	q := queue.New(cfg)
	defer q.Close()
	return fn(cfg, q)
}

// withStoreAndQueue opens both backends for commands that touch each.
func (c *commandContext) withStoreAndQueue(fn func(*config.Config, *store.Store, *queue.Queue) error) error {
	return c.withStore(func(cfg *config.Config, st *store.Store) error {
		q := queue.New(cfg)
		defer q.Close()
		return fn(cfg, st, q)
	})
}

func (c *commandContext) catalogClient(cfg *config.Config) *catalog.Client {
	return catalog.NewClient(catalog.Config{
		APIKey:   cfg.Catalog.APIKey,
		BaseURL:  cfg.Catalog.BaseURL,
		Language: cfg.Catalog.Language,
	})
}
