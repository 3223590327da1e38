package main

import (
	"context"
	"strings"
	"sync"
	"time"

	"mediaforge/internal/config"
	"mediaforge/internal/daemon"
	"mediaforge/internal/logging"
	"mediaforge/internal/queue"
	"mediaforge/internal/scratch"
	"mediaforge/internal/workflow"
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

// session bundles the open store and manager behind one cleanup call.
type session struct {
	cfg     *config.Config
	store   *queue.Store
	manager *workflow.Manager
	daemon  *daemon.Daemon
	close   func()
}

func (c *commandContext) openSession() (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		LogDir: cfg.Paths.LogDir,
	})
	if err != nil {
		return nil, err
	}
	store, err := queue.Open(cfg.Paths.QueuePath)
	if err != nil {
		return nil, err
	}
	files, err := scratch.NewRegistry(cfg.Paths.ScratchDir)
	if err != nil {
		store.Close()
		return nil, err
	}
	manager := workflow.NewManager(cfg, store, files, logger)
	d, err := daemon.New(cfg, store, logger, manager)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &session{
		cfg:     cfg,
		store:   store,
		manager: manager,
		daemon:  d,
		close: func() {
			d.Stop()
			store.Close()
		},
	}, nil
}

// processUntilSettled starts the pipeline and blocks until every tracked
// item is terminal or held for approval.
func (s *session) processUntilSettled(ctx context.Context, ids []string) error {
	if err := s.daemon.Start(ctx); err != nil {
		return err
	}
	for {
		settled := true
		for _, id := range ids {
			item, err := s.store.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if item == nil {
				continue
			}
			if !item.IsTerminal() && item.Status != queue.StatusPendingApproval {
				settled = false
				break
			}
		}
		if settled {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}
