package main

import (
	"context"

	"github.com/handrail/handrail"
)

// commandContext defers engine assembly until a command actually runs, so
// that flag parsing and help never touch the config.
type commandContext struct {
	configFlag *string

	engine *handrail.Service
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureEngine assembles (once) the engine from the --config file, or from
// defaults when no file is given.
func (c *commandContext) ensureEngine(ctx context.Context) (*handrail.Service, error) {
	if c.engine != nil {
		return c.engine, nil
	}
	config := handrail.DefaultConfig()
	if *c.configFlag != "" {
		loaded, err := handrail.LoadConfig(ctx, *c.configFlag)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	engine, err := handrail.New(handrail.WithConfig(config))
	if err != nil {
		return nil, err
	}
	c.engine = engine
	return engine, nil
}
