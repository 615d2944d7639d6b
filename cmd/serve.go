package cmd

import (
	"github.com/df07/go-bvh/web/server"
	"github.com/urfave/cli"
)

// Serve the preview API over HTTP.
func Serve(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		logger.Error(err)
		return err
	}

	if err := server.NewServer(ctx.Int("port"), cfg).Start(); err != nil {
		logger.Error(err)
		return err
	}
	return nil
}
