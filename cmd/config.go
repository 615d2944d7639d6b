package cmd

import (
	"github.com/df07/go-bvh/pkg/config"
	"github.com/urfave/cli"
)

// loadConfig reads the global --config file (or the defaults) and applies
// the command flags the user actually passed
func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := ctx.GlobalString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
		logger.Infof("loaded config from %s", path)
	}

	var flags config.Flags
	if ctx.IsSet("layout") {
		flags.Layout = stringFlag(ctx, "layout")
	}
	if ctx.IsSet("bins") {
		flags.Bins = intFlag(ctx, "bins")
	}
	if ctx.IsSet("max-leaf") {
		flags.MaxLeafSize = intFlag(ctx, "max-leaf")
	}
	if ctx.IsSet("workers") {
		flags.Workers = intFlag(ctx, "workers")
	}
	if ctx.IsSet("width") {
		flags.Width = intFlag(ctx, "width")
	}
	if ctx.IsSet("height") {
		flags.Height = intFlag(ctx, "height")
	}
	if ctx.IsSet("supersample") {
		flags.Supersample = intFlag(ctx, "supersample")
	}
	if ctx.IsSet("mode") {
		flags.Mode = stringFlag(ctx, "mode")
	}
	if ctx.IsSet("ao-samples") {
		flags.AOSamples = intFlag(ctx, "ao-samples")
	}
	if ctx.IsSet("out") {
		flags.Output = stringFlag(ctx, "out")
	}

	cfg = cfg.Resolve(flags)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func intFlag(ctx *cli.Context, name string) *int {
	v := ctx.Int(name)
	return &v
}

func stringFlag(ctx *cli.Context, name string) *string {
	v := ctx.String(name)
	return &v
}

// sceneArg returns the scene named by the first argument
func sceneArg(ctx *cli.Context) string {
	if ctx.NArg() == 0 {
		return "two-triangles"
	}
	return ctx.Args().First()
}
