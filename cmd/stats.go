package cmd

import (
	"bytes"
	"fmt"
	"time"

	"github.com/df07/go-bvh/pkg/bvh"
	"github.com/df07/go-bvh/pkg/scene"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Build a scene's tree in every layout (or the one given with --layout) and
// display its structure.
func TreeStats(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		logger.Error(err)
		return err
	}
	buildConfig, err := cfg.BuildConfig()
	if err != nil {
		logger.Error(err)
		return err
	}

	layouts := bvh.Layouts
	if ctx.IsSet("layout") {
		layout, err := cfg.Layout()
		if err != nil {
			logger.Error(err)
			return err
		}
		layouts = []bvh.Layout{layout}
	}

	sc, err := scene.Load(sceneArg(ctx))
	if err != nil {
		logger.Error(err)
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Layout", "Nodes", "Leaves", "Max depth", "Avg depth", "Max leaf", "SAH cost", "Build time"})
	for _, layout := range layouts {
		start := time.Now()
		tree, err := sc.BuildTree(layout, buildConfig)
		if err != nil {
			logger.Error(err)
			return err
		}
		buildTime := time.Since(start)

		stats, err := tree.Stats()
		tree.Release()
		if err != nil {
			logger.Error(err)
			return err
		}

		table.Append([]string{
			layout.String(),
			fmt.Sprintf("%d", stats.Nodes),
			fmt.Sprintf("%d", stats.Leaves),
			fmt.Sprintf("%d", stats.MaxDepth),
			fmt.Sprintf("%.2f", stats.AvgDepth),
			fmt.Sprintf("%d", stats.MaxLeafSize),
			fmt.Sprintf("%.2f", stats.SAHCost),
			buildTime.String(),
		})
	}
	table.SetFooter([]string{"", "", "", "", "", "", "PRIMITIVES", fmt.Sprintf("%d", sc.Store.Len())})

	table.Render()
	logger.Noticef("tree statistics for %s\n%s", sc.Name, buf.String())
	return nil
}
