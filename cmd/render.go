package cmd

import (
	"bytes"
	"context"
	"fmt"

	"github.com/df07/go-bvh/pkg/renderer"
	"github.com/df07/go-bvh/pkg/scene"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Render a preview image of a scene.
func RenderScene(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		logger.Error(err)
		return err
	}
	layout, err := cfg.Layout()
	if err != nil {
		logger.Error(err)
		return err
	}
	buildConfig, err := cfg.BuildConfig()
	if err != nil {
		logger.Error(err)
		return err
	}
	renderConfig, err := cfg.RenderConfig()
	if err != nil {
		logger.Error(err)
		return err
	}

	sc, err := scene.Load(sceneArg(ctx))
	if err != nil {
		logger.Error(err)
		return err
	}

	tree, err := sc.BuildTree(layout, buildConfig)
	if err != nil {
		logger.Error(err)
		return err
	}
	defer tree.Release()

	img, stats, err := renderer.Render(context.Background(), tree, sc.Store, sc.CameraConfig, renderConfig)
	if err != nil {
		logger.Error(err)
		return err
	}

	if err := renderer.WriteImage(cfg.Render.Output, img); err != nil {
		logger.Error(err)
		return err
	}

	displayRenderStats(cfg.Render.Output, stats)
	return nil
}

func displayRenderStats(out string, stats renderer.RenderStats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Pixels", "Camera rays", "Hit ratio", "Shadow rays", "Rays/s", "Render time"})
	table.Append([]string{
		fmt.Sprintf("%d", stats.TotalPixels),
		fmt.Sprintf("%d", stats.PrimaryRays),
		fmt.Sprintf("%02.1f %%", stats.HitRatio()*100),
		fmt.Sprintf("%d", stats.ShadowRays),
		fmt.Sprintf("%.0f", stats.RaysPerSecond()),
		stats.Elapsed.String(),
	})

	table.Render()
	logger.Noticef("rendered %s\n%s", out, buf.String())
}
