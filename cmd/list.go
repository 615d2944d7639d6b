package cmd

import (
	"bytes"

	"github.com/df07/go-bvh/pkg/scene"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// List built-in scenes and the scene files found in the scenes directory.
func ListScenes(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		logger.Error(err)
		return err
	}

	response, err := scene.ListAllScenes(cfg.ScenesDir)
	if err != nil {
		logger.Error(err)
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Group", "Scene", "Type", "Description"})
	for _, group := range response.Groups {
		for _, info := range group.Scenes {
			id := info.ID
			if info.FilePath != "" {
				id = info.FilePath
			}
			table.Append([]string{group.Name, id, info.Type, info.Description})
		}
	}

	table.Render()
	logger.Noticef("available scenes\n%s", buf.String())
	return nil
}
