package main

import (
	"os"

	"github.com/df07/go-bvh/cmd"
	"github.com/urfave/cli"
)

func newApp() *cli.App {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	layoutFlag := cli.StringFlag{
		Name:  "layout, l",
		Value: "binary",
		Usage: "tree layout: binary, soa or wide4",
	}
	buildFlags := []cli.Flag{
		layoutFlag,
		cli.IntFlag{
			Name:  "bins",
			Value: 8,
			Usage: "SAH bins per axis",
		},
		cli.IntFlag{
			Name:  "max-leaf",
			Value: 16,
			Usage: "maximum primitives per leaf",
		},
		cli.IntFlag{
			Name:  "workers",
			Value: 0,
			Usage: "goroutines used to build and render (0 = CPU count)",
		},
	}

	app := cli.NewApp()
	app.Name = "go-bvh"
	app.Usage = "build bounding volume hierarchies over triangle scenes and trace rays against them"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "config, c",
			Usage: "JSON file with build and render settings",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:      "stats",
			Usage:     "build a scene's tree and display its structure",
			ArgsUsage: "[scene]",
			Description: `
Build the tree for a built-in scene ID or a mesh/heightmap file in every
layout, or only the one given with --layout, and print node counts, depths,
leaf sizes, SAH cost and build time.`,
			Flags:  buildFlags,
			Action: cmd.TreeStats,
		},
		{
			Name:      "render",
			Usage:     "render a preview image of a scene",
			ArgsUsage: "[scene]",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "out, o",
					Value: "render.png",
					Usage: "image filename (.png or .webp)",
				},
				cli.StringFlag{
					Name:  "mode, m",
					Value: "depth",
					Usage: "what to shade: depth, normal or occlusion",
				},
				cli.IntFlag{
					Name:  "width",
					Value: 640,
					Usage: "image width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 360,
					Usage: "image height",
				},
				cli.IntFlag{
					Name:  "supersample",
					Value: 1,
					Usage: "rays per pixel along each axis",
				},
				cli.IntFlag{
					Name:  "ao-samples",
					Value: 16,
					Usage: "shadow rays per hit in occlusion mode",
				},
			}, buildFlags...),
			Action: cmd.RenderScene,
		},
		{
			Name:      "bench",
			Usage:     "measure closest-hit and any-hit throughput",
			ArgsUsage: "[scene]",
			Flags: append([]cli.Flag{
				cli.IntFlag{
					Name:  "rays",
					Value: 1000000,
					Usage: "number of random rays",
				},
				cli.IntFlag{
					Name:  "threads",
					Value: 0,
					Usage: "goroutines tracing rays (0 = CPU count)",
				},
				cli.Int64Flag{
					Name:  "seed",
					Value: 1,
					Usage: "random seed for ray generation",
				},
				cli.BoolFlag{
					Name:  "refit",
					Usage: "also time a refit after moving the geometry",
				},
			}, buildFlags...),
			Action: cmd.Bench,
		},
		{
			Name:   "list",
			Usage:  "list built-in scenes and scene files",
			Action: cmd.ListScenes,
		},
		{
			Name:  "serve",
			Usage: "serve the preview API over HTTP",
			Flags: append([]cli.Flag{
				cli.IntFlag{
					Name:  "port, p",
					Value: 8080,
					Usage: "port to listen on",
				},
			}, buildFlags...),
			Action: cmd.Serve,
		},
	}

	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		os.Exit(1)
	}
}
