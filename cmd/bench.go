package cmd

import (
	"bytes"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/df07/go-bvh/pkg/bvh"
	"github.com/df07/go-bvh/pkg/core"
	"github.com/df07/go-bvh/pkg/scene"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// benchResult holds the measurements of one layout
type benchResult struct {
	layout      bvh.Layout
	buildTime   time.Duration
	closestTime time.Duration
	anyTime     time.Duration
	refitTime   time.Duration
	hits        int
	occluded    int
	closestCost int // Nodes visited by all closest-hit queries
	anyCost     int // Nodes visited by all any-hit queries
}

// Measure build time and closest-hit / any-hit throughput of every layout
// on the same set of random rays.
func Bench(ctx *cli.Context) error {
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

	numRays := ctx.Int("rays")
	if numRays <= 0 {
		err := fmt.Errorf("%w: ray count must be positive, got %d", bvh.ErrInvalidInput, numRays)
		logger.Error(err)
		return err
	}
	threads := ctx.Int("threads")
	if threads <= 0 {
		threads = runtime.NumCPU()
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

	rays := benchRays(sc.Bounds(), numRays, ctx.Int64("seed"))
	logger.Infof("benchmarking %d rays against %d primitives on %d threads", numRays, sc.Store.Len(), threads)

	results := make([]benchResult, 0, len(layouts))
	for _, layout := range layouts {
		result, err := benchLayout(sc, layout, buildConfig, rays, threads, ctx.Bool("refit"))
		if err != nil {
			logger.Error(err)
			return err
		}
		results = append(results, result)
	}

	displayBenchResults(sc.Name, len(rays), results)
	return nil
}

func benchLayout(sc *scene.Scene, layout bvh.Layout, buildConfig bvh.BuildConfig, rays []core.Ray, threads int, refit bool) (benchResult, error) {
	result := benchResult{layout: layout}

	start := time.Now()
	tree, err := sc.BuildTree(layout, buildConfig)
	if err != nil {
		return result, err
	}
	defer tree.Release()
	result.buildTime = time.Since(start)

	result.closestTime, result.hits, result.closestCost = traceRays(rays, threads, tree.IntersectClosestCost)
	result.anyTime, result.occluded, result.anyCost = traceRays(rays, threads, tree.IntersectAnyCost)

	if refit {
		// Move the geometry and back so later layouts see the original store
		offset := core.NewVec3(0, 1e-3, 0)
		sc.Store.Translate(offset)
		start = time.Now()
		err := tree.Refit()
		result.refitTime = time.Since(start)
		sc.Store.Translate(offset.Negate())
		if err != nil {
			return result, err
		}
	}

	logger.Debugf("%s: built in %v, %d hits", layout, result.buildTime, result.hits)
	return result, nil
}

// traceRays runs query over copies of rays split across threads and returns
// the wall time, the number of queries that reported a hit and the number of
// nodes visited
func traceRays(rays []core.Ray, threads int, query func(*core.Ray) (bool, int)) (time.Duration, int, int) {
	chunk := (len(rays) + threads - 1) / threads
	counts := make([]int, threads)
	costs := make([]int, threads)

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < threads; i++ {
		lo := i * chunk
		hi := min(lo+chunk, len(rays))
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(worker, lo, hi int) {
			defer wg.Done()
			for _, ray := range rays[lo:hi] {
				hit, steps := query(&ray)
				if hit {
					counts[worker]++
				}
				costs[worker] += steps
			}
		}(i, lo, hi)
	}
	wg.Wait()
	elapsed := time.Since(start)

	total, cost := 0, 0
	for i := range counts {
		total += counts[i]
		cost += costs[i]
	}
	return elapsed, total, cost
}

// benchRays generates rays from points on a sphere around bounds aimed at
// random points inside it. The same seed always yields the same rays.
func benchRays(bounds core.AABB, count int, seed int64) []core.Ray {
	random := rand.New(rand.NewSource(seed))
	center := bounds.Center()
	size := bounds.Size()
	radius := math.Max(size.Length(), 1e-3)

	rays := make([]core.Ray, count)
	for i := range rays {
		origin := center.Add(core.SampleOnUnitSphere(random.Float64(), random.Float64()).Multiply(radius))

		target := center.Add(core.NewVec3(
			(random.Float64()-0.5)*size.X,
			(random.Float64()-0.5)*size.Y,
			(random.Float64()-0.5)*size.Z,
		))
		rays[i] = core.NewRay(origin, target.Subtract(origin).Normalize())
	}
	return rays
}

func displayBenchResults(name string, numRays int, results []benchResult) {
	p := message.NewPrinter(language.English)
	rate := func(d time.Duration) string {
		if d <= 0 {
			return "-"
		}
		return p.Sprintf("%.0f", float64(numRays)/d.Seconds())
	}
	perRay := func(cost int) string {
		return fmt.Sprintf("%.1f", float64(cost)/float64(numRays))
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Layout", "Build time", "Closest rays/s", "Nodes/ray", "Hits", "Any rays/s", "Nodes/ray", "Occluded", "Refit time"})
	for _, result := range results {
		refitTime := "-"
		if result.refitTime > 0 {
			refitTime = result.refitTime.String()
		}
		table.Append([]string{
			result.layout.String(),
			result.buildTime.String(),
			rate(result.closestTime),
			perRay(result.closestCost),
			p.Sprintf("%d", result.hits),
			rate(result.anyTime),
			perRay(result.anyCost),
			p.Sprintf("%d", result.occluded),
			refitTime,
		})
	}
	table.SetFooter([]string{"", "", "", "", "", "", "", "RAYS", p.Sprintf("%d", numRays)})

	table.Render()
	logger.Noticef("benchmark for %s\n%s", name, buf.String())
}
