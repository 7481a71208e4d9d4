package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"syscall"

	"github.com/radiant-render/radiant/pkg/core"
	"github.com/radiant-render/radiant/pkg/film"
	"github.com/radiant-render/radiant/pkg/integrator"
	"github.com/radiant-render/radiant/pkg/loaders"
	"github.com/radiant-render/radiant/pkg/renderer"
	"github.com/radiant-render/radiant/pkg/sampler"
	"github.com/radiant-render/radiant/pkg/scene"
)

// Config holds the command line configuration
type Config struct {
	ScenePath  string
	Samples    int
	Threads    int
	Output     string
	Preset     string
	Seed       uint64
	Verbose    bool
	CPUProfile string
}

func main() {
	os.Exit(run())
}

func run() int {
	config := parseFlags()

	if config.CPUProfile != "" {
		f, err := os.Create(config.CPUProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not create CPU profile: %v\n", err)
			return core.ExitRuntimeErr
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "could not start CPU profile: %v\n", err)
			return core.ExitRuntimeErr
		}
		defer pprof.StopCPUProfile()
	}

	sf, err := loadScene(config.ScenePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "radiant: %v\n", err)
		return core.ExitCode(err)
	}

	if config.Preset != "" {
		preset, err := loaders.LoadPreset(config.Preset)
		if err != nil {
			fmt.Fprintf(os.Stderr, "radiant: %v\n", err)
			return core.ExitCode(err)
		}
		preset.Apply(sf)
	}
	if config.Samples > 0 {
		sf.SamplesPerPixel = config.Samples
	}

	if err := render(config, sf); err != nil {
		fmt.Fprintf(os.Stderr, "radiant: %v\n", err)
		return core.ExitCode(err)
	}
	return core.ExitOK
}

// parseFlags parses command line flags and returns configuration
func parseFlags() Config {
	config := Config{}
	flag.IntVar(&config.Samples, "samples", 0, "Samples per pixel (overrides the scene file)")
	flag.IntVar(&config.Threads, "threads", 0, "Number of worker threads (0 = all cores)")
	flag.StringVar(&config.Output, "output", "image_%03d.png", "Output path pattern, %03d expands to the checkpoint index")
	flag.StringVar(&config.Preset, "preset", "", "YAML quality preset file")
	flag.Uint64Var(&config.Seed, "seed", 1, "Base random seed")
	flag.BoolVar(&config.Verbose, "verbose", false, "Verbose progress output")
	flag.StringVar(&config.CPUProfile, "cpuprofile", "", "Write CPU profile to file")
	flag.Parse()

	config.ScenePath = flag.Arg(0)
	if config.ScenePath == "" {
		showHelp()
		os.Exit(core.ExitConfigErr)
	}
	if dir := os.Getenv("RADIANT_OUTPUT_DIR"); dir != "" && !filepath.IsAbs(config.Output) {
		config.Output = filepath.Join(dir, config.Output)
	}
	return config
}

// showHelp displays usage information
func showHelp() {
	fmt.Println("radiant - physically based renderer")
	fmt.Println("Usage: radiant [options] scene.xml")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Built-in scenes (in place of a scene file):")
	fmt.Println("  cornell        - Cornell box with a mirror and a glass sphere")
	fmt.Println("  cornell-fog    - Cornell box inside a thin homogeneous medium")
	fmt.Println("  furnace        - white furnace test sphere")
	fmt.Println("  caustic-glass  - glass sphere casting a caustic on a checker plane")
}

// loadScene resolves built-in scene names or parses a scene XML file
func loadScene(path string) (*loaders.SceneFile, error) {
	builtin := func(build func() (*scene.Scene, scene.View), integ string) *loaders.SceneFile {
		sc, view := build()
		return &loaders.SceneFile{
			Scene:           sc,
			View:            view,
			Width:           400,
			Height:          300,
			SamplesPerPixel: 16,
			SamplerType:     "independent",
			FilterType:      "box",
			IntegratorType:  integ,
			MaxDepth:        8,
		}
	}

	switch path {
	case "cornell":
		return builtin(scene.Cornell, "path"), nil
	case "cornell-fog":
		return builtin(scene.FoggyCornell, "volpath"), nil
	case "furnace":
		return builtin(scene.Furnace, "path"), nil
	case "caustic-glass":
		return builtin(scene.CausticGlass, "sppm"), nil
	default:
		return loaders.LoadSceneXML(loaders.ResolveDataPath(path))
	}
}

// buildFilter maps a filter name to its implementation
func buildFilter(name string) (film.Filter, error) {
	switch name {
	case "box":
		return film.NewBoxFilter(0.5), nil
	case "tent":
		return film.NewTentFilter(1), nil
	case "gaussian":
		return film.NewGaussianFilter(1.5, 2), nil
	default:
		return nil, core.ConfigErrorf("unknown filter %q", name)
	}
}

// buildSampler maps a sampler name to its implementation
func buildSampler(name string, spp int, seed uint64) (core.Sampler, error) {
	switch name {
	case "independent":
		return sampler.NewIndependent(spp, seed), nil
	case "halton":
		return sampler.NewHalton(spp, seed), nil
	default:
		return nil, core.ConfigErrorf("unknown sampler %q", name)
	}
}

// render wires the film, camera, sampler, and integrator together and runs
// the selected algorithm
func render(config Config, sf *loaders.SceneFile) error {
	filter, err := buildFilter(sf.FilterType)
	if err != nil {
		return err
	}
	f := film.New(sf.Width, sf.Height, filter)

	camera := renderer.LookAtPerspective(
		sf.View.Eye, sf.View.LookAt, sf.View.Up,
		sf.Width, sf.Height, sf.View.FOV,
		sf.View.LensRadius, sf.View.FocalDistance,
	)

	proto, err := buildSampler(sf.SamplerType, sf.SamplesPerPixel, config.Seed)
	if err != nil {
		return err
	}

	logger := renderer.NewDefaultLogger()
	rConfig := renderer.Config{
		Width:           sf.Width,
		Height:          sf.Height,
		SamplesPerPixel: sf.SamplesPerPixel,
		TileSize:        32,
		Workers:         config.Threads,
		Seed:            config.Seed,
		OutputPattern:   config.Output,
		CheckpointEvery: 1,
		Verbose:         config.Verbose,
	}
	r := renderer.New(rConfig, camera, f, logger)

	// Stop on interrupt: workers drain, the flusher writes the current film
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Printf("interrupt received, finishing current pass")
		r.Stop()
		cancel()
	}()

	switch sf.IntegratorType {
	case "path", "volpath", "direct":
		depth := sf.MaxDepth
		if sf.IntegratorType == "direct" {
			depth = 1
		}
		return r.Render(ctx, sf.Scene, integrator.NewPath(depth), proto)

	case "bdpt":
		return r.Render(ctx, sf.Scene, integrator.NewBDPT(sf.MaxDepth, camera), proto)

	case "photonmap":
		return r.Render(ctx, sf.Scene, integrator.NewPhotonMap(200000, 64, 2, sf.MaxDepth), proto)

	case "ppm":
		return r.Render(ctx, sf.Scene, integrator.NewPPM(100000, 0.5, 0.7, sf.MaxDepth), proto)

	case "sppm":
		s := integrator.NewSPPM(camera, sf.SamplesPerPixel, 100000, 0.5, 0.7, sf.MaxDepth)
		s.Workers = config.Threads
		s.Seed = config.Seed
		if err := s.Render(ctx, sf.Scene, f, proto, logger); err != nil {
			return err
		}
		return f.WriteImage(fmt.Sprintf(config.Output, sf.SamplesPerPixel))

	case "pssmlt":
		m := integrator.NewPSSMLT(camera, sf.MaxDepth, sf.SamplesPerPixel*sf.Width*sf.Height)
		m.Workers = config.Threads
		m.Seed = config.Seed
		if err := m.Render(ctx, sf.Scene, f, proto, logger); err != nil {
			return err
		}
		return f.WriteImage(fmt.Sprintf(config.Output, sf.SamplesPerPixel))

	case "irrcache", "hierarchical":
		return r.Render(ctx, sf.Scene, integrator.NewHierarchical(200000, 0.25, sf.MaxDepth), proto)

	default:
		return core.ConfigErrorf("unsupported integrator type %q", sf.IntegratorType)
	}
}
