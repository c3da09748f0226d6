// Command platescan measures the colonies on one or more plate images and
// writes a report and a grid overlay next to each image.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/jpeg"
	_ "image/png"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"plate-scanner/internal/analysis"
	"plate-scanner/internal/grid"
	pimage "plate-scanner/internal/image"
	"plate-scanner/internal/log"
	"plate-scanner/internal/output"
	"plate-scanner/internal/profile"
	"plate-scanner/internal/settings"
	"plate-scanner/internal/store"
	"plate-scanner/internal/tile"
	"plate-scanner/internal/version"

	_ "golang.org/x/image/tiff"
)

const defaultProfile = "opacity96"

type options struct {
	profile  string
	settings string
	envFile  string
	format   string
	db       string
	workers  int
	overlay  *bool // nil keeps the settings file / env value
	strict   bool
}

func main() {
	imagePath := flag.String("image", "", "Path to plate image (TIFF, PNG, or JPEG); more may follow as arguments")
	profileName := flag.String("profile", "", "Measurement profile (default "+defaultProfile+")")
	settingsPath := flag.String("settings", "", "Settings file (.json, .yaml)")
	envFile := flag.String("env", "", "Dotenv file with PLATE_* overrides")
	format := flag.String("format", "iris", "Report format: "+strings.Join(output.Formats(), ", "))
	dbPath := flag.String("db", "", "SQLite database to record results in")
	workers := flag.Int("workers", 0, "Tile workers (0 = number of CPUs)")
	overlay := flag.Bool("overlay", true, "Write <image>.grid.jpg")
	strict := flag.Bool("strict", false, "Withhold the report when the gridding is suspect")
	debug := flag.Bool("debug", false, "Debug logging")
	logFile := flag.String("log-file", "", "Also log to this rotating file")
	listProfiles := flag.Bool("profiles", false, "List profiles and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("platescan %s (built %s)\n", version.String(), version.BuildTime)
		return
	}
	if *listProfiles {
		for _, name := range profile.List() {
			p, _ := profile.Get(name)
			fmt.Printf("%-12s %3dx%-3d %-12s %s\n", p.Name, p.Rows, p.Columns, p.Reader, p.Description)
		}
		return
	}

	var args []string
	if *imagePath != "" {
		args = append(args, *imagePath)
	}
	args = append(args, flag.Args()...)
	if len(args) == 0 {
		fmt.Println("Usage: platescan [-profile opacity96] [-settings file] [-db results.db] -image <path> [more images or folders...]")
		os.Exit(1)
	}

	if err := log.Init(log.Options{Debug: *debug, File: *logFile}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	images, err := collectImages(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if len(images) == 0 {
		fmt.Fprintln(os.Stderr, "No supported images found")
		os.Exit(1)
	}

	opts := options{
		profile:  *profileName,
		settings: *settingsPath,
		envFile:  *envFile,
		format:   *format,
		db:       *dbPath,
		workers:  *workers,
		strict:   *strict,
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "overlay" {
			opts.overlay = overlay
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failed, err := run(ctx, opts, images)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "\n%d of %d images could not be processed\n", failed, len(images))
		os.Exit(2)
	}
}

// run processes every image and returns how many failed.
func run(ctx context.Context, opts options, images []string) (int, error) {
	s, prof, err := buildSettings(opts)
	if err != nil {
		return 0, err
	}
	reader, err := readerFor(s, prof)
	if err != nil {
		return 0, err
	}
	write, err := output.Get(opts.format)
	if err != nil {
		return 0, err
	}

	var db *store.Store
	if opts.db != "" {
		db, err = store.Open(opts.db)
		if err != nil {
			return 0, err
		}
		defer db.Close()
	}

	fmt.Printf("Profile: %s (%dx%d, reader %s)\n", prof.Name, s.Rows, s.Columns, reader.Name())

	failed := 0
	for _, path := range images {
		if ctx.Err() != nil {
			return failed, ctx.Err()
		}
		fmt.Printf("\nProcessing %s\n", path)
		if err := processImage(ctx, path, s, prof, reader, write, opts, db); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Println("...done processing!")
	}
	return failed, nil
}

// collectImages expands folders into the images they contain and drops
// files Load cannot decode. Overlays written by earlier runs are skipped.
func collectImages(args []string) ([]string, error) {
	var images []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", arg, err)
		}
		if !info.IsDir() {
			if !pimage.IsSupportedFormat(arg) {
				log.Warnw("[Scan] skipping unsupported file", "path", arg)
				continue
			}
			images = append(images, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read folder %s: %w", arg, err)
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || strings.HasSuffix(name, ".grid.jpg") || !pimage.IsSupportedFormat(name) {
				continue
			}
			images = append(images, filepath.Join(arg, name))
		}
	}
	return images, nil
}

// buildSettings layers defaults (or a settings file), the profile, the env
// file and the command line flags, in that order. The command line writes
// the grid overlay unless told otherwise.
func buildSettings(opts options) (settings.Settings, profile.Profile, error) {
	s := settings.Default().WithOverlay(true)
	if opts.settings != "" {
		var err error
		if s, err = settings.Load(opts.settings); err != nil {
			return s, profile.Profile{}, err
		}
	}

	name := opts.profile
	if name == "" {
		name = s.Profile
	}
	if name == "" {
		name = defaultProfile
	}
	prof, ok := profile.Get(name)
	if !ok {
		return s, prof, fmt.Errorf("unknown profile %q (have %s)", name, strings.Join(profile.List(), ", "))
	}
	// A settings file keeps its own layout unless a profile is asked for.
	if opts.settings == "" || opts.profile != "" {
		s = prof.Apply(s)
	} else {
		s.Profile = prof.Name
	}

	if opts.envFile != "" {
		var err error
		if s, err = settings.ApplyEnvFile(s, opts.envFile); err != nil {
			return s, prof, err
		}
	}

	if opts.workers > 0 {
		s = s.WithWorkers(opts.workers)
	}
	if opts.overlay != nil {
		s = s.WithOverlay(*opts.overlay)
	}

	if err := s.Validate(); err != nil {
		return s, prof, err
	}
	return s, prof, nil
}

func readerFor(s settings.Settings, prof profile.Profile) (tile.Reader, error) {
	kind := prof.Reader
	if s.DarkColonies {
		kind = profile.ReaderDarkColony
	}
	return profile.NewReader(kind)
}

func processImage(ctx context.Context, path string, s settings.Settings, prof profile.Profile,
	reader tile.Reader, write output.WriterFunc, opts options, db *store.Store) error {
	plate, err := pimage.Load(path)
	if err != nil {
		return err
	}
	defer plate.Close()
	fmt.Printf("Loaded %dx%d pixels\n", plate.Width(), plate.Height())

	meta := output.Meta{Filename: path, Profile: prof.Name, Version: version.String()}

	res, err := analysis.Analyze(ctx, plate, s, reader)
	var geomErr *grid.GeometryError
	switch {
	case errors.As(err, &geomErr):
		if werr := output.WriteFailure(os.Stderr, meta, geomErr.Flags); werr != nil {
			log.Warnf("[Report] %v", werr)
		}
		saveOverlay(path, res)
		record(ctx, db, res, prof.Name)
		return err
	case err != nil:
		return err
	}

	saveOverlay(path, res)
	record(ctx, db, res, prof.Name)

	if res.Verdict.Suspect {
		if werr := output.WriteSuspect(os.Stderr, meta, res.Verdict); werr != nil {
			log.Warnf("[Report] %v", werr)
		}
		if opts.strict {
			return fmt.Errorf("gridding suspect, report withheld")
		}
	}

	reportPath := path + output.Extension(opts.format)
	f, err := os.Create(reportPath)
	if err != nil {
		return fmt.Errorf("could not write output file %s: %w", reportPath, err)
	}
	if err := write(f, res, meta); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("could not write output file %s: %w", reportPath, err)
	}
	fmt.Printf("Wrote %s (%d colonies, %s)\n", reportPath, colonies(res), res.Elapsed.Round(time.Millisecond))
	return nil
}

func saveOverlay(path string, res *analysis.Result) {
	if res == nil || res.Overlay == nil {
		return
	}
	gridPath := path + ".grid.jpg"
	f, err := os.Create(gridPath)
	if err != nil {
		log.Warnf("[Overlay] could not create %s: %v", gridPath, err)
		return
	}
	defer f.Close()
	if err := jpeg.Encode(f, res.Overlay, &jpeg.Options{Quality: 90}); err != nil {
		log.Warnf("[Overlay] could not encode %s: %v", gridPath, err)
	}
}

func record(ctx context.Context, db *store.Store, res *analysis.Result, profileName string) {
	if db == nil || res == nil {
		return
	}
	if _, err := db.SavePlate(ctx, res, profileName); err != nil {
		log.Errorw("[Store] failed to record plate", "plate", res.RunID, "source", res.Source, "error", err)
	}
}

func colonies(res *analysis.Result) int {
	n := 0
	for _, row := range res.Tiles {
		for _, t := range row {
			if !t.Empty {
				n++
			}
		}
	}
	return n
}
