// Command-line inspector for image containers readable by planeio.
// Prints each container's series metadata and optionally decodes or dumps planes.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/janelia-flyem/planeio/cache"
	"github.com/janelia-flyem/planeio/config"
	"github.com/janelia-flyem/planeio/format"
	"github.com/janelia-flyem/planeio/planeio"

	_ "github.com/janelia-flyem/planeio/format/burleigh"
	_ "github.com/janelia-flyem/planeio/format/improvision"
	_ "github.com/janelia-flyem/planeio/format/pgm"
	_ "github.com/janelia-flyem/planeio/format/povray"
	_ "github.com/janelia-flyem/planeio/format/tiff"
)

var (
	// Display usage if true.
	showHelp = flag.Bool("help", false, "")

	// Run in verbose mode if true.
	runVerbose = flag.Bool("verbose", false, "")

	// Path to TOML configuration.
	configFile = flag.String("config", "", "")

	// Series and plane to decode or dump.
	series = flag.Int("series", 0, "")
	plane  = flag.Int("plane", 0, "")

	// Decode every plane of the selected series.
	decodeAll = flag.Bool("decode", false, "")

	// Directory receiving raw dumps of the selected plane.
	dumpDir = flag.String("dump", "", "")

	// Maximum # of containers inspected concurrently.  Overrides configuration.
	workers = flag.Int("workers", 0, "")

	// Print compiled formats and version.
	showFormats = flag.Bool("formats", false, "")
	showVersion = flag.Bool("version", false, "")

	// Profile CPU usage using standard gotest system.
	cpuprofile = flag.String("cpuprofile", "", "")
)

const helpMessage = `
planeinfo prints the metadata of image containers and decodes their planes

Usage: planeinfo [options] <file> [<file> ...]

      -config     =string   TOML configuration for logging, plane cache and workers.
      -series     =number   Series to decode or dump (default 0).
      -plane      =number   Plane to dump (default 0).
      -decode     (flag)    Decode every plane of the series and report timing.
      -dump       =string   Write the plane's raw decoded bytes into this directory.
      -workers    =number   Number of files inspected concurrently.
      -cpuprofile =string   Write CPU profile to this file.
      -formats    (flag)    List compiled formats.
      -version    (flag)    Print the planeio version.
      -verbose    (flag)    Run in verbose mode.
  -h, -help       (flag)    Show help message
`

var usage = func() {
	fmt.Print(helpMessage)
}

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("planeio %s (git %s)\n", planeio.Version, planeio.GitVersion())
		return
	}
	if *showFormats {
		fmt.Print(format.CompiledFormatChart())
		return
	}
	if *showHelp || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	c := config.Default()
	if *configFile != "" {
		var err error
		if c, err = config.Load(*configFile); err != nil {
			log.Fatalln(err)
		}
	}
	c.Logging.SetLogger()
	defer planeio.Shutdown()
	if *runVerbose {
		planeio.SetLogMode(planeio.DebugMode)
	}
	if *workers > 0 {
		c.Decode.Workers = *workers
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	opts := options{
		series:    *series,
		plane:     *plane,
		decodeAll: *decodeAll,
		dumpDir:   *dumpDir,
		planes:    cache.New(c.Cache.MB),
	}
	if err := run(flag.Args(), c.Decode.Workers, opts); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// run inspects the files concurrently and prints the reports in argument order.
func run(filenames []string, numWorkers int, opts options) error {
	reports := make([]string, len(filenames))
	var g errgroup.Group
	g.SetLimit(max(numWorkers, 1))
	for i, filename := range filenames {
		i, filename := i, filename
		g.Go(func() error {
			report, err := inspect(filename, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", filename, err)
			}
			reports[i] = report
			return nil
		})
	}
	err := g.Wait()
	fmt.Print(strings.Join(reports, ""))
	if attempts, hits, entries := opts.planes.Stats(); attempts > 0 {
		planeio.Infof("Plane cache: %d of %d lookups hit, %d planes cached\n", hits, attempts, entries)
	}
	return err
}
