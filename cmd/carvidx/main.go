// Command carvidx walks the $INDEX_ALLOCATION B-trees of an NTFS volume
// image, recovering both live and deleted directory entries, and writes
// them out in a timeline-friendly format.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/forensicgo/carvidx/internal/config"
	"github.com/forensicgo/carvidx/internal/disk"
	"github.com/forensicgo/carvidx/internal/format"
	"github.com/forensicgo/carvidx/internal/ntfs"
)

func main() {
	var (
		volume           = flag.String("volume", "", "Path to NTFS volume image or block device")
		outfile          = flag.String("outfile", "", "Output file path (default: stdout)")
		mountPoint       = flag.String("m", config.DefaultMountPoint, "Mount point prefix prepended to resolved paths")
		partitionSectors = flag.Int64("partition-offset", 0, "Partition start offset, in sectors, within the image")
		sectorSize       = flag.Int("sector-size", config.DefaultSectorSizeBytes, "Sector size in bytes")
		includeDeleted   = flag.Bool("include-deleted-dirs", false, "Also walk directories whose own MFT record is marked deleted")
		slackOnly        = flag.Bool("slack-only", false, "Emit only slack-carved entries, suppressing live index entries")
		deletedOnly      = flag.Bool("deleted-only", false, "Emit only entries whose file reference is not live anywhere on the volume")
		dedup            = flag.Bool("dedup", true, "Drop duplicate output lines (buffers all output in memory)")
		outputFormat     = flag.String("format", config.DefaultOutputFormat, "Output format: csv, jsonl, or bodyfile")
		bodyfile         = flag.Bool("bodyfile", false, "Shorthand for -format bodyfile")
		verbose          = flag.Bool("v", false, "Enable verbose (debug-level) logging")
	)
	flag.Parse()

	if *volume == "" {
		fmt.Fprintln(os.Stderr, "Usage: carvidx -volume <path> [-outfile <path>] [-m <mount point>] [flags]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	log, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "carvidx: building logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	sugar := log.Sugar()

	cfg := config.Default()
	cfg.MountPoint = *mountPoint
	cfg.PartitionOffsetSectors = *partitionSectors
	cfg.SectorSizeBytes = *sectorSize
	cfg.IncludeDeletedDirs = *includeDeleted
	cfg.SlackOnly = *slackOnly
	cfg.DeletedOnly = *deletedOnly
	cfg.Dedup = *dedup
	cfg.OutputFormat = config.OutputFormat(*outputFormat)
	if *bodyfile {
		cfg.OutputFormat = config.FormatBodyfile
	}

	if err := run(cfg, *volume, *outfile, sugar); err != nil {
		sugar.Errorw("carving run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Options, volumePath, outPath string, log *zap.SugaredLogger) error {
	reader, err := disk.Open(volumePath)
	if err != nil {
		return fmt.Errorf("opening volume: %w", err)
	}
	defer reader.Close()
	reader.SetSectorSize(cfg.SectorSizeBytes)

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	walker, err := ntfs.NewWalker(reader, cfg, log)
	if err != nil {
		return fmt.Errorf("building walker: %w", err)
	}

	writer := format.New(out, cfg)
	var count int
	for entry := range walker.Walk {
		if err := writer.WriteEntry(entry); err != nil {
			return fmt.Errorf("writing entry: %w", err)
		}
		count++
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}

	log.Infow("carving complete", "entries", count, "volume", volumePath)
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}
