package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/franz/music-janitor/internal/catalog"
	"github.com/franz/music-janitor/internal/extractor"
	"github.com/franz/music-janitor/internal/media"
	"github.com/franz/music-janitor/internal/scanner"
	"github.com/franz/music-janitor/internal/util"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "scan <directory>",
		Short: "Run a one-off bulk scan of a directory into the catalog, without watching it",
		Args:  cobra.ExactArgs(1),
		RunE:  runScan,
	})
}

func runScan(cmd *cobra.Command, args []string) error {
	cacheDir := util.CacheDir()
	store, err := catalog.Open(cacheDir+"/mediastore.db", catalog.ReadWrite)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()

	ext := extractor.New()
	defer ext.Close()

	start := time.Now()
	tx, err := store.BeginTransaction()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.End()

	s := scanner.New(ext, args[0], media.AllMedia)
	count := 0
	for {
		d, err := s.Next()
		if err != nil {
			break
		}
		f, err := ext.Extract(d)
		if err != nil {
			f = extractor.FallbackExtract(d)
		}
		if err := store.InsertTx(tx, f); err == nil {
			count++
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	fmt.Printf("scanned %s files in %s\n", humanize.Comma(int64(count)), time.Since(start).Round(time.Millisecond))
	return nil
}
