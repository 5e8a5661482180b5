package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/franz/music-janitor/internal/catalog"
	"github.com/franz/music-janitor/internal/util"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "show <filename>",
		Short: "Print the catalog record for a single file",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	})
}

func runShow(cmd *cobra.Command, args []string) error {
	store, err := catalog.Open(util.CacheDir()+"/mediastore.db", catalog.ReadOnly)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()

	f, err := store.Lookup(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("filename:     %s\n", f.Filename)
	fmt.Printf("type:         %s\n", f.Type)
	fmt.Printf("title:        %s\n", f.Title)
	fmt.Printf("artist:       %s\n", f.Author)
	fmt.Printf("album:        %s\n", f.Album)
	fmt.Printf("genre:        %s\n", f.Genre)
	fmt.Printf("duration:     %s\n", formatDuration(f.Duration))
	fmt.Printf("modified:     %s\n", humanize.Time(time.Unix(int64(f.ModificationTime), 0)))
	return nil
}

func formatDuration(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	return (time.Duration(seconds) * time.Second).String()
}
