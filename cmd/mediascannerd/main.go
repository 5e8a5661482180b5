// Command mediascannerd is the background media-indexing daemon: it
// watches a set of directories (seeded from the XDG music/video/picture
// dirs, plus whatever mountpoints get attached), keeps the catalog
// store in sync with the filesystem, and debounces an invalidation
// signal for readers.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/music-janitor/internal/catalog"
	"github.com/franz/music-janitor/internal/extractor"
	"github.com/franz/music-janitor/internal/extractorworker"
	"github.com/franz/music-janitor/internal/invalidate"
	"github.com/franz/music-janitor/internal/report"
	"github.com/franz/music-janitor/internal/util"
	"github.com/franz/music-janitor/internal/volume"
)

// Version is set at build time.
var Version = "dev"

// invalidateDelay mirrors the original daemon's coalescing window for
// readers subscribed to the invalidation signal.
const invalidateDelay = 1 * time.Second

const (
	exitClean        = 0
	exitMainLoopQuit = 99
	exitFatalInit     = 100
)

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:     "mediascannerd",
		Short:   "Background media-indexing daemon",
		Long:    `mediascannerd watches music, video and picture directories, extracts metadata and keeps a searchable catalog in sync with the filesystem.`,
		Version: Version,
		RunE:    runDaemon,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is mediascannerd.yaml in ./configs or .)")
	rootCmd.PersistentFlags().String("cachedir", "", "catalog database directory (default $XDG_CACHE_HOME/mediascanner-2.0)")
	rootCmd.PersistentFlags().Bool("progress", false, "show a progress bar during bulk scans")
	rootCmd.PersistentFlags().String("eventlog", "", "directory to write a JSONL scan/extract event log to (disabled if empty)")
	rootCmd.PersistentFlags().Bool("force", false, "start regardless of the desktop-environment guard")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	viper.BindPFlag("cachedir", rootCmd.PersistentFlags().Lookup("cachedir"))
	viper.BindPFlag("eventlog", rootCmd.PersistentFlags().Lookup("eventlog"))
	viper.BindPFlag("progress", rootCmd.PersistentFlags().Lookup("progress"))
	viper.BindPFlag("run", rootCmd.PersistentFlags().Lookup("force"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))

	rootCmd.AddCommand(&cobra.Command{
		Use:    extractorworker.WorkerSubcommand,
		Short:  "Internal metadata-extraction worker (not for direct use)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			extractorworker.Run(os.Stdin, os.Stdout)
			return nil
		},
	})
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("mediascannerd")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("MEDIASCANNER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.InfoLog("using config file: %s", viper.ConfigFileUsed())
	}
}

// validateDesktop mirrors the original daemon's guard against starting
// under a desktop environment that never asked for it: it would confuse
// other shells with unsolicited scanning of mounted drives.
func validateDesktop() bool {
	if util.ForceRun() {
		return true
	}
	desktop := os.Getenv("XDG_CURRENT_DESKTOP")
	if desktop == "Unity8" || desktop == "Unity8:ubuntu" {
		return true
	}
	if os.Getenv("XDG_SESSION_DESKTOP") == "unity8" {
		return true
	}
	util.InfoLog("mediascannerd not starting: unsupported desktop environment (set MEDIASCANNER_RUN=1 to override)")
	return false
}

func runDaemon(cmd *cobra.Command, args []string) error {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	if !validateDesktop() {
		os.Exit(exitClean)
	}

	util.InfoLog("mediascannerd starting at %s", time.Now().Format("2006-01-02 15:04:05"))

	cacheDir := util.CacheDir()
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		util.ErrorLog("create cache dir %s: %v", cacheDir, err)
		os.Exit(exitFatalInit)
	}

	store, err := catalog.Open(cacheDir+"/mediastore.db", catalog.ReadWrite)
	if err != nil {
		util.ErrorLog("open catalog: %v", err)
		os.Exit(exitFatalInit)
	}
	defer store.Close()

	ext := extractor.New()
	defer ext.Close()

	inv := invalidate.New(invalidateDelay, func() {
		util.DebugLog("catalog invalidated")
	})
	defer inv.Close()

	events := report.NullLogger()
	if logDir := viper.GetString("eventlog"); logDir != "" {
		l, err := report.NewEventLogger(logDir, report.LevelInfo)
		if err != nil {
			util.ErrorLog("open event log: %v", err)
		} else {
			events = l
			defer events.Close()
		}
	}

	mgr := volume.New(store, ext, inv, events, viper.GetBool("progress"))

	seedSpecialDirs(mgr)

	// In case a reader opened the database before we finished seeding it.
	inv.Invalidate()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	util.InfoLog("mediascannerd shutting down")
	os.Exit(exitMainLoopQuit)
	return nil
}

// seedSpecialDirs queues the XDG music/video/picture directories for an
// initial scan, skipping any that XDG resolves straight back to $HOME
// (scanning the whole home directory is almost never what anyone wants).
func seedSpecialDirs(mgr *volume.Manager) {
	for _, dir := range []string{xdg.UserDirs.Music, xdg.UserDirs.Videos, xdg.UserDirs.Pictures} {
		if dir == "" {
			continue
		}
		if util.SameDirectory(dir, xdg.Home) {
			continue
		}
		mgr.QueueAddVolume(dir)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
