package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"takeoutmerge/internal/config"
	"takeoutmerge/internal/errors"
	"takeoutmerge/internal/metrics"
	"takeoutmerge/internal/models"
	"takeoutmerge/internal/service"
	"takeoutmerge/internal/tracing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// mergeFlags holds the raw command line; only flags the user set override the
// loaded configuration
type mergeFlags struct {
	configPath string
	verbose    bool
	logLevel   string

	inputDir     string
	outputDir    string
	contacts     string
	suffixLength int
	force        bool

	ignoreCallLogs         bool
	ignoreOrphanCallLogs   bool
	ignoreMedia            bool
	ignoreVoicemails       bool
	ignoreOrphanVoicemails bool

	generateCSV      bool
	generateXML      bool
	indexDB          string
	useLastTimestamp bool

	ownerNumber         string
	addContactNames     bool
	prependPhoneNumbers string
	appendPhoneNumbers  string
	replaceApostrophes  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "takeoutmerge",
		Short:         "Merge a voice takeout export into one archive per conversation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "takeoutmerge %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		},
	})
	root.AddCommand(newMergeCmd())

	return root
}

func newMergeCmd() *cobra.Command {
	var f mergeFlags

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge the export in --input-dir into --output-dir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, &f)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				return err
			}

			logger := newLogger(cfg, f.verbose, cmd.ErrOrStderr())
			return runMerge(cmd.Context(), cfg, logger, cmd.OutOrStdout())
		},
	}

	bindMergeFlags(cmd, &f)
	return cmd
}

func bindMergeFlags(cmd *cobra.Command, f *mergeFlags) {
	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "", "Path to a YAML or JSON configuration file")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "Enable verbose logging (includes phone numbers)")
	flags.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	flags.StringVarP(&f.inputDir, "input-dir", "i", "", "Directory of the extracted export")
	flags.StringVarP(&f.outputDir, "output-dir", "o", "", "Directory receiving the merged conversations")
	flags.StringVarP(&f.contacts, "contacts", "c", "", "VCF file used to name and match phone numbers")
	flags.IntVar(&f.suffixLength, "suffix-length", 0, "Match numbers sharing at least this many trailing digits (0 matches exactly)")
	flags.BoolVarP(&f.force, "force", "f", false, "Overwrite a non-empty output directory")

	flags.BoolVar(&f.ignoreCallLogs, "ignore-call-logs", false, "Skip received, placed, missed and recorded calls")
	flags.BoolVar(&f.ignoreOrphanCallLogs, "ignore-orphan-call-logs", false, "Skip calls with numbers that never texted")
	flags.BoolVar(&f.ignoreMedia, "ignore-media", false, "Skip attachments")
	flags.BoolVar(&f.ignoreVoicemails, "ignore-voicemails", false, "Skip voicemails")
	flags.BoolVar(&f.ignoreOrphanVoicemails, "ignore-orphan-voicemails", false, "Skip voicemails from numbers that never texted")

	flags.BoolVar(&f.generateCSV, "generate-csv", false, "Write index.csv into the output directory")
	flags.BoolVar(&f.generateXML, "generate-xml", false, "Write sms.xml for SMS Backup & Restore")
	flags.StringVar(&f.indexDB, "index-db", "", "SQLite index path (relative paths live in the output directory)")
	flags.BoolVar(&f.useLastTimestamp, "use-last-timestamp", false, "Name merged files after their latest entry")

	flags.StringVar(&f.ownerNumber, "owner-number", "", "Phone number of the export owner")
	flags.BoolVar(&f.addContactNames, "add-contact-names-to-xml", false, "Add contact names to sms.xml")
	flags.StringVar(&f.prependPhoneNumbers, "prepend-phone-numbers-in-xml", "", "Prefix for every non-owner number in sms.xml")
	flags.StringVar(&f.appendPhoneNumbers, "append-phone-numbers-in-xml", "", "Suffix for every non-owner number in sms.xml")
	flags.StringVar(&f.replaceApostrophes, "replace-contact-apostrophes", "", "Replacement for apostrophes in contact names")
}

// buildConfig layers the command line over the configuration file and
// environment, then validates the result
func buildConfig(cmd *cobra.Command, f *mergeFlags) (*models.Config, error) {
	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	changed := cmd.Flags().Changed
	setString := func(name string, dst *string, v string) {
		if changed(name) {
			*dst = v
		}
	}
	setBool := func(name string, dst *bool, v bool) {
		if changed(name) {
			*dst = v
		}
	}

	setString("input-dir", &cfg.InputDir, f.inputDir)
	setString("output-dir", &cfg.OutputDir, f.outputDir)
	setString("contacts", &cfg.ContactsPath, f.contacts)
	setString("log-level", &cfg.LogLevel, f.logLevel)
	setBool("force", &cfg.Force, f.force)
	if changed("suffix-length") {
		cfg.Matching.SuffixLength = f.suffixLength
		if f.suffixLength > 0 {
			cfg.Matching.Strategy = models.MatchSuffix
		} else {
			cfg.Matching.Strategy = models.MatchExact
		}
	}

	setBool("ignore-call-logs", &cfg.Ignore.CallLogs, f.ignoreCallLogs)
	setBool("ignore-orphan-call-logs", &cfg.Ignore.OrphanCallLogs, f.ignoreOrphanCallLogs)
	setBool("ignore-media", &cfg.Ignore.Media, f.ignoreMedia)
	setBool("ignore-voicemails", &cfg.Ignore.Voicemails, f.ignoreVoicemails)
	setBool("ignore-orphan-voicemails", &cfg.Ignore.OrphanVoicemails, f.ignoreOrphanVoicemails)

	setBool("generate-csv", &cfg.Output.GenerateCSV, f.generateCSV)
	setBool("generate-xml", &cfg.Output.GenerateXML, f.generateXML)
	setString("index-db", &cfg.Output.IndexDB, f.indexDB)
	setBool("use-last-timestamp", &cfg.Output.UseLastTimestamp, f.useLastTimestamp)

	setString("owner-number", &cfg.XML.OwnerNumber, f.ownerNumber)
	setBool("add-contact-names-to-xml", &cfg.XML.AddContactNames, f.addContactNames)
	setString("prepend-phone-numbers-in-xml", &cfg.XML.PrependPhoneNumbers, f.prependPhoneNumbers)
	setString("append-phone-numbers-in-xml", &cfg.XML.AppendPhoneNumbers, f.appendPhoneNumbers)
	setString("replace-contact-apostrophes", &cfg.XML.ReplaceContactApostrophes, f.replaceApostrophes)

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *models.Config, verbose bool, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.JSONFormatter{})

	if verbose {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled - phone numbers will be logged")
		return logger
	}

	logger.SetLevel(logrus.InfoLevel)
	if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
		} else {
			logger.SetLevel(level)
		}
	}
	return logger
}

func runMerge(ctx context.Context, cfg *models.Config, logger *logrus.Logger, out io.Writer) error {
	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting takeoutmerge")

	errLogger := errors.WrapLogger(logger)

	tracingManager := tracing.NewTracingManager(cfg.Tracing, Version, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		errLogger.LogWarn(err, "Failed to initialize tracing")
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			errLogger.LogWarn(err, "Failed to shutdown tracing")
		}
	}()

	summary, err := service.NewMergeService(cfg, logger, metrics.NewRegistry()).Run(ctx)
	if err != nil {
		errLogger.LogError(err, "Merge failed")
		return err
	}

	fmt.Fprintf(out, "Merged %d conversations (%d group conversations) into %s\n",
		len(summary.Conversations), summary.GroupConversations, cfg.OutputDir)
	if cfg.Output.GenerateXML {
		fmt.Fprintf(out, "Exported %d messages\n", summary.Messages)
	}
	if summary.Ignored > 0 {
		fmt.Fprintf(out, "Ignored %d entries\n", summary.Ignored)
	}
	return nil
}
