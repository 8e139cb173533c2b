package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wbrown/janus-ldmatch/ldmatch/annotations"
	"github.com/wbrown/janus-ldmatch/ldmatch/jsonld"
	"github.com/wbrown/janus-ldmatch/ldmatch/storage"
)

const (
	configFlag      = "config"
	dbFlag          = "db"
	logFormatFlag   = "log-format"
	logLevelFlag    = "log-level"
	verboseFlag     = "verbose"
	httpRetriesFlag = "http-retries"
	baseFlag        = "base"

	defaultDBPath = "ldmatch.db"
)

// app carries the configuration shared by every command
type app struct {
	v      *viper.Viper
	logger *zap.Logger
}

// mustBindPFlag binds a viper key to a pflag and panics if binding fails.
func mustBindPFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic("failed to bind pflag: " + err.Error())
	}
}

// newRootCommand builds the command tree. Every command reads its settings
// from CLI flags, environment variables prefixed with LDMATCH, or
// ldmatch.yaml (in that order).
func newRootCommand() *cobra.Command {
	v := viper.New()
	v.SetConfigName("ldmatch")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("LDMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, path := range []string{".", "$HOME/.ldmatch"} {
		v.AddConfigPath(path)
	}

	a := &app{v: v}

	root := &cobra.Command{
		Use:   "ldmatch",
		Short: "Match linked-data graph patterns against JSON-LD documents",
		Long: `ldmatch flattens JSON-LD documents and graph patterns and enumerates every
assignment of the pattern variables to values of the document graph.

Documents can be matched directly or loaded once into a local database of
named graphs and matched from there.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()

	flags.String(configFlag, "", "path of the config file (default ./ldmatch.yaml or $HOME/.ldmatch/ldmatch.yaml)")

	flags.String(dbFlag, defaultDBPath, "path of the graph database")
	mustBindPFlag(v, dbFlag, flags.Lookup(dbFlag))

	flags.String(logFormatFlag, "text", "the log format to output logs in (text or json)")
	mustBindPFlag(v, logFormatFlag, flags.Lookup(logFormatFlag))

	flags.String(logLevelFlag, "warn", "the log level to use (debug, info, warn, error or none)")
	mustBindPFlag(v, logLevelFlag, flags.Lookup(logLevelFlag))

	flags.BoolP(verboseFlag, "v", false, "print match annotations to stderr")
	mustBindPFlag(v, verboseFlag, flags.Lookup(verboseFlag))

	flags.Int(httpRetriesFlag, jsonld.DefaultOptions().HTTPRetries, "retries when fetching remote JSON-LD contexts")
	mustBindPFlag(v, httpRetriesFlag, flags.Lookup(httpRetriesFlag))

	flags.String(baseFlag, "", "base IRI used to resolve relative identifiers")
	mustBindPFlag(v, baseFlag, flags.Lookup(baseFlag))

	root.AddCommand(
		newMatchCommand(a),
		newLoadCommand(a),
		newGraphsCommand(a),
		newDropCommand(a),
	)
	return root
}

// setup reads the config file, if any, and builds the logger
func (a *app) setup(cmd *cobra.Command) error {
	if path, _ := cmd.Flags().GetString(configFlag); path != "" {
		a.v.SetConfigFile(path)
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	logger, err := annotations.NewLogger(a.v.GetString(logFormatFlag), a.v.GetString(logLevelFlag))
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

// handler returns the annotation handler for a run: structured logs, plus
// the human-readable trace when verbose
func (a *app) handler() annotations.Handler {
	var console annotations.Handler
	if a.v.GetBool(verboseFlag) {
		console = annotations.ConsoleHandler()
	}
	return annotations.Multi(annotations.ZapHandler(a.logger), console)
}

func (a *app) processor() *jsonld.Processor {
	opts := jsonld.DefaultOptions()
	opts.Base = a.v.GetString(baseFlag)
	opts.HTTPRetries = a.v.GetInt(httpRetriesFlag)
	return jsonld.NewProcessor(opts)
}

func (a *app) openStore(readOnly bool) (*storage.BadgerStore, error) {
	path := a.v.GetString(dbFlag)
	store, err := storage.NewBadgerStore(path, storage.Options{ReadOnly: readOnly})
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	a.logger.Debug("opened database", zap.String("path", path), zap.Bool("read_only", readOnly))
	return store, nil
}
