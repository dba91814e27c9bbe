package cmd

import (
	"context"
	"github.com/jd3nn1s/enginesim"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"os"
)

const (
	flagConfig = "config"
	flagDebug  = "debug"

	defaultConfigFile = "enginesim.toml"
)

var rootCmd = &cobra.Command{
	Use:          "enginesim",
	Short:        "Engine telemetry CAN transmitter",
	Long:         `Broadcasts simulated coolant, engine speed, ambient and intake temperatures as extended CAN frames.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool(flagDebug)
		setupLogging(debug)
	},
}

// Execute runs the command selected on the command line.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP(flagConfig, "c", defaultConfigFile, "transmitter configuration file")
	pf.BoolP(flagDebug, "d", false, "debug logging")
}

func setupLogging(debug bool) {
	log.SetOutput(colorable.NewColorableStderr())
	log.SetFormatter(&log.TextFormatter{
		ForceColors:   isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()),
		FullTimestamp: true,
	})
	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// loadConfig reads the configuration file. The default file is optional,
// one named explicitly must exist.
func loadConfig(cmd *cobra.Command) (*enginesim.Config, error) {
	fileName, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(fileName); os.IsNotExist(err) && !cmd.Flags().Changed(flagConfig) {
		log.WithField("file", fileName).Debug("no configuration file, using defaults")
		return enginesim.DefaultConfig(), nil
	}
	cfg, err := enginesim.LoadConfig(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load configuration")
	}
	return cfg, nil
}
