package cmd

import (
	"fmt"
	"github.com/jd3nn1s/enginesim"
	"github.com/jd3nn1s/enginesim/dump"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"strconv"
)

func init() {
	rootCmd.AddCommand(encodeCmd)
}

var encodeCmd = &cobra.Command{
	Use:   "encode <signal> <value>",
	Short: "print the frame a signal value encodes to",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := enginesim.ParseSignal(args[0])
		if err != nil {
			return err
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return errors.Wrapf(err, "invalid value %q", args[1])
		}
		f, err := enginesim.Encode(s, v, cfg.Calibration)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), dump.FormatFrame(f))
		return nil
	},
}
