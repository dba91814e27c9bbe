package cmd

import (
	"context"
	"fmt"
	"github.com/jd3nn1s/enginesim"
	"github.com/jd3nn1s/enginesim/dump"
	"github.com/jd3nn1s/enginesim/forwarder"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	flagAdapter      = "adapter"
	flagSweep        = "sweep"
	flagECU          = "ecu"
	flagStart        = "start"
	flagNoConsole    = "no-console"
	flagPrintFrames  = "print-frames"
	flagForwarders   = "forwarders"
	flagOTLPTraces   = "otlp-traces"
	flagOTLPMetrics  = "otlp-metrics"
	flagDisabledMode = "disabled-policy"
)

func init() {
	f := runCmd.Flags()
	f.StringP(flagAdapter, "a", "", "adapter to use, overrides the configuration")
	f.Bool(flagSweep, false, "sweep the signal values through their ranges")
	f.String(flagECU, "", "mirror values from a KW1281 ECU on this serial port")
	f.Bool(flagStart, false, "start transmitting immediately")
	f.Bool(flagNoConsole, false, "do not read operator commands from the terminal")
	f.Bool(flagPrintFrames, false, "print written frames to stdout")
	f.String(flagForwarders, "", "forwarder configuration file")
	f.String(flagOTLPTraces, "", "OTLP/gRPC endpoint for cycle traces")
	f.String(flagOTLPMetrics, "", "OTLP/HTTP endpoint for frame metrics")
	f.String(flagDisabledMode, "", "what to send for a disabled signal: skip or zero")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "open the adapter and transmit engine telemetry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := applyRunFlags(cmd, cfg); err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		opts, shutdownTelemetry, err := setupTelemetry(ctx,
			mustString(cmd, flagOTLPTraces),
			mustString(cmd, flagOTLPMetrics))
		if err != nil {
			return err
		}
		defer shutdownTelemetry()

		adapter, err := newAdapter(cfg)
		if err != nil {
			return err
		}

		var cb enginesim.Callbacks
		if mustBool(cmd, flagPrintFrames) {
			out := cmd.OutOrStdout()
			cb.FrameWritten = func(f enginesim.Frame) {
				fmt.Fprintln(out, dump.FormatFrame(f))
			}
		}
		sess, err := enginesim.NewSession(adapter, cfg, cb, opts...)
		if err != nil {
			return err
		}
		defer sess.Close()

		g, ctx := errgroup.WithContext(ctx)
		if fileName := mustString(cmd, flagForwarders); fileName != "" {
			if err := startForwarders(ctx, g, sess, fileName); err != nil {
				cancel()
				_ = g.Wait()
				return err
			}
		}
		g.Go(func() error {
			return sess.Run(ctx)
		})

		tx := sess.Transmitter()
		if mustBool(cmd, flagStart) {
			if err := tx.Start(); err != nil {
				return err
			}
		}
		if !mustBool(cmd, flagNoConsole) {
			go func() {
				if err := runConsole(tx, cmd.OutOrStdout()); err != nil {
					log.WithError(err).Error("console stopped")
				}
				cancel()
			}()
		}

		err = g.Wait()
		tx.Stop()
		if err == context.Canceled {
			return nil
		}
		return err
	},
}

func applyRunFlags(cmd *cobra.Command, cfg *enginesim.Config) error {
	flags := cmd.Flags()
	if flags.Changed(flagAdapter) {
		cfg.Adapter.Name = mustString(cmd, flagAdapter)
	}
	if flags.Changed(flagSweep) {
		cfg.Sweep.Enabled = mustBool(cmd, flagSweep)
	}
	if flags.Changed(flagECU) {
		cfg.ECU.Port = mustString(cmd, flagECU)
	}
	if flags.Changed(flagDisabledMode) {
		cfg.DisabledPolicy = enginesim.DisabledPolicy(mustString(cmd, flagDisabledMode))
	}
	return cfg.Validate()
}

type forwarderTask struct {
	fwd enginesim.Forwarder
	run func(ctx context.Context) error
}

// newForwarders creates every forwarder named in the file. Nothing is left
// open when one of them fails.
func newForwarders(ctx context.Context, fileName string) ([]forwarderTask, error) {
	fwdConfig, err := forwarder.LoadConfig(fileName)
	if err != nil {
		return nil, err
	}
	var tasks []forwarderTask
	var udp *forwarder.UDPForwarder
	if fwdConfig.UDP != nil {
		if udp, err = forwarder.NewUDPForwarder(fwdConfig.UDP); err != nil {
			return nil, err
		}
		tasks = append(tasks, forwarderTask{
			fwd: udp,
			run: func(ctx context.Context) error {
				defer udp.Close()
				return udp.Start(ctx)
			},
		})
		log.WithField("server", fwdConfig.UDP.Server).Info("forwarding frames over UDP")
	}
	if fwdConfig.QuestDB != nil {
		qdb, err := forwarder.NewQuestDBForwarder(ctx, fwdConfig.QuestDB)
		if err != nil {
			if udp != nil {
				_ = udp.Close()
			}
			return nil, err
		}
		tasks = append(tasks, forwarderTask{fwd: qdb, run: qdb.Start})
		log.WithField("address", fwdConfig.QuestDB.Address).Info("storing frames in QuestDB")
	}
	return tasks, nil
}

func startForwarders(ctx context.Context, g *errgroup.Group, sess *enginesim.Session, fileName string) error {
	tasks, err := newForwarders(ctx, fileName)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		run := task.run
		g.Go(func() error {
			return run(ctx)
		})
		sess.AddForwarder(task.fwd)
	}
	return nil
}

func mustString(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func mustBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		log.Fatal(err)
	}
	return v
}
