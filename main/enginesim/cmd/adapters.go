package cmd

import (
	"fmt"
	"github.com/jd3nn1s/enginesim"
	"github.com/jd3nn1s/enginesim/dump"
	"github.com/jd3nn1s/enginesim/pcan"
	"github.com/jd3nn1s/enginesim/slcan"
	"github.com/mattn/go-colorable"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"sort"
	"strings"
)

type adapterInfo struct {
	Name        string
	Description string
	New         func(cfg *enginesim.Config) (enginesim.Adapter, error)
}

var adapterMap = make(map[string]*adapterInfo)

func registerAdapter(adapter *adapterInfo) error {
	if _, found := adapterMap[adapter.Name]; !found {
		adapterMap[adapter.Name] = adapter
		return nil
	}
	return errors.Errorf("adapter %s already registered", adapter.Name)
}

func listAdapterNames() []string {
	var out []string
	for name := range adapterMap {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func newAdapter(cfg *enginesim.Config) (enginesim.Adapter, error) {
	if adapter, found := adapterMap[cfg.Adapter.Name]; found {
		return adapter.New(cfg)
	}
	return nil, errors.Errorf("unknown adapter %q, available: %s",
		cfg.Adapter.Name, strings.Join(listAdapterNames(), ", "))
}

func init() {
	for _, adapter := range []*adapterInfo{
		{
			Name:        "pcan",
			Description: "PEAK-System PCAN-Basic (windows)",
			New: func(*enginesim.Config) (enginesim.Adapter, error) {
				return pcan.New(), nil
			},
		}, {
			Name:        "slcan",
			Description: "Lawicel/SLCAN serial adapter",
			New: func(cfg *enginesim.Config) (enginesim.Adapter, error) {
				if cfg.Adapter.Port == "" {
					return nil, errors.New("slcan adapter needs a serial port")
				}
				return slcan.New(cfg.Adapter.Port, cfg.Adapter.PortBaudrate, cfg.Adapter.OpenAttempts), nil
			},
		}, {
			Name:        "dump",
			Description: "print frames to stdout instead of sending them",
			New: func(*enginesim.Config) (enginesim.Adapter, error) {
				return dump.New(colorable.NewColorableStdout()), nil
			},
		},
	} {
		if err := registerAdapter(adapter); err != nil {
			panic(err)
		}
	}
	rootCmd.AddCommand(adaptersCmd)
}

var adaptersCmd = &cobra.Command{
	Use:   "adapters",
	Short: "list CAN adapters",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range listAdapterNames() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", name, adapterMap[name].Description)
		}
	},
}
