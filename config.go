package enginesim

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"io"
	"io/ioutil"
	"os"
	"time"
)

const DefaultInterval = 1000 * time.Millisecond

type DisabledPolicy string

const (
	// no frame is sent for a disabled signal
	DisabledSkip DisabledPolicy = "skip"
	// a frame with an all-zero payload is sent for a disabled signal
	DisabledZeroFill DisabledPolicy = "zero"
)

func (p DisabledPolicy) Valid() bool {
	return p == DisabledSkip || p == DisabledZeroFill
}

type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", string(text))
	}
	d.Duration = v
	return nil
}

type InitialValues struct {
	CoolantTemperature        int
	EngineSpeed               int
	AmbientAirTemperature     int
	IntakeManifoldTemperature int
}

type AdapterConfig struct {
	Name string
	// socketcan network interface
	Interface string
	// slcan serial device
	Port         string
	PortBaudrate int
	OpenAttempts uint
}

type ECUConfig struct {
	Port string
}

type SweepConfig struct {
	Enabled bool
	Step    Duration
}

type Config struct {
	Channel        Channel
	BaudRate       BaudRate
	Interval       Duration
	DisabledPolicy DisabledPolicy
	// names of the signals disabled at startup
	Disabled    []string
	Initial     InitialValues
	Calibration Calibration

	Adapter AdapterConfig
	ECU     ECUConfig
	Sweep   SweepConfig
}

func DefaultConfig() *Config {
	return &Config{
		Channel:        DefaultChannel,
		BaudRate:       Baud250K,
		Interval:       Duration{DefaultInterval},
		DisabledPolicy: DisabledSkip,
		Initial: InitialValues{
			CoolantTemperature:        DefaultCoolantTemperature,
			EngineSpeed:               DefaultEngineSpeed,
			AmbientAirTemperature:     DefaultAmbientAirTemperature,
			IntakeManifoldTemperature: DefaultIntakeManifoldTemperature,
		},
		Calibration: DefaultCalibration(),
		Adapter: AdapterConfig{
			Name:         "pcan",
			Interface:    "can0",
			PortBaudrate: 115200,
			OpenAttempts: 3,
		},
		Sweep: SweepConfig{
			Step: Duration{250 * time.Millisecond},
		},
	}
}

func LoadConfig(fileName string) (*Config, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open file %s", fileName)
	}
	defer file.Close()
	return DecodeConfig(file)
}

// DecodeConfig reads a TOML configuration. Keys that are absent keep their
// default value.
func DecodeConfig(configReader io.Reader) (*Config, error) {
	configData, err := ioutil.ReadAll(configReader)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read config reader")
	}
	config := DefaultConfig()
	if _, err := toml.Decode(string(configData), config); err != nil {
		return nil, errors.Wrap(err, "unable to load transmitter configuration")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if !c.DisabledPolicy.Valid() {
		return errors.Wrapf(ErrUnknownPolicy, "%q", string(c.DisabledPolicy))
	}
	if c.Interval.Duration <= 0 {
		return errors.Errorf("interval must be positive, got %v", c.Interval.Duration)
	}
	if c.Sweep.Enabled && c.Sweep.Step.Duration <= 0 {
		return errors.Errorf("sweep step must be positive, got %v", c.Sweep.Step.Duration)
	}
	if _, err := c.DisabledSignals(); err != nil {
		return err
	}
	return nil
}

// DisabledSignals resolves the Disabled names.
func (c *Config) DisabledSignals() ([]Signal, error) {
	var signals []Signal
	for _, name := range c.Disabled {
		s, err := ParseSignal(name)
		if err != nil {
			return nil, errors.Wrap(err, "invalid disabled signal")
		}
		signals = append(signals, s)
	}
	return signals, nil
}

func (c *Config) InitialState() StateSnapshot {
	snap := DefaultSnapshot()
	snap.Values[CoolantTemperature] = c.Initial.CoolantTemperature
	snap.Values[EngineSpeed] = c.Initial.EngineSpeed
	snap.Values[AmbientAirTemperature] = c.Initial.AmbientAirTemperature
	snap.Values[IntakeManifoldTemperature] = c.Initial.IntakeManifoldTemperature
	disabled, _ := c.DisabledSignals()
	for _, s := range disabled {
		snap.Enabled[s] = false
	}
	return snap
}
