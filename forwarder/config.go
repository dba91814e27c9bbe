package forwarder

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"io"
	"io/ioutil"
	"os"
)

type UDPConfig struct {
	Server string
	Port   int
}

type QuestDBConfig struct {
	Address string
	Table   string
	// rows buffered before an automatic flush, 0 keeps the client default
	FlushRows int
}

// Config lists the forwarders to start. A missing section disables that
// forwarder.
type Config struct {
	UDP     *UDPConfig
	QuestDB *QuestDBConfig
}

func LoadConfig(fileName string) (*Config, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open file %s", fileName)
	}
	defer file.Close()
	return DecodeConfig(file)
}

func DecodeConfig(configReader io.Reader) (*Config, error) {
	configData, err := ioutil.ReadAll(configReader)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read config reader")
	}
	config := Config{}
	if _, err := toml.Decode(string(configData), &config); err != nil {
		return nil, errors.Wrap(err, "unable to load forwarder configuration")
	}
	if config.QuestDB != nil && config.QuestDB.Table == "" {
		config.QuestDB.Table = DefaultTable
	}
	return &config, nil
}
