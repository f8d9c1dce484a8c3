package config

import (
	"os"
	"time"

	logger "github.com/ElrondNetwork/elrond-go-logger"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

const DefaultConfigPath = "./config/config.toml"

const (
	defaultRequestTimeout      = 10 * time.Second
	defaultPollingInterval     = 5 * time.Second
	defaultMaxBatchSize        = 200
	defaultMaxConcurrentChunks = 4
	defaultRatioPrecision      = 10000
	defaultServerPort          = ":8080"
)

var log = logger.GetOrCreate("config")

type GeneralConfig struct {
	Blockchain BlockchainInformation
	Contracts  ContractsInformation
	Multicall  MulticallConfig
	Sync       SyncConfig
	Server     ServerConfig
}

type BlockchainInformation struct {
	Environment      string
	ChainID          uint64
	ProxyUrl         string
	RequestTimeoutMs uint64
}

type ContractsInformation struct {
	Lottery               string
	Ticket                string
	Token                 string
	Link                  string
	TaxService            string
	Multicall             string
	PrizeReservePool      string
	BurnSteelPool         string
	BurnDndPool           string
	RandomNumberGenerator string
}

type MulticallConfig struct {
	MaxBatchSize        int
	MaxConcurrentChunks int
}

type SyncConfig struct {
	PollingIntervalMs uint64
	RatioPrecision    uint64
}

type ServerConfig struct {
	Port string
}

func (bi BlockchainInformation) RequestTimeout() time.Duration {
	return time.Duration(bi.RequestTimeoutMs) * time.Millisecond
}

func (sc SyncConfig) PollingInterval() time.Duration {
	return time.Duration(sc.PollingIntervalMs) * time.Millisecond
}

func LoadConfig(configPath string) (GeneralConfig, error) {
	configFile, err := os.Open(configPath)
	if err != nil {
		return GeneralConfig{}, err
	}
	defer func(configFile *os.File) {
		err = configFile.Close()
		if err != nil {
			log.Error("failure closing file reader", "err", err.Error())
		}
	}(configFile)

	config := &GeneralConfig{}
	err = toml.NewDecoder(configFile).Decode(config)
	if err != nil {
		return GeneralConfig{}, errors.Wrap(err, "decoding config")
	}

	config.ApplyDefaults()
	if err = config.Validate(); err != nil {
		return GeneralConfig{}, err
	}

	log.Info("loaded config",
		"path", configPath,
		"environment", config.Blockchain.Environment,
		"chainID", config.Blockchain.ChainID,
	)

	return *config, nil
}

// ApplyDefaults fills every zero tunable with its default value.
func (gc *GeneralConfig) ApplyDefaults() {
	if gc.Blockchain.RequestTimeoutMs == 0 {
		gc.Blockchain.RequestTimeoutMs = uint64(defaultRequestTimeout / time.Millisecond)
	}
	if gc.Sync.PollingIntervalMs == 0 {
		gc.Sync.PollingIntervalMs = uint64(defaultPollingInterval / time.Millisecond)
	}
	if gc.Sync.RatioPrecision == 0 {
		gc.Sync.RatioPrecision = defaultRatioPrecision
	}
	if gc.Multicall.MaxBatchSize <= 0 {
		gc.Multicall.MaxBatchSize = defaultMaxBatchSize
	}
	if gc.Multicall.MaxConcurrentChunks <= 0 {
		gc.Multicall.MaxConcurrentChunks = defaultMaxConcurrentChunks
	}
	if gc.Server.Port == "" {
		gc.Server.Port = defaultServerPort
	}
}

func (gc *GeneralConfig) Validate() error {
	if gc.Blockchain.ProxyUrl == "" {
		return ErrMissingProxyUrl
	}

	required := map[string]string{
		"Lottery":   gc.Contracts.Lottery,
		"Ticket":    gc.Contracts.Ticket,
		"Multicall": gc.Contracts.Multicall,
	}
	for name, address := range required {
		if address == "" {
			return errors.Wrap(ErrMissingContractAddress, name)
		}
	}

	return nil
}
