// Package config loads the chain's tunable parameters for the empower1d
// demo binary. Besides cmd/empower1d (which hands it a pflag.FlagSet), it
// is deliberately the only place in this module that imports viper/pflag —
// the core ledger packages (core, contract, mempool,
// chain) take a plain Config value and never touch a config provider
// directly.
package config

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every tunable of the chain's economic and consensus
// parameters.
type Config struct {
	CurrencyName   string `mapstructure:"currency_name"`
	CurrencyCode   string `mapstructure:"currency_code"`
	CurrencySymbol string `mapstructure:"currency_symbol"`
	Decimals       int32  `mapstructure:"decimals"`

	FaucetName string `mapstructure:"faucet_name"`
	DrainName  string `mapstructure:"drain_name"`

	GenesisCoinsAmount decimal.Decimal `mapstructure:"-"`
	GenesisCoinsAmountStr string       `mapstructure:"genesis_coins_amount"`

	MaxPendingTransactions      int `mapstructure:"max_pending_transactions"`
	AutoCreateBlockDelaySeconds int `mapstructure:"auto_create_block_delay_seconds"`

	BlockchainDifficulty int `mapstructure:"blockchain_difficulty"`

	RewardPerMinedTransaction decimal.Decimal `mapstructure:"-"`
	RewardPerMinedTransactionStr string       `mapstructure:"reward_per_mined_transaction"`
	FixedTransactionFee decimal.Decimal       `mapstructure:"-"`
	FixedTransactionFeeStr string             `mapstructure:"fixed_transaction_fee"`
	DefaultFeePercentage decimal.Decimal      `mapstructure:"-"`
	DefaultFeePercentageStr string            `mapstructure:"default_fee_percentage"`

	BlockMinerPoolSize int   `mapstructure:"block_miner_pool_size"`
	MaxBlockNonce      int64 `mapstructure:"max_block_nonce"`

	ContractDeployBaseFee decimal.Decimal          `mapstructure:"-"`
	ContractDeployBaseFeeStr string                 `mapstructure:"contract_deploy_base_fee"`
	ContractDeployPerByteFee decimal.Decimal        `mapstructure:"-"`
	ContractDeployPerByteFeeStr string               `mapstructure:"contract_deploy_per_byte_fee"`

	GasPrice decimal.Decimal `mapstructure:"-"`
	GasPriceStr string       `mapstructure:"gas_price"`

	DefaultGasLimit uint64 `mapstructure:"default_gas_limit"`
	MaxGasLimit     uint64 `mapstructure:"max_gas_limit"`

	GasCostContractCall uint64 `mapstructure:"gas_cost_contract_call"`
	GasCostStorageRead  uint64 `mapstructure:"gas_cost_storage_read"`
	GasCostStorageWrite uint64 `mapstructure:"gas_cost_storage_write"`

	AddressFormat string `mapstructure:"address_format"`
}

// Default returns a configuration matching the worked example shipped in
// the demo binary's documentation.
func Default() Config {
	return Config{
		CurrencyName:   "EmPower1 Coin",
		CurrencyCode:   "PTCN",
		CurrencySymbol: "P",
		Decimals:       8,

		FaucetName: "faucet",
		DrainName:  "drain",

		GenesisCoinsAmount: decimal.NewFromInt(1000),

		MaxPendingTransactions:      50,
		AutoCreateBlockDelaySeconds: 30,

		BlockchainDifficulty: 2,

		RewardPerMinedTransaction: decimal.NewFromFloat(0.1),
		FixedTransactionFee:       decimal.NewFromFloat(0.05),
		DefaultFeePercentage:      decimal.NewFromFloat(0.01),

		BlockMinerPoolSize: 4,
		MaxBlockNonce:      1_000_000,

		ContractDeployBaseFee:    decimal.NewFromFloat(1),
		ContractDeployPerByteFee: decimal.NewFromFloat(0.001),

		GasPrice: decimal.NewFromFloat(0.0001),

		DefaultGasLimit: 100_000,
		MaxGasLimit:     1_000_000,

		GasCostContractCall: 500,
		GasCostStorageRead:  50,
		GasCostStorageWrite: 200,

		AddressFormat: "hex",
	}
}

// Load reads configuration from flags, environment, and an optional config
// file, falling back to Default() for anything unset. Errors from viper are
// wrapped so callers can tell a missing optional config file (ignored) apart
// from a malformed one (fatal).
func Load(flags *pflag.FlagSet) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("EMPOWER1")
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return cfg, fmt.Errorf("config: bind flags: %w", err)
		}
	}

	v.SetConfigName("empower1")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("config: read config file: %w", err)
		}
	}

	if v.IsSet("blockchain_difficulty") {
		cfg.BlockchainDifficulty = v.GetInt("blockchain_difficulty")
	}
	if v.IsSet("block_miner_pool_size") {
		cfg.BlockMinerPoolSize = v.GetInt("block_miner_pool_size")
	}
	if v.IsSet("max_pending_transactions") {
		cfg.MaxPendingTransactions = v.GetInt("max_pending_transactions")
	}
	if v.IsSet("auto_create_block_delay_seconds") {
		cfg.AutoCreateBlockDelaySeconds = v.GetInt("auto_create_block_delay_seconds")
	}

	decimalOverrides := []struct {
		key string
		dst *decimal.Decimal
	}{
		{"genesis_coins_amount", &cfg.GenesisCoinsAmount},
		{"reward_per_mined_transaction", &cfg.RewardPerMinedTransaction},
		{"fixed_transaction_fee", &cfg.FixedTransactionFee},
		{"default_fee_percentage", &cfg.DefaultFeePercentage},
		{"contract_deploy_base_fee", &cfg.ContractDeployBaseFee},
		{"contract_deploy_per_byte_fee", &cfg.ContractDeployPerByteFee},
		{"gas_price", &cfg.GasPrice},
	}
	for _, o := range decimalOverrides {
		if !v.IsSet(o.key) {
			continue
		}
		parsed, err := decimal.NewFromString(v.GetString(o.key))
		if err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", o.key, err)
		}
		*o.dst = parsed
	}

	return cfg, nil
}
