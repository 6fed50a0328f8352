package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// TVLConfig holds configuration for the tvl and accounts commands.
type TVLConfig struct {
	RPCURL            string
	Version           string
	Contract          string
	Block             string
	FromBlock         uint64
	BatchSize         uint64
	MaxRetries        int
	RetryBackoff      time.Duration
	RequestsPerSecond float64
	In                string
	Multicall         string
	ChunkSize         int
	SkipUnresolved    bool
	Decimals          int
	PGDSN             string
	LogLevel          string
}

// LoadTVL merges config file, environment variables, and flags into TVLConfig.
func LoadTVL(cfgFile string, flags *pflag.FlagSet) (TVLConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"version":       "v2",
		"block":         "latest",
		"batch-size":    uint64(2000),
		"max-retries":   5,
		"retry-backoff": 500 * time.Millisecond,
		"decimals":      -1,
		"log-level":     "info",
	})
	if err != nil {
		return TVLConfig{}, err
	}

	return TVLConfig{
		RPCURL:            v.GetString("rpc"),
		Version:           v.GetString("version"),
		Contract:          v.GetString("contract"),
		Block:             v.GetString("block"),
		FromBlock:         v.GetUint64("from"),
		BatchSize:         v.GetUint64("batch-size"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		RequestsPerSecond: v.GetFloat64("rps"),
		In:                v.GetString("in"),
		Multicall:         v.GetString("multicall"),
		ChunkSize:         v.GetInt("chunk-size"),
		SkipUnresolved:    v.GetBool("skip-unresolved"),
		Decimals:          v.GetInt("decimals"),
		PGDSN:             v.GetString("pg-dsn"),
		LogLevel:          v.GetString("log-level"),
	}, nil
}

// ParseBlock parses a block selector: "latest" (or empty) yields 0, otherwise
// a decimal or 0x-prefixed height.
func ParseBlock(input string) (uint64, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.EqualFold(input, "latest") {
		return 0, nil
	}

	if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
		val, err := strconv.ParseUint(input[2:], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid block %q: %w", input, err)
		}
		return nonZeroBlock(val, input)
	}

	if !isNumeric(input) {
		return 0, fmt.Errorf("invalid block %q", input)
	}
	val, err := strconv.ParseUint(input, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid block %q: %w", input, err)
	}
	return nonZeroBlock(val, input)
}

func nonZeroBlock(val uint64, input string) (uint64, error) {
	if val == 0 {
		return 0, fmt.Errorf("block %q: genesis cannot be queried", input)
	}
	return val, nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
