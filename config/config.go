// Package config handles application configuration for the DataLayer
// singleton wallet daemon.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds daemon runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Peer networking (coin-state lookups and action-queue submission)
	P2P P2PConfig

	// RPC server
	RPC RPCConfig

	// Wallet key material
	Wallet WalletConfig

	// Logging
	Log LogConfig
}

// P2PConfig holds peer networking settings used by the ChainQuery/ActionQueue
// collaborators to reach the wider network.
type P2PConfig struct {
	Enabled    bool     `conf:"p2p.enabled"`
	ListenAddr string   `conf:"p2p.listen"`
	Port       int      `conf:"p2p.port"`
	Seeds      []string `conf:"p2p.seeds"`
	MaxPeers   int      `conf:"p2p.maxpeers"`
	NoDiscover bool     `conf:"p2p.nodiscover"`
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
}

// WalletConfig holds wallet key-material settings.
type WalletConfig struct {
	FilePath      string `conf:"wallet.file"`
	DerivationGap int    `conf:"wallet.derivation_gap"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.dlwallet
//	macOS:   ~/Library/Application Support/DLWallet
//	Windows: %APPDATA%\DLWallet
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dlwallet"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "DLWallet")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "DLWallet")
		}
		return filepath.Join(home, "AppData", "Roaming", "DLWallet")
	default:
		return filepath.Join(home, ".dlwallet")
	}
}

// NetDataDir returns the network-specific data directory.
func (c *Config) NetDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// WalletDir returns the wallet directory created at startup. The daemon opens
// its singleton record store under NetDataDir()/store, not here.
func (c *Config) WalletDir() string {
	return filepath.Join(c.NetDataDir(), "wallet")
}

// KeystoreDir returns the keystore directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.NetDataDir(), "keystore")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "dlwallet.conf")
}
