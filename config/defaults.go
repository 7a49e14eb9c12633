package config

// DefaultMainnet returns the default daemon configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		P2P: P2PConfig{
			Enabled:    true,
			ListenAddr: "0.0.0.0",
			Port:       8444,
			// Seed addresses are multiaddr strings, e.g.:
			//   "/dns4/seed1.example.org/tcp/8444/p2p/12D3KooW..."
			// Left empty until seed peers are provisioned.
			Seeds:    []string{},
			MaxPeers: 50,
		},
		RPC: RPCConfig{
			Enabled:    true,
			Addr:       "127.0.0.1",
			Port:       9256,
			AllowedIPs: []string{"127.0.0.1"},
		},
		Wallet: WalletConfig{
			DerivationGap: 500,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default daemon configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.P2P.Port = 18444
	cfg.RPC.Port = 19256
	return cfg
}

// Default returns the default daemon configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}
