package config

type Config struct {
	General `mapstructure:"general"`
	P2P     `mapstructure:"p2p"`
}

type General struct {
	DataDir string `mapstructure:"data_dir"`
	Debug   bool   `mapstructure:"debug"`
}

type P2P struct {
	ServerMode           bool     `mapstructure:"server_mode"` // public deployment: filter private-range addresses
	ListenAddress        []string `mapstructure:"listen_address"`
	BootstrapPeers       []string `mapstructure:"bootstrap_peers"`
	ProbeWindowSecs      int      `mapstructure:"probe_window_secs"`      // ceiling for one reachability probe
	PromotionBackoffSecs int      `mapstructure:"promotion_backoff_secs"` // initial retry interval for relay promotion
	GossipTopic          string   `mapstructure:"gossip_topic"`
	Rendezvous           string   `mapstructure:"rendezvous"`
}
