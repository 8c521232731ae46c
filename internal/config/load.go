package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

var cfg Config
var home = os.Getenv("HOME")

// FS is swapped for an in-memory filesystem in tests.
var FS afero.Fs = afero.NewOsFs()

func getViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("fidonext_config")
	v.SetConfigType("json")
	v.AddConfigPath(".")               // config file reading order starts with current working directory
	v.AddConfigPath("$HOME/.fidonext") // then home directory
	v.AddConfigPath("/etc/fidonext/")  // finally /etc/fidonext
	return v
}

func setDefaultConfig() *viper.Viper {
	v := getViper()
	v.SetDefault("general.data_dir", home+"/.fidonext")
	v.SetDefault("general.debug", false)
	v.SetDefault("p2p.server_mode", false)
	// tcp only; the quic listen address has to be configured explicitly
	// alongside enabling the quic transport
	v.SetDefault("p2p.listen_address", []string{
		"/ip4/0.0.0.0/tcp/9000",
	})
	v.SetDefault("p2p.bootstrap_peers", []string{})
	v.SetDefault("p2p.probe_window_secs", 10)
	v.SetDefault("p2p.promotion_backoff_secs", 5)
	v.SetDefault("p2p.gossip_topic", "echo")
	v.SetDefault("p2p.rendezvous", "fidonext")
	return v
}

func LoadConfig() {
	paths := []string{
		".",
		home + "/.fidonext",
		"/etc/fidonext",
	}
	configFile := "fidonext_config.json"
	v := setDefaultConfig()

	config, err := findConfig(paths, configFile)
	if err != nil {
		setDefaultConfig().Unmarshal(&cfg)
		return
	}

	modifiedConfig := removeComments(config)
	if err = v.ReadConfig(bytes.NewBuffer(modifiedConfig)); err != nil { // Viper only reads buffer, keeping comments in original config
		setDefaultConfig().Unmarshal(&cfg)
		return
	}

	if err = v.Unmarshal(&cfg); err != nil {
		setDefaultConfig().Unmarshal(&cfg)
	}
}

func SetConfig(key string, value interface{}) {
	v := setDefaultConfig()
	v.Set(key, value)
	err := v.Unmarshal(&cfg)
	if err != nil {
		setDefaultConfig().Unmarshal(&cfg)
	}
}

func GetConfig() *Config {
	if reflect.DeepEqual(cfg, Config{}) {
		LoadConfig()
	}
	return &cfg
}

func findConfig(paths []string, filename string) ([]byte, error) {
	for _, path := range paths {
		fullPath := filepath.Join(path, filename)
		if _, err := FS.Stat(fullPath); err == nil {
			return afero.ReadFile(FS, fullPath)
		}
	}

	return nil, fmt.Errorf("file not found in any of the paths")
}

func removeComments(configBytes []byte) []byte {
	re := regexp.MustCompile("(?s)//.*?\n") // match all '//' until the end of the line
	return re.ReplaceAll(configBytes, nil)
}
