// Package config reads the two behavioral choices spec.md leaves open
// (strict vs. lossy version handling, §4.5/§9; HTTP listen address,
// §4.10) from the environment, grounded on
// _examples/zcash-lightwalletd/cmd/root.go's viper.GetString/GetBool
// pattern over a BindEnv'd prefix.
package config

import "github.com/spf13/viper"

const envPrefix = "BTCOMPRESS"

func init() {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()
	viper.SetDefault("strict", true)
	viper.SetDefault("addr", "")
	viper.SetDefault("port", "3000")
}

// Strict reports whether compression should refuse transactions whose
// version is outside {1, 2} (BTCOMPRESS_STRICT, default true) rather than
// truncating them into the VERSION_2 bit.
func Strict() bool {
	return viper.GetBool("strict")
}

// ListenAddr returns the address the HTTP service should bind, combining
// BTCOMPRESS_ADDR (host, default all interfaces) and BTCOMPRESS_PORT
// (default "3000").
func ListenAddr() string {
	return viper.GetString("addr") + ":" + viper.GetString("port")
}
