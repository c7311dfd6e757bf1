// Package config resolves the process-wide Configuration from command-line
// flags: advertised service name, listening TCP port, and the hardware
// address derived from the name.
package config

import (
	"crypto/md5"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// Config is the immutable, process-wide configuration a receiver starts
// with. Nothing here changes once Parse returns.
type Config struct {
	Name        string
	Port        int
	HWAddr      [6]byte
	ShowVersion bool
}

// Parse reads args (normally os.Args[1:]) into a Config, validating the
// port range and deriving HWAddr from Name.
func Parse(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("raop-server", pflag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	name := fs.StringP("name", "n", "Airguitar", "Advertised service name.")
	port := fs.IntP("port", "p", 0, "TCP port to listen on. 0 picks an OS-assigned port.")
	showVersion := fs.BoolP("version", "v", false, "Print version and exit.")

	fs.Usage = func() {
		fmt.Fprintf(os.Stdout, "raop-server - an AirPlay 1 (RAOP) audio receiver.\n\n")
		fmt.Fprintf(os.Stdout, "Usage: raop-server [options]\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := &Config{Name: *name, Port: *port, ShowVersion: *showVersion}

	if err := validatePort(cfg.Port); err != nil {
		return nil, err
	}
	if err := validateName(cfg.Name); err != nil {
		return nil, err
	}

	cfg.HWAddr = deriveHWAddr(cfg.Name)
	return cfg, nil
}

func validatePort(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", port)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	return nil
}

// deriveHWAddr takes the first six bytes of MD5(name) as a stand-in hardware
// address, matching the derivation real AirPlay 1 receivers use when they
// have no backing network interface to read a MAC address from.
func deriveHWAddr(name string) [6]byte {
	sum := md5.Sum([]byte(name))
	var hw [6]byte
	copy(hw[:], sum[:6])
	return hw
}
