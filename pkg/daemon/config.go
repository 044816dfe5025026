// Package daemon wires a hub board to MQTT and websocket clients.
package daemon

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/hub.go/pkg/bus"
	"github.com/robotalks/hub.go/pkg/transport/serial"
	"github.com/robotalks/hub.go/pkg/transport/spidev"
)

// Transport kinds.
const (
	TransportSPI    = "spidev"
	TransportSerial = "serial"
	TransportSim    = "sim"
)

// Config defines the configurations of the daemon.
// Precedence: defaults, environment, config file, command line flags.
type Config struct {
	Transport string `yaml:"transport"`
	// Device is the spidev node or the serial port.
	Device   string `yaml:"device"`
	Speed    uint32 `yaml:"speed"`
	SPIMode  uint8  `yaml:"spi-mode"`
	BaudRate int    `yaml:"baud"`

	BoardID string `yaml:"board"`
	// MQTTBrokerURL specifies the MQTT broker to use, empty to disable.
	// e.g. mqtt://host:port/topic-prefix/
	MQTTBrokerURL string `yaml:"mqtt"`
	// Listen is the address serving the websocket raw bridge, empty to disable.
	Listen       string        `yaml:"listen"`
	PollInterval time.Duration `yaml:"poll-interval"`
}

var defaultConfig = Config{
	Transport:     TransportSPI,
	Device:        spidev.DefaultPath,
	Speed:         spidev.DefaultSpeed,
	SPIMode:       spidev.DefaultMode,
	BaudRate:      serial.DefaultBaudRate,
	MQTTBrokerURL: "mqtt://localhost:1883/hub/",
	PollInterval:  500 * time.Millisecond,
}

var configFile string

func init() {
	if val, ok := os.LookupEnv("HUB_CONFIG"); ok {
		configFile = val
	}
	if err := defaultConfig.ApplyEnv(os.LookupEnv); err != nil {
		log.Fatalln(err)
	}
	if defaultConfig.BoardID == "" {
		defaultConfig.BoardID = MachineID()
	}
}

// ApplyEnv overrides the fields set by HUB_* environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for name, field := range map[string]*string{
		"HUB_TRANSPORT": &c.Transport,
		"HUB_DEVICE":    &c.Device,
		"HUB_BOARD_ID":  &c.BoardID,
		"HUB_MQTT_URL":  &c.MQTTBrokerURL,
		"HUB_LISTEN":    &c.Listen,
	} {
		if val, ok := lookup(name); ok {
			*field = val
		}
	}
	for name, set := range map[string]func(string) error{
		"HUB_SPEED":    uint32Value{&c.Speed}.Set,
		"HUB_SPI_MODE": uint8Value{&c.SPIMode}.Set,
		"HUB_BAUD": func(s string) (err error) {
			c.BaudRate, err = strconv.Atoi(s)
			return
		},
		"HUB_POLL_INTERVAL": func(s string) (err error) {
			c.PollInterval, err = time.ParseDuration(s)
			return
		},
	} {
		if val, ok := lookup(name); ok {
			if err := set(val); err != nil {
				return fmt.Errorf("%s=%q: %w", name, val, err)
			}
		}
	}
	return nil
}

// flagFields copies the fields bound to flags, so flags set on the
// command line override the config file.
var flagFields = map[string]func(dst, src *Config){
	"transport":     func(dst, src *Config) { dst.Transport = src.Transport },
	"device":        func(dst, src *Config) { dst.Device = src.Device },
	"speed":         func(dst, src *Config) { dst.Speed = src.Speed },
	"spi-mode":      func(dst, src *Config) { dst.SPIMode = src.SPIMode },
	"baud":          func(dst, src *Config) { dst.BaudRate = src.BaudRate },
	"board":         func(dst, src *Config) { dst.BoardID = src.BoardID },
	"mqtt":          func(dst, src *Config) { dst.MQTTBrokerURL = src.MQTTBrokerURL },
	"listen":        func(dst, src *Config) { dst.Listen = src.Listen },
	"poll-interval": func(dst, src *Config) { dst.PollInterval = src.PollInterval },
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&configFile, "config", configFile, "YAML config file")
	flag.StringVar(&defaultConfig.Transport, "transport", defaultConfig.Transport, "Transport: spidev, serial or sim")
	flag.StringVar(&defaultConfig.Device, "device", defaultConfig.Device, "spidev node or serial port")
	flag.Var(uint32Value{&defaultConfig.Speed}, "speed", "SPI clock in Hz")
	flag.Var(uint8Value{&defaultConfig.SPIMode}, "spi-mode", "SPI mode, 0 to 3")
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Serial baud rate")
	flag.StringVar(&defaultConfig.BoardID, "board", defaultConfig.BoardID, "Board ID used in topics")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, empty to disable")
	flag.StringVar(&defaultConfig.Listen, "listen", defaultConfig.Listen, "Websocket listen address, e.g. :8080")
	flag.DurationVar(&defaultConfig.PollInterval, "poll-interval", defaultConfig.PollInterval, "Sensor polling interval")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Load creates a Config and applies the config file if specified.
func Load() (*Config, error) {
	conf := NewConfig()
	if configFile == "" {
		return conf, nil
	}
	if err := conf.ApplyFile(configFile); err != nil {
		return nil, err
	}
	flag.Visit(func(f *flag.Flag) {
		if copyField := flagFields[f.Name]; copyField != nil {
			copyField(conf, &defaultConfig)
		}
	})
	return conf, nil
}

// MustLoad loads and validates the Config and fails on error.
func MustLoad() *Config {
	conf, err := Load()
	if err == nil {
		err = conf.Validate()
	}
	if err != nil {
		log.Fatalln(err)
	}
	return conf
}

// ApplyFile overrides the fields present in a YAML file.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

// Validate checks the config.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportSPI, TransportSerial:
		if c.Device == "" {
			return fmt.Errorf("transport %s requires a device", c.Transport)
		}
	case TransportSim:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if c.Transport == TransportSPI && c.SPIMode > 3 {
		return fmt.Errorf("invalid SPI mode %d", c.SPIMode)
	}
	if c.BoardID == "" || strings.ContainsAny(c.BoardID, "/+#") {
		return fmt.Errorf("invalid board ID %q", c.BoardID)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	return nil
}

// OpenTransport opens the configured transport.
func (c *Config) OpenTransport() (bus.Transport, error) {
	switch c.Transport {
	case TransportSPI:
		opts := spidev.DefaultOptions()
		opts.Path, opts.Speed, opts.Mode = c.Device, c.Speed, c.SPIMode
		t, err := spidev.Open(opts)
		if err != nil {
			return nil, err
		}
		return t, nil
	case TransportSerial:
		t, err := serial.Open(serial.Options{Port: c.Device, BaudRate: c.BaudRate})
		if err != nil {
			return nil, err
		}
		return t, nil
	case TransportSim:
		return NewSimHub(), nil
	}
	return nil, fmt.Errorf("unknown transport %q", c.Transport)
}

type uint32Value struct {
	p *uint32
}

func (v uint32Value) String() string {
	if v.p == nil {
		return "0"
	}
	return fmt.Sprint(*v.p)
}

func (v uint32Value) Set(s string) error {
	var n uint32
	if _, err := fmt.Sscan(s, &n); err != nil {
		return err
	}
	*v.p = n
	return nil
}

type uint8Value struct {
	p *uint8
}

func (v uint8Value) String() string {
	if v.p == nil {
		return "0"
	}
	return fmt.Sprint(*v.p)
}

func (v uint8Value) Set(s string) error {
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return err
	}
	*v.p = uint8(n)
	return nil
}
