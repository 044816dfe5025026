package sh

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robotalks/hub.go/pkg/daemon"
	"github.com/robotalks/hub.go/pkg/transport/serial"
	"github.com/robotalks/hub.go/pkg/transport/spidev"
)

// Target kinds.
const (
	TargetSPI       = daemon.TransportSPI
	TargetSerial    = daemon.TransportSerial
	TargetSim       = daemon.TransportSim
	TargetMQTT      = "mqtt"
	TargetWebsocket = "ws"
)

// Target locates a hub board, either attached locally or behind hubd.
type Target struct {
	Kind string
	// Path is the device for local targets, or the URL for remote ones.
	Path string
	// Board is the board ID of MQTT targets.
	Board string
}

// String implements fmt.Stringer.
func (t Target) String() string {
	switch t.Kind {
	case TargetSim:
		return TargetSim
	case TargetMQTT:
		return t.Board
	}
	if t.Path == "" {
		return t.Kind
	}
	return t.Kind + ":" + t.Path
}

// ParseTarget parses forms like:
//
//	sim
//	spidev[:/dev/spidev0.0]
//	serial[:/dev/ttyACM0]
//	mqtt://broker:1883/prefix/BOARD
//	ws://host:8080/regs
func ParseTarget(s string) (Target, error) {
	switch {
	case s == TargetSim:
		return Target{Kind: TargetSim}, nil
	case s == TargetSPI:
		return Target{Kind: TargetSPI, Path: spidev.DefaultPath}, nil
	case strings.HasPrefix(s, TargetSPI+":"):
		return Target{Kind: TargetSPI, Path: s[len(TargetSPI)+1:]}, nil
	case s == TargetSerial:
		return Target{Kind: TargetSerial}, nil
	case strings.HasPrefix(s, TargetSerial+":"):
		return Target{Kind: TargetSerial, Path: s[len(TargetSerial)+1:]}, nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return Target{}, err
	}
	switch u.Scheme {
	case "mqtt", "tcp", "ssl":
		path := strings.Trim(u.Path, "/")
		pos := strings.LastIndex(path, "/")
		board := path[pos+1:]
		if board == "" {
			return Target{}, fmt.Errorf("board ID missing in %q", s)
		}
		u.Path = "/" + path[:pos+1]
		return Target{Kind: TargetMQTT, Path: u.String(), Board: board}, nil
	case "ws", "wss":
		if u.Path == "" || u.Path == "/" {
			u.Path = "/regs"
		}
		return Target{Kind: TargetWebsocket, Path: u.String()}, nil
	}
	return Target{}, fmt.Errorf("unsupported target %q", s)
}

// SerialPorts lists the serial ports present.
var SerialPorts = serial.Ports

// ResolvePort fills the port of a serial target given without one,
// when exactly one serial port is present.
func (t Target) ResolvePort() (Target, error) {
	if t.Kind != TargetSerial || t.Path != "" {
		return t, nil
	}
	ports, err := SerialPorts()
	if err != nil {
		return t, err
	}
	switch len(ports) {
	case 0:
		return t, fmt.Errorf("no serial port found")
	case 1:
		t.Path = ports[0]
		return t, nil
	}
	return t, fmt.Errorf("serial port required, found: %s", strings.Join(ports, ", "))
}

func (t Target) transportConfig() *daemon.Config {
	conf := daemon.NewConfig()
	conf.Transport, conf.Device = t.Kind, t.Path
	if t.Kind == TargetSerial {
		conf.BaudRate = serial.DefaultBaudRate
	}
	return conf
}
