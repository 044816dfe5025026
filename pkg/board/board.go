// Package board assembles the subsystem drivers of one hub.
package board

import (
	"encoding/binary"
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/hub.go/pkg/bus"
	"github.com/robotalks/hub.go/pkg/everloop"
	"github.com/robotalks/hub.go/pkg/gpio"
	"github.com/robotalks/hub.go/pkg/regmap"
	"github.com/robotalks/hub.go/pkg/sensors"
	"github.com/robotalks/hub.go/pkg/uart"
)

// Identity register offsets in the conf segment.
const (
	RegName      uint16 = 0x00
	RegVersion   uint16 = 0x04
	RegFPGAClock uint16 = 0x08
	RegLEDCount  uint16 = 0x0c

	infoSize = 14
)

// Info is the identity of the board.
type Info struct {
	Name      uint32 `json:"name"`
	Version   uint32 `json:"version"`
	FPGAClock uint32 `json:"fpga_clock"`
	LEDCount  int    `json:"led_count"`
}

// String implements fmt.Stringer.
func (i *Info) String() string {
	return fmt.Sprintf("board 0x%08x version 0x%08x clock %dHz leds %d", i.Name, i.Version, i.FPGAClock, i.LEDCount)
}

// ReadInfo reads the identity from the conf segment window.
func ReadInfo(conf bus.Accessor) (*Info, error) {
	var buf [infoSize]byte
	if err := conf.ReadInto(RegName, buf[:]); err != nil {
		return nil, err
	}
	return &Info{
		Name:      binary.LittleEndian.Uint32(buf[RegName:]),
		Version:   binary.LittleEndian.Uint32(buf[RegVersion:]),
		FPGAClock: binary.LittleEndian.Uint32(buf[RegFPGAClock:]),
		LEDCount:  int(binary.LittleEndian.Uint16(buf[RegLEDCount:])),
	}, nil
}

// Board holds the drivers sharing one device.
type Board struct {
	Info     *Info
	Map      *regmap.Map
	Raw      regmap.Raw
	Everloop *everloop.Ring
	GPIO     *gpio.Bank
	UART     *uart.Port
	Sensors  *sensors.MCU
}

// New reads the identity and creates the drivers with the default map.
func New(acc bus.Accessor) (*Board, error) {
	return NewWithMap(acc, regmap.Default())
}

// NewWithMap is New with a custom map, which must define all the
// segments used by the drivers.
func NewWithMap(acc bus.Accessor, m *regmap.Map) (*Board, error) {
	windows := make(map[string]*regmap.Window)
	for _, name := range []string{regmap.Conf, regmap.Everloop, regmap.GPIO, regmap.UART, regmap.MCU} {
		w, err := m.Window(name, acc)
		if err != nil {
			return nil, err
		}
		windows[name] = w
	}
	info, err := ReadInfo(windows[regmap.Conf])
	if err != nil {
		return nil, fmt.Errorf("read board info: %w", err)
	}
	glog.Infof("%s", info)
	return &Board{
		Info:     info,
		Map:      m,
		Raw:      regmap.NewRaw(acc),
		Everloop: everloop.New(windows[regmap.Everloop], info.LEDCount),
		GPIO:     gpio.New(windows[regmap.GPIO]),
		UART:     uart.New(windows[regmap.UART]),
		Sensors:  sensors.New(windows[regmap.MCU]),
	}, nil
}
