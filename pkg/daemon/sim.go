package daemon

import (
	"bytes"
	"encoding/binary"

	"github.com/robotalks/hub.go/pkg/everloop"
	"github.com/robotalks/hub.go/pkg/regmap"
	"github.com/robotalks/hub.go/pkg/sensors"
	"github.com/robotalks/hub.go/pkg/transport/sim"
	"github.com/robotalks/hub.go/pkg/uart"
)

// Identity of the simulated board.
const (
	SimBoardName    uint32 = 0x05c344e8
	SimBoardVersion uint32 = 0x00000010
	SimFPGAClock    uint32 = 50000000
)

// NewSimHub creates a simulated hub with identity and sensor values set.
func NewSimHub() *sim.Hub {
	hub := sim.New()
	conf := make([]byte, 14)
	binary.LittleEndian.PutUint32(conf[0:], SimBoardName)
	binary.LittleEndian.PutUint32(conf[4:], SimBoardVersion)
	binary.LittleEndian.PutUint32(conf[8:], SimFPGAClock)
	binary.LittleEndian.PutUint16(conf[12:], everloop.DefaultLEDCount)
	hub.Poke(regmap.ConfBase, conf)

	var env bytes.Buffer
	binary.Write(&env, binary.LittleEndian, &sensors.Env{Humidity: 45, Temperature: 22.5, Pressure: 101325, UV: 0.1})
	hub.Poke(regmap.MCUBase+sensors.RegEnv, env.Bytes())
	hub.AddFIFO(regmap.UARTBase + uart.RegData)
	return hub
}
