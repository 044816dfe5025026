package sensors

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/hub.go/pkg/bus"
	"github.com/robotalks/hub.go/pkg/regmap"
	"github.com/robotalks/hub.go/pkg/transport/sim"
)

func encode(t *testing.T, v interface{}) []byte {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	return buf.Bytes()
}

func TestReadBlocks(t *testing.T) {
	hub := sim.New()
	dev := bus.NewDevice("sim", hub)
	defer dev.Close()
	mcu := New(regmap.Default().MustWindow(regmap.MCU, dev))

	env := Env{Humidity: 41.5, Temperature: 23.25, Pressure: 101325, UV: 0.5}
	hub.Poke(regmap.MCUBase+RegEnv, encode(t, env))
	imu := IMU{Accel: Vec3{0, 0, 1}, Gyro: Vec3{0.1, -0.2, 0.3}, Mag: Vec3{20, -5, 40}}
	hub.Poke(regmap.MCUBase+RegIMU, encode(t, imu))

	gotEnv, err := mcu.ReadEnv()
	require.NoError(t, err)
	assert.Equal(t, env, *gotEnv)
	gotIMU, err := mcu.ReadIMU()
	require.NoError(t, err)
	assert.Equal(t, imu, *gotIMU)

	exchanges := hub.Exchanges()
	require.Len(t, exchanges, 2)
	assert.Equal(t, bus.CommandSize+16, exchanges[0].Len)
	assert.Equal(t, bus.CommandSize+36, exchanges[1].Len)
}

func TestReadFailure(t *testing.T) {
	hub := sim.New()
	dev := bus.NewDevice("sim", hub)
	mcu := New(regmap.Default().MustWindow(regmap.MCU, dev))
	dev.Close()
	_, err := mcu.ReadEnv()
	assert.ErrorIs(t, err, bus.ErrDeviceGone)
}
