// Package sensors reads the values the MCU publishes in its SRAM.
package sensors

import (
	"bytes"
	"encoding/binary"

	"github.com/robotalks/hub.go/pkg/bus"
)

// Block offsets in the mcu segment.
const (
	RegEnv uint16 = 0x00
	RegIMU uint16 = 0x30
)

// Env is the environment block, as published by the MCU.
type Env struct {
	Humidity    float32 `json:"humidity"`
	Temperature float32 `json:"temperature"`
	Pressure    float32 `json:"pressure"`
	UV          float32 `json:"uv"`
}

// Vec3 is a 3-axis reading.
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// IMU is the inertial block.
type IMU struct {
	Accel Vec3 `json:"accel"`
	Gyro  Vec3 `json:"gyro"`
	Mag   Vec3 `json:"mag"`
}

// MCU reads the sensor blocks.
type MCU struct {
	w bus.Accessor
}

// New creates an MCU over the mcu segment window.
func New(w bus.Accessor) *MCU {
	return &MCU{w: w}
}

// ReadEnv reads the environment block.
func (m *MCU) ReadEnv() (*Env, error) {
	var env Env
	if err := m.read(RegEnv, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// ReadIMU reads the inertial block.
func (m *MCU) ReadIMU() (*IMU, error) {
	var imu IMU
	if err := m.read(RegIMU, &imu); err != nil {
		return nil, err
	}
	return &imu, nil
}

func (m *MCU) read(reg uint16, v interface{}) error {
	buf := make([]byte, binary.Size(v))
	if err := m.w.ReadInto(reg, buf); err != nil {
		return err
	}
	return binary.Read(bytes.NewReader(buf), binary.LittleEndian, v)
}
