package daemon

import (
	"encoding/json"
	"time"

	fx "github.com/robotalks/hub.go/pkg/framework"
	"github.com/robotalks/hub.go/pkg/everloop"
	"github.com/robotalks/hub.go/pkg/gpio"
	"github.com/robotalks/hub.go/pkg/sensors"
)

// Message kinds.
const (
	KindEnv      = "env"
	KindIMU      = "imu"
	KindGPIO     = "gpio"
	KindEverloop = "everloop"
)

// EnvMsg is an environment reading.
type EnvMsg struct {
	sensors.Env
	Time time.Time `json:"time"`
}

// Kind implements framework.Message.
func (m *EnvMsg) Kind() string { return KindEnv }

// IMUMsg is an inertial reading.
type IMUMsg struct {
	sensors.IMU
	Time time.Time `json:"time"`
}

// Kind implements framework.Message.
func (m *IMUMsg) Kind() string { return KindIMU }

// GPIOMsg is the state of the pins.
type GPIOMsg struct {
	Values uint16 `json:"values"`
	Modes  uint16 `json:"modes"`
}

// Kind implements framework.Message.
func (m *GPIOMsg) Kind() string { return KindGPIO }

// EverloopMsg is a frame to show on the LED ring.
type EverloopMsg struct {
	Frame []byte
}

// Kind implements framework.Message.
func (m *EverloopMsg) Kind() string { return KindEverloop }

// SensorPoller reads the MCU blocks in each iteration.
type SensorPoller struct {
	MCU *sensors.MCU
}

// Control implements framework.Controller.
func (p *SensorPoller) Control(cc fx.ControlContext) error {
	env, err := p.MCU.ReadEnv()
	if err != nil {
		return err
	}
	imu, err := p.MCU.ReadIMU()
	if err != nil {
		return err
	}
	cc.Messages().Add(&EnvMsg{Env: *env, Time: cc.Time()}, &IMUMsg{IMU: *imu, Time: cc.Time()})
	return nil
}

// GPIOPoller reports the pins when they change.
type GPIOPoller struct {
	Bank *gpio.Bank

	last *GPIOMsg
}

// Control implements framework.Controller.
func (p *GPIOPoller) Control(cc fx.ControlContext) error {
	values, err := p.Bank.Values()
	if err != nil {
		return err
	}
	modes, err := p.Bank.Modes()
	if err != nil {
		return err
	}
	msg := &GPIOMsg{Values: values, Modes: modes}
	if p.last != nil && *p.last == *msg {
		return nil
	}
	p.last = msg
	cc.Messages().Add(msg)
	return nil
}

// EverloopWriter shows the latest frame received.
type EverloopWriter struct {
	Ring *everloop.Ring
}

// Control implements framework.Controller.
func (w *EverloopWriter) Control(cc fx.ControlContext) error {
	msgs := cc.Messages().Take(KindEverloop)
	if len(msgs) == 0 {
		return nil
	}
	return w.Ring.WriteRaw(msgs[len(msgs)-1].(*EverloopMsg).Frame)
}

// PublishFunc publishes a payload to a topic.
type PublishFunc func(topic string, payload []byte) error

// Publisher publishes readings as JSON to <prefix>/<kind>.
type Publisher struct {
	Publish PublishFunc
	Prefix  string
}

// Control implements framework.Controller.
func (p *Publisher) Control(cc fx.ControlContext) error {
	var errs fx.AggregatedError
	for _, kind := range []string{KindEnv, KindIMU, KindGPIO} {
		msgs := cc.Messages().Take(kind)
		if len(msgs) == 0 {
			continue
		}
		payload, err := json.Marshal(msgs[len(msgs)-1])
		if err != nil {
			errs.Add(err)
			continue
		}
		errs.Add(p.Publish(p.Prefix+"/"+kind, payload))
	}
	return errs.Aggregate()
}
