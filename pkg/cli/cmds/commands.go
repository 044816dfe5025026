// Package cmds provides hubcli commands operating a connected board.
package cmds

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/hub.go/pkg/bus"
	"github.com/robotalks/hub.go/pkg/cli/sh"
	"github.com/robotalks/hub.go/pkg/everloop"
	"github.com/robotalks/hub.go/pkg/gpio"
)

// ParseAddr parses a register address, e.g. 0x3000.
func ParseAddr(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil || v > uint64(bus.MaxAddr) {
		return 0, fmt.Errorf("address %q: %w", s, bus.ErrInvalidAddress)
	}
	return uint16(v), nil
}

// ParseHex parses bytes given as hex, in one or more arguments.
func ParseHex(args []string) ([]byte, error) {
	s := strings.TrimPrefix(strings.Join(args, ""), "0x")
	return hex.DecodeString(s)
}

func parseByte(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	return uint8(v), err
}

type regData struct {
	Addr uint16 `json:"addr"`
	Data string `json:"data"`
}

var (
	// ReadCmd reads registers.
	ReadCmd = ishell.Cmd{
		Name:    "rd",
		Aliases: []string{"read"},
		Help:    "ADDR LEN",
		Func: sh.MustBeConnected(func(c *ishell.Context, conn *sh.Conn) {
			if len(c.Args) != 2 {
				c.Err(fmt.Errorf("expect ADDR LEN"))
				return
			}
			addr, err := ParseAddr(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			n, err := strconv.ParseUint(c.Args[1], 0, 16)
			if err != nil {
				c.Err(err)
				return
			}
			data, err := bus.Read(conn.Board.Raw, addr, int(n))
			if err != nil {
				c.Err(err)
				return
			}
			sh.Output(c, &regData{Addr: addr, Data: hex.EncodeToString(data)}, strings.TrimRight(hexDump(addr, data), "\n"))
		}),
	}

	// WriteCmd writes registers.
	WriteCmd = ishell.Cmd{
		Name:    "wr",
		Aliases: []string{"write"},
		Help:    "ADDR HEX...",
		Func: sh.MustBeConnected(func(c *ishell.Context, conn *sh.Conn) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("expect ADDR HEX..."))
				return
			}
			addr, err := ParseAddr(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			data, err := ParseHex(c.Args[1:])
			if err != nil {
				c.Err(err)
				return
			}
			if err = conn.Board.Raw.Write(addr, data); err != nil {
				c.Err(err)
				return
			}
			sh.Output(c, map[string]int{"written": len(data)}, "OK")
		}),
	}

	// InfoCmd shows the identity of the board.
	InfoCmd = ishell.Cmd{
		Name:    "info",
		Aliases: []string{"i"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context, conn *sh.Conn) {
			sh.Output(c, conn.Board.Info, conn.Board.Info.String())
		}),
	}

	// SegmentsCmd lists the register segments.
	SegmentsCmd = ishell.Cmd{
		Name:    "segments",
		Aliases: []string{"seg"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context, conn *sh.Conn) {
			segs := conn.Board.Map.Segments()
			lines := make([]string, len(segs))
			for n, seg := range segs {
				lines[n] = seg.String()
			}
			sh.Output(c, segs, strings.Join(lines, "\n"))
		}),
	}

	// LEDCmd fills the LED ring.
	LEDCmd = ishell.Cmd{
		Name:    "led",
		Aliases: []string{"everloop"},
		Help:    "R G B W",
		Func: sh.MustBeConnected(func(c *ishell.Context, conn *sh.Conn) {
			if len(c.Args) != 4 {
				c.Err(fmt.Errorf("expect R G B W"))
				return
			}
			var rgbw [4]uint8
			for n, arg := range c.Args {
				v, err := parseByte(arg)
				if err != nil {
					c.Err(err)
					return
				}
				rgbw[n] = v
			}
			led := everloop.LED{R: rgbw[0], G: rgbw[1], B: rgbw[2], W: rgbw[3]}
			if err := conn.Board.Everloop.Fill(led); err != nil {
				c.Err(err)
				return
			}
			sh.Output(c, led, "OK")
		}),
	}

	// GPIOCmd reads or sets a pin.
	GPIOCmd = ishell.Cmd{
		Name:    "gpio",
		Aliases: []string{"pin"},
		Help:    "PIN [0|1]",
		Func: sh.MustBeConnected(func(c *ishell.Context, conn *sh.Conn) {
			if len(c.Args) < 1 || len(c.Args) > 2 {
				c.Err(fmt.Errorf("expect PIN [0|1]"))
				return
			}
			pin, err := strconv.Atoi(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			bank := conn.Board.GPIO
			if len(c.Args) == 2 {
				high := c.Args[1] != "0"
				if err = bank.SetMode(pin, gpio.Output); err == nil {
					err = bank.Set(pin, high)
				}
				if err != nil {
					c.Err(err)
					return
				}
			}
			high, err := bank.Get(pin)
			if err != nil {
				c.Err(err)
				return
			}
			level := 0
			if high {
				level = 1
			}
			sh.Output(c, map[string]int{"pin": pin, "value": level}, strconv.Itoa(level))
		}),
	}

	// EnvCmd reads the environment sensors.
	EnvCmd = ishell.Cmd{
		Name:    "env",
		Aliases: []string{"sensors"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context, conn *sh.Conn) {
			env, err := conn.Board.Sensors.ReadEnv()
			if err != nil {
				c.Err(err)
				return
			}
			sh.Output(c, env, fmt.Sprintf("humidity %.1f%% temperature %.2fC pressure %.0fPa uv %.2f",
				env.Humidity, env.Temperature, env.Pressure, env.UV))
		}),
	}

	// IMUCmd reads the inertial sensors.
	IMUCmd = ishell.Cmd{
		Name:    "imu",
		Aliases: []string{},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context, conn *sh.Conn) {
			imu, err := conn.Board.Sensors.ReadIMU()
			if err != nil {
				c.Err(err)
				return
			}
			sh.Output(c, imu, fmt.Sprintf("accel %v gyro %v mag %v", imu.Accel, imu.Gyro, imu.Mag))
		}),
	}

	// PortsCmd lists serial ports for serial targets.
	PortsCmd = ishell.Cmd{
		Name:    "ports",
		Aliases: []string{},
		Help:    "",
		Func: func(c *ishell.Context) {
			ports, err := sh.SerialPorts()
			if err != nil {
				c.Err(err)
				return
			}
			sh.Output(c, ports, strings.Join(ports, "\n"))
		},
	}

	// UARTCmd sends text through the UART bridge and prints what's received.
	UARTCmd = ishell.Cmd{
		Name:    "uart",
		Aliases: []string{},
		Help:    "[TEXT...]",
		Func: sh.MustBeConnected(func(c *ishell.Context, conn *sh.Conn) {
			port := conn.Board.UART
			if len(c.Args) > 0 {
				if _, err := port.Write([]byte(strings.Join(c.Args, " "))); err != nil {
					c.Err(err)
					return
				}
			}
			buf := make([]byte, bus.ChunkSize)
			n, err := port.Read(buf)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Output(c, map[string]string{"received": string(buf[:n])}, string(buf[:n]))
		}),
	}
)

func hexDump(addr uint16, data []byte) string {
	var sb strings.Builder
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		fmt.Fprintf(&sb, "%04x: % x\n", int(addr)+off, data[off:end])
	}
	return sb.String()
}

func init() {
	sh.AddCmds(
		&ReadCmd,
		&WriteCmd,
		&InfoCmd,
		&SegmentsCmd,
		&LEDCmd,
		&GPIOCmd,
		&EnvCmd,
		&IMUCmd,
		&UARTCmd,
		&PortsCmd,
	)
}
