// Package sh is the interactive shell of hubcli.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/hub.go/pkg/board"
	"github.com/robotalks/hub.go/pkg/bus"
	"github.com/robotalks/hub.go/pkg/comm"
	"github.com/robotalks/hub.go/pkg/comm/mqtt"
	"github.com/robotalks/hub.go/pkg/comm/websocket"
	"github.com/robotalks/hub.go/pkg/raw"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	// Target is connected when the shell starts, if set.
	Target string

	Shell *ishell.Shell
	Conn  *Conn
}

// Conn is an open connection to a board.
type Conn struct {
	Target Target
	Board  *board.Board

	cancel  context.CancelFunc
	closers []io.Closer
}

// Close closes the connection.
func (c *Conn) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	var err error
	for n := len(c.closers) - 1; n >= 0; n-- {
		if e := c.closers[n].Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	target     = os.Getenv("HUB_URL")

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&target, "url", target, "Board to connect: sim, spidev[:DEV], serial:PORT, mqtt://BROKER/PREFIX/BOARD or ws://HOST:PORT")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New() *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Target:      target,
		Shell:       ishell.New(),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context, conn *Conn)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		conn := ShellFrom(c).Conn
		if conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c, conn)
	}
}

// Output prints v as JSON in JSON mode, otherwise prints text.
func Output(c *ishell.Context, v interface{}, text string) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// Dial opens the accessor of a target.
func Dial(t Target) (*Conn, error) {
	t, err := t.ResolvePort()
	if err != nil {
		return nil, err
	}
	conn := &Conn{Target: t}
	var acc bus.Accessor
	switch t.Kind {
	case TargetSPI, TargetSerial, TargetSim:
		tr, err := t.transportConfig().OpenTransport()
		if err != nil {
			return nil, err
		}
		dev := bus.NewDevice(t.String(), tr)
		conn.closers = append(conn.closers, dev)
		acc = dev
	case TargetMQTT:
		q, err := mqtt.NewQueueFromURL(t.Path)
		if err != nil {
			return nil, err
		}
		if err = q.Connect(); err != nil {
			return nil, err
		}
		conn.closers = append(conn.closers, q)
		acc = conn.startClient(mqtt.ForClient(q, t.Board+"/regs"))
	case TargetWebsocket:
		rw, err := websocket.Dial(t.Path)
		if err != nil {
			return nil, err
		}
		acc = conn.startClient(rw)
	default:
		return nil, fmt.Errorf("unsupported target %v", t)
	}
	b, err := board.New(acc)
	if err != nil {
		conn.Close()
		return nil, err
	}
	conn.Board = b
	return conn, nil
}

func (c *Conn) startClient(rw comm.PacketReadWriter) *raw.Client {
	client := raw.NewClient(rw)
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.closers = append(c.closers, client)
	go client.Run(ctx)
	return client
}

// Connect connects a board.
func (s *Shell) Connect(target string) error {
	t, err := ParseTarget(target)
	if err != nil {
		return err
	}
	conn, err := Dial(t)
	if err != nil {
		return err
	}
	s.Disconnect()
	s.Conn = conn
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", t))
	return nil
}

// Disconnect disconnects current board.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Close()
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.Target != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Target)
		}
		if err := s.Connect(s.Target); err != nil {
			log.Fatalf("connect %q failed: %v", s.Target, err)
		}
		defer s.Disconnect()
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// ConnectCmd connects a board.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "TARGET",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("expect exactly one target"))
				return
			}
			if err := ShellFrom(c).Connect(c.Args[0]); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current board.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New().Run(flag.Args()...)
}
