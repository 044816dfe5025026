package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/golang/glog"

	"github.com/robotalks/hub.go/pkg/board"
	"github.com/robotalks/hub.go/pkg/bus"
	"github.com/robotalks/hub.go/pkg/comm"
	"github.com/robotalks/hub.go/pkg/comm/mqtt"
	"github.com/robotalks/hub.go/pkg/comm/websocket"
	fx "github.com/robotalks/hub.go/pkg/framework"
	"github.com/robotalks/hub.go/pkg/raw"
)

// Topics under <prefix><board>/.
const (
	TopicInfo     = "info"
	TopicEverloop = "everloop"
	TopicRegs     = "regs"
)

// Daemon owns the device of one board and serves it.
type Daemon struct {
	Config *Config
	Device *bus.Device
	Board  *board.Board
	Queue  *mqtt.Queue
}

// New opens the board and prepares the MQTT client.
func New(conf *Config) (*Daemon, error) {
	t, err := conf.OpenTransport()
	if err != nil {
		return nil, err
	}
	return NewWithTransport(conf, t)
}

// NewWithTransport is New with an opened transport.
func NewWithTransport(conf *Config, t bus.Transport) (*Daemon, error) {
	dev := bus.NewDevice(conf.BoardID, t)
	b, err := board.New(dev)
	if err != nil {
		dev.Close()
		return nil, err
	}
	d := &Daemon{Config: conf, Device: dev, Board: b}
	if conf.MQTTBrokerURL != "" {
		opts, topicPrefix, err := mqtt.ClientOptionsFromURL(conf.MQTTBrokerURL)
		if err != nil {
			dev.Close()
			return nil, fmt.Errorf("mqtt url: %w", err)
		}
		opts.SetBinaryWill(topicPrefix+d.topic(TopicInfo), nil, 1, true)
		if opts.ClientID == "" {
			opts.SetClientID("hub:" + conf.BoardID)
		}
		d.Queue = mqtt.NewQueue(opts, topicPrefix)
		d.Queue.OnConnect = func(*mqtt.Queue) { d.announce() }
	}
	return d, nil
}

// MustNew creates the Daemon and fails on error.
func (c *Config) MustNew() *Daemon {
	d, err := New(c)
	if err != nil {
		log.Fatalln(err)
	}
	return d
}

// AddToLoop implements framework.LoopAdder.
func (d *Daemon) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvSense,
		&SensorPoller{MCU: d.Board.Sensors},
		&GPIOPoller{Bank: d.Board.GPIO})
	l.AddController(fx.PrLvAcuate, &EverloopWriter{Ring: d.Board.Everloop})
	if d.Queue != nil {
		l.AddController(fx.PrLvPostProc, &Publisher{Publish: d.publish, Prefix: d.Config.BoardID})
		l.AddRunnable(fx.NamedRun("mqtt", fx.RunFunc(d.runMQTT)))
	}
	if d.Config.Listen != "" {
		l.AddRunnable(fx.NamedRun("http", fx.RunFunc(d.runHTTP)))
	}
}

// Close detaches the device.
func (d *Daemon) Close() error {
	return d.Device.Close()
}

func (d *Daemon) topic(name string) string {
	return d.Config.BoardID + "/" + name
}

func (d *Daemon) publish(topic string, payload []byte) error {
	token := d.Queue.Pub(topic, payload)
	token.Wait()
	return token.Error()
}

func (d *Daemon) announce() {
	info, err := json.Marshal(d.Board.Info)
	if err != nil {
		glog.Errorf("encode board info: %v", err)
		return
	}
	d.Queue.PubWith(d.topic(TopicInfo), info, 1, true)
}

// HandleEverloop queues a frame received from clients for the loop.
func (d *Daemon) HandleEverloop(ctl fx.LoopControl, payload []byte) {
	if len(payload) == 0 {
		return
	}
	ctl.PostMessage(&EverloopMsg{Frame: append([]byte(nil), payload...)})
	ctl.TriggerNext()
}

func (d *Daemon) runMQTT(ctx context.Context) error {
	if err := d.Queue.Connect(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	defer d.Queue.Close()
	ctl := fx.LoopCtlFrom(ctx)
	sub := d.Queue.Sub(d.topic(TopicEverloop), func(_ string, payload []byte) {
		d.HandleEverloop(ctl, payload)
	})
	defer sub.Close()

	rw := mqtt.ForServer(d.Queue, d.topic(TopicRegs))
	err := raw.NewServer(d.Board.Raw, rw).Run(ctx)
	d.Queue.PubWith(d.topic(TopicInfo), nil, 1, true).Wait()
	return err
}

// Status is served at /info.
type Status struct {
	*board.Info
	Alive bool      `json:"alive"`
	Stats bus.Stats `json:"stats"`
}

// Status reports the board info with the activity of the device.
func (d *Daemon) Status() *Status {
	return &Status{Info: d.Board.Info, Alive: d.Device.Alive(), Stats: d.Device.Stats()}
}

// Handler serves the websocket raw bridge at /regs and the board
// status at /info.
func (d *Daemon) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/regs", websocket.Handler(func(rw comm.PacketReadWriter) error {
		glog.Info("raw bridge: websocket client connected")
		return raw.NewServer(d.Board.Raw, rw).Run(ctx)
	}))
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(d.Status())
	})
	return mux
}

func (d *Daemon) runHTTP(ctx context.Context) error {
	srv := &http.Server{Addr: d.Config.Listen, Handler: d.Handler(ctx)}
	glog.Infof("listening on %s", d.Config.Listen)
	err := fx.RunWithCloser(ctx, srv, srv.ListenAndServe)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
