package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/hub.go/pkg/board"
	"github.com/robotalks/hub.go/pkg/comm/websocket"
	fx "github.com/robotalks/hub.go/pkg/framework"
	"github.com/robotalks/hub.go/pkg/gpio"
	"github.com/robotalks/hub.go/pkg/raw"
	"github.com/robotalks/hub.go/pkg/regmap"
	"github.com/robotalks/hub.go/pkg/transport/sim"
)

func newDaemon(t *testing.T) (*Daemon, *sim.Hub) {
	conf := NewConfig()
	conf.Transport = TransportSim
	conf.BoardID = "test"
	conf.MQTTBrokerURL = ""
	hub := NewSimHub()
	d, err := NewWithTransport(conf, hub)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d, hub
}

type published map[string][]byte

func (p published) publish(topic string, payload []byte) error {
	p[topic] = payload
	return nil
}

func TestBoardFromSimHub(t *testing.T) {
	d, _ := newDaemon(t)
	assert.Equal(t, &board.Info{
		Name:      SimBoardName,
		Version:   SimBoardVersion,
		FPGAClock: SimFPGAClock,
		LEDCount:  35,
	}, d.Board.Info)
	assert.Nil(t, d.Queue)
}

func TestLoopPublishesReadings(t *testing.T) {
	d, _ := newDaemon(t)
	pub := published{}
	l := fx.NewLoop(time.Hour)
	d.AddToLoop(l)
	l.AddController(fx.PrLvPostProc, &Publisher{Publish: pub.publish, Prefix: "test"})

	l.RunIteration(context.Background(), time.Unix(100, 0))
	require.Contains(t, pub, "test/env")
	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(pub["test/env"], &env))
	assert.Equal(t, 45.0, env["humidity"])
	assert.Equal(t, 22.5, env["temperature"])
	assert.Contains(t, pub, "test/imu")
	assert.JSONEq(t, `{"values":0,"modes":0}`, string(pub["test/gpio"]))

	// gpio is only reported on change.
	delete(pub, "test/gpio")
	l.RunIteration(context.Background(), time.Now())
	assert.NotContains(t, pub, "test/gpio")
	require.NoError(t, d.Board.GPIO.SetMode(2, gpio.Output))
	l.RunIteration(context.Background(), time.Now())
	assert.JSONEq(t, `{"values":0,"modes":4}`, string(pub["test/gpio"]))
}

func TestEverloopFramesApplied(t *testing.T) {
	d, hub := newDaemon(t)
	l := fx.NewLoop(time.Hour)
	d.AddToLoop(l)

	d.HandleEverloop(l, []byte{1, 1, 1, 1})
	d.HandleEverloop(l, []byte{2, 3, 4, 5, 6, 7, 8, 9})
	d.HandleEverloop(l, nil)
	l.RunIteration(context.Background(), time.Now())
	assert.Equal(t, []byte{2, 3, 4, 5, 6, 7, 8, 9}, hub.Peek(regmap.EverloopBase, 8))

	// invalid frames are reported by the controller, not applied.
	d.HandleEverloop(l, []byte{0xff, 0xff, 0xff})
	l.RunIteration(context.Background(), time.Now())
	assert.Equal(t, []byte{2, 3, 4}, hub.Peek(regmap.EverloopBase, 3))
}

func TestWebsocketRawBridge(t *testing.T) {
	d, hub := newDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := httptest.NewServer(d.Handler(ctx))
	defer srv.Close()

	rw, err := websocket.Dial("ws" + strings.TrimPrefix(srv.URL, "http") + "/regs")
	require.NoError(t, err)
	client := raw.NewClient(rw)
	go client.Run(ctx)
	defer client.Close()

	info, err := client.Read(regmap.ConfBase, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xe8, 0x44, 0xc3, 0x05}, info)

	// the raw path reaches any segment.
	require.NoError(t, client.Write(regmap.GPIOBase, []byte{0xff, 0xff}))
	assert.Equal(t, []byte{0xff, 0xff}, hub.Peek(regmap.GPIOBase, 2))
}

func getStatus(t *testing.T, url string) *Status {
	resp, err := http.Get(url + "/info")
	require.NoError(t, err)
	defer resp.Body.Close()
	var status Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	return &status
}

func TestInfoEndpoint(t *testing.T) {
	d, _ := newDaemon(t)
	srv := httptest.NewServer(d.Handler(context.Background()))
	defer srv.Close()

	status := getStatus(t, srv.URL)
	require.NotNil(t, status.Info)
	assert.Equal(t, 35, status.LEDCount)
	assert.Equal(t, SimFPGAClock, status.FPGAClock)
	assert.True(t, status.Alive)
	assert.NotZero(t, status.Stats.Requests)
	assert.Zero(t, status.Stats.Failures)

	require.NoError(t, d.Close())
	assert.False(t, getStatus(t, srv.URL).Alive)
}
