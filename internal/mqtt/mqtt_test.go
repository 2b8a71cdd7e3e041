package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/micro-nova/audioconfig-go/internal/config"
	"github.com/micro-nova/audioconfig-go/internal/events"
	"github.com/micro-nova/audioconfig-go/internal/models"
	"github.com/micro-nova/audioconfig-go/internal/params"
)

func testConfig() config.MQTTConfig {
	cfg := config.Default().MQTT
	cfg.Enabled = true
	cfg.ClientID = "audioconfig-test"
	return cfg
}

func TestTopics(t *testing.T) {
	tests := []struct {
		prefix string
		status string
		update string
	}{
		{"audioconfig", "audioconfig/status", "audioconfig/update"},
		{"studio/rack1/", "studio/rack1/status", "studio/rack1/update"},
		{"", "status", "update"},
	}
	for _, tt := range tests {
		topics := Topics{Prefix: tt.prefix}
		if got := topics.Status(); got != tt.status {
			t.Errorf("Topics{%q}.Status() = %q, want %q", tt.prefix, got, tt.status)
		}
		if got := topics.Update(); got != tt.update {
			t.Errorf("Topics{%q}.Update() = %q, want %q", tt.prefix, got, tt.update)
		}
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Username = "user"
	cfg.Password = "pass"

	opts := buildClientOptions(cfg, Topics{Prefix: "ac"})

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://localhost:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != "audioconfig-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "user" || opts.Password != "pass" {
		t.Errorf("credentials = %q/%q", opts.Username, opts.Password)
	}
	if !opts.AutoReconnect || !opts.CleanSession {
		t.Error("expected auto-reconnect and clean session")
	}
	if !opts.WillEnabled || opts.WillTopic != "ac/status" || !opts.WillRetained {
		t.Errorf("will = %v %q retained=%v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
	var s status
	if err := json.Unmarshal(opts.WillPayload, &s); err != nil {
		t.Fatalf("will payload: %v", err)
	}
	if s.Status != "offline" || s.ClientID != "audioconfig-test" {
		t.Errorf("will payload = %+v", s)
	}
}

func TestBuildClientOptions_NoCredentials(t *testing.T) {
	opts := buildClientOptions(testConfig(), Topics{Prefix: "ac"})
	if opts.Username != "" || opts.Password != "" {
		t.Errorf("credentials set without config: %q/%q", opts.Username, opts.Password)
	}
}

func TestPublish_Validation(t *testing.T) {
	c := &Client{cfg: testConfig()}

	if err := c.Publish("", []byte("x"), 0, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic: err = %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("a", []byte("x"), 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("qos 3: err = %v, want ErrInvalidQoS", err)
	}
	if err := c.Publish("a", []byte("x"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected: err = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on unconnected client = %v", err)
	}
}

type message struct {
	topic   string
	payload []byte
	qos     byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []message
	err  error
}

func (f *fakePublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, message{topic, payload, qos})
	return nil
}

func (f *fakePublisher) messages() []message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]message(nil), f.msgs...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestForward(t *testing.T) {
	bus := events.NewBus()
	pub := &fakePublisher{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		Forward(ctx, bus, pub, Topics{Prefix: "ac"}, 1)
		close(done)
	}()
	waitFor(t, func() bool { return bus.SubscriberCount() == 1 })

	key := params.Key{Family: params.FamilyPatchbay, PortID: 3}
	bus.Publish(events.Update{Kind: events.KindPut, Key: key})
	bus.Publish(events.Update{Kind: events.KindSent, Key: key})
	bus.Publish(events.Update{Kind: events.KindCleared})

	waitFor(t, func() bool { return len(pub.messages()) == 2 })
	cancel()
	<-done

	if bus.SubscriberCount() != 0 {
		t.Error("Forward did not unsubscribe")
	}

	msgs := pub.messages()
	if msgs[0].topic != "ac/update" || msgs[0].qos != 1 {
		t.Errorf("message 0 = %+v", msgs[0])
	}
	var u models.Update
	if err := json.Unmarshal(msgs[0].payload, &u); err != nil {
		t.Fatal(err)
	}
	if u != (models.Update{Kind: "put", Family: "PatchbayParm", Port: 3}) {
		t.Errorf("update 0 = %+v", u)
	}
	if err := json.Unmarshal(msgs[1].payload, &u); err != nil {
		t.Fatal(err)
	}
	if u.Kind != "cleared" || u.Family != "" {
		t.Errorf("update 1 = %+v", u)
	}
}

func TestForward_PublishErrorsDoNotStop(t *testing.T) {
	bus := events.NewBus()
	pub := &fakePublisher{err: ErrNotConnected}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Forward(ctx, bus, pub, Topics{Prefix: "ac"}, 0)
	waitFor(t, func() bool { return bus.SubscriberCount() == 1 })

	bus.Publish(events.Update{Kind: events.KindPut, Key: params.Key{Family: params.FamilyMixer}})

	pub.mu.Lock()
	pub.err = nil
	pub.mu.Unlock()
	// The first update may or may not have been consumed yet.
	waitFor(t, func() bool {
		bus.Publish(events.Update{Kind: events.KindCleared})
		return len(pub.messages()) > 0
	})
}

// TestConnect_Broker needs a live broker, e.g.
// AUDIOCONFIG_TEST_MQTT_BROKER=tcp://127.0.0.1:1883.
func TestConnect_Broker(t *testing.T) {
	broker := os.Getenv("AUDIOCONFIG_TEST_MQTT_BROKER")
	if broker == "" {
		t.Skip("AUDIOCONFIG_TEST_MQTT_BROKER not set")
	}
	cfg := testConfig()
	cfg.Broker = broker

	c, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	if !c.IsConnected() {
		t.Error("IsConnected() = false after Connect")
	}
	if err := c.Publish(c.Topics().Update(), []byte(`{"kind":"put"}`), c.QoS(), false); err != nil {
		t.Errorf("Publish() error = %v", err)
	}
}
