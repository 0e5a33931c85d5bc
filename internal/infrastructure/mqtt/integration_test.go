//go:build integration

package mqtt

import (
	"sync/atomic"
	"testing"
	"time"
)

// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func connectTest(t *testing.T) *Client {
	t.Helper()
	cfg := testConfig()
	cfg.Broker.ClientID = "aylad-integration-" + t.Name()
	c, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { c.Close() }) //nolint:errcheck // test cleanup
	return c
}

func TestIntegration_PublishSubscribeRoundtrip(t *testing.T) {
	c := connectTest(t)
	topics := c.Topics()

	received := make(chan string, 1)
	err := c.Subscribe(topics.AllPropertySets(), 1, func(topic string, payload []byte) error {
		dsn, prop, ok := topics.ParsePropertySet(topic)
		if ok {
			received <- dsn + "/" + prop + "=" + string(payload)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !c.HasSubscription(topics.AllPropertySets()) {
		t.Error("subscription should be tracked")
	}

	if err := c.Publish(topics.PropertySet("AC000W1", "Blue_LED"), []byte("1"), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		if got != "AC000W1/Blue_LED=1" {
			t.Errorf("received %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestIntegration_OnConnectFiresOnReconnect(t *testing.T) {
	c := connectTest(t)

	var calls atomic.Int32
	c.SetOnConnect(func() { calls.Add(1) })

	c.client.Disconnect(0)
	c.handleConnect()

	if calls.Load() != 1 {
		t.Errorf("onConnect calls = %d, want 1", calls.Load())
	}
}
