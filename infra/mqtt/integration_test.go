package mqtt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/events"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/infra/relay"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/internal/testenv"
)

func TestIntegration_ConflictEventReachesSubscriber(t *testing.T) {
	broker := testenv.Mosquitto(t)

	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("it-sub").
		SetConnectRetry(true).SetConnectRetryInterval(200 * time.Millisecond))
	tok := sub.Connect()
	require.True(t, tok.WaitTimeout(10*time.Second), "subscriber connect timed out")
	require.NoError(t, tok.Error())
	t.Cleanup(func() { sub.Disconnect(250) })

	got := make(chan paho.Message, 1)
	tok = sub.Subscribe("it/events/#", 1, func(_ paho.Client, m paho.Message) { got <- m })
	tok.Wait()
	require.NoError(t, tok.Error())

	pub, err := NewPublisher(Config{Broker: broker, ClientID: "it-pub", TopicPrefix: "it/events", QoS: 1}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	env, err := relay.NewEnvelope(events.ConflictDetected{SKU: "SKU-7", At: time.Now()})
	require.NoError(t, err)
	require.NoError(t, pub.Publish(context.Background(), env))

	select {
	case m := <-got:
		assert.Equal(t, "it/events/conflict_detected", m.Topic())
		var out relay.Envelope
		require.NoError(t, json.Unmarshal(m.Payload(), &out))
		assert.Equal(t, env.ID, out.ID)
		assert.Contains(t, string(out.Payload), "SKU-7")
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}
