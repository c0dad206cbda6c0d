package mqtt

import (
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type sent struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeBroker stands in for the paho client. Publish pops one error per call
// from failures.
type fakeBroker struct {
	mu           sync.Mutex
	opts         *paho.ClientOptions
	connectErr   error
	failures     []error
	sent         []sent
	disconnected bool
}

func (f *fakeBroker) IsConnected() bool { return !f.disconnected }

func (f *fakeBroker) Connect() paho.Token {
	if f.connectErr == nil && f.opts.OnConnect != nil {
		f.opts.OnConnect(nil)
	}
	return doneToken{err: f.connectErr}
}

func (f *fakeBroker) Disconnect(uint) { f.disconnected = true }

func (f *fakeBroker) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, _ := payload.([]byte)
	f.sent = append(f.sent, sent{topic, qos, retained, b})
	if len(f.failures) == 0 {
		return doneToken{}
	}
	err := f.failures[0]
	f.failures = f.failures[1:]
	return doneToken{err: err}
}

type doneToken struct{ err error }

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                 { return t.err }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// useFake routes NewPublisher to f for the duration of the test.
func useFake(t *testing.T, f *fakeBroker) {
	t.Helper()
	prev := newMQTTClient
	newMQTTClient = func(o *paho.ClientOptions) pahoClient {
		f.opts = o
		return f
	}
	t.Cleanup(func() { newMQTTClient = prev })
}
