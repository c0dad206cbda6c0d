package mqtt

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremon "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/monitoring"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/infra/relay"
)

// writeKeyPair writes a self-signed ECDSA certificate, its key and the
// same certificate as CA bundle.
func writeKeyPair(t *testing.T) (cert, key, ca string) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(42),
		Subject:      pkix.Name{CommonName: "dispatch-relay"},
		NotBefore:    time.Now().Add(-time.Minute),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(priv)
	require.NoError(t, err)

	dir := t.TempDir()
	cert, key, ca = filepath.Join(dir, "relay.crt"), filepath.Join(dir, "relay.key"), filepath.Join(dir, "ca.crt")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	require.NoError(t, os.WriteFile(cert, certPEM, 0o600))
	require.NoError(t, os.WriteFile(key, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	require.NoError(t, os.WriteFile(ca, certPEM, 0o600))
	return cert, key, ca
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := writeKeyPair(t)

	full, err := Config{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}.LoadTLSConfig()
	require.NoError(t, err)
	assert.Len(t, full.Certificates, 1)
	assert.NotNil(t, full.RootCAs)

	systemRoots, err := Config{UseTLS: true}.LoadTLSConfig()
	require.NoError(t, err)
	assert.Nil(t, systemRoots.RootCAs)
	assert.Empty(t, systemRoots.Certificates)

	empty := filepath.Join(t.TempDir(), "empty.pem")
	require.NoError(t, os.WriteFile(empty, []byte("nothing here"), 0o600))
	_, err = Config{UseTLS: true, CABundle: empty}.LoadTLSConfig()
	assert.ErrorContains(t, err, "no certificates")

	_, err = Config{UseTLS: true, ClientCert: cert, ClientKey: ca}.LoadTLSConfig()
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cert, key, _ := writeKeyPair(t)
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"minimal", Config{Broker: "tcp://b:1883"}, true},
		{"no broker", Config{}, false},
		{"qos", Config{Broker: "tcp://b:1883", QoS: 3}, false},
		{"lwt qos", Config{Broker: "tcp://b:1883", LWTQoS: 5}, false},
		{"event qos", Config{Broker: "tcp://b:1883", EventQoS: map[string]byte{"sla_escalated": 4}}, false},
		{"unknown auth", Config{Broker: "tcp://b:1883", AuthMethod: "kerberos"}, false},
		{"cert without tls", Config{Broker: "ssl://b:8883", AuthMethod: AuthCertificate, ClientCert: cert, ClientKey: key}, false},
		{"cert without files", Config{Broker: "ssl://b:8883", AuthMethod: AuthCertificate, UseTLS: true}, false},
		{"cert", Config{Broker: "ssl://b:8883", AuthMethod: AuthCertificate, UseTLS: true, ClientCert: cert, ClientKey: key}, true},
		{"half pair", Config{Broker: "ssl://b:8883", UseTLS: true, ClientCert: cert}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSetDefaults(t *testing.T) {
	c := Config{TopicPrefix: "/dc1/events/"}
	c.SetDefaults()
	assert.Equal(t, "dc1/events", c.TopicPrefix)
	assert.Equal(t, AuthPassword, c.AuthMethod)
	assert.Equal(t, 3, c.MaxRetries)

	var d Config
	d.SetDefaults()
	assert.Equal(t, DefaultTopicPrefix, d.TopicPrefix)
}

func TestNewClientOptions(t *testing.T) {
	opts, err := NewClientOptions(Config{Broker: "tcp://b:1883", ClientID: "relay", Username: "u", Password: "p", AuthMethod: AuthPassword})
	require.NoError(t, err)
	assert.Equal(t, "u", opts.Username)
	assert.Equal(t, "p", opts.Password)
	assert.True(t, opts.AutoReconnect)

	cert, key, ca := writeKeyPair(t)
	opts, err = NewClientOptions(Config{
		Broker: "ssl://b:8883", Username: "u", AuthMethod: AuthCertificate,
		UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca,
		LWTTopic: "warehouse/status", LWTPayload: "offline", LWTQoS: 1, LWTRetain: true,
	})
	require.NoError(t, err)
	assert.Empty(t, opts.Username, "certificate auth sends no credentials")
	require.NotNil(t, opts.TLSConfig)
	assert.Len(t, opts.TLSConfig.Certificates, 1)
	assert.True(t, opts.WillEnabled)
	assert.Equal(t, "warehouse/status", opts.WillTopic)
	assert.Equal(t, "offline", string(opts.WillPayload))
	assert.True(t, opts.WillRetained)
}

func TestPublish_TopicQoSAndPayload(t *testing.T) {
	fb := &fakeBroker{}
	useFake(t, fb)
	pub, err := NewPublisher(Config{
		Broker: "tcp://b:1883", TopicPrefix: "dc1/events/", QoS: 1, Retain: true,
		EventQoS: map[string]byte{"sla_escalated": 2},
	}, nil)
	require.NoError(t, err)

	at := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Publish(context.Background(), relay.Envelope{ID: "e1", Name: "shipment_created", OccurredAt: at, Payload: []byte(`{"tracking_id":"T1"}`)}))
	require.NoError(t, pub.Publish(context.Background(), relay.Envelope{ID: "e2", Name: "sla_escalated", OccurredAt: at}))

	require.Len(t, fb.sent, 2)
	assert.Equal(t, "dc1/events/shipment_created", fb.sent[0].topic)
	assert.Equal(t, byte(1), fb.sent[0].qos)
	assert.True(t, fb.sent[0].retained)
	assert.Equal(t, byte(2), fb.sent[1].qos)

	var env relay.Envelope
	require.NoError(t, json.Unmarshal(fb.sent[0].payload, &env))
	assert.Equal(t, "e1", env.ID)
	assert.JSONEq(t, `{"tracking_id":"T1"}`, string(env.Payload))

	require.NoError(t, pub.Close())
	assert.True(t, fb.disconnected)
}

func TestNewPublisher_ConnectError(t *testing.T) {
	useFake(t, &fakeBroker{connectErr: errors.New("refused")})
	_, err := NewPublisher(Config{Broker: "tcp://b:1883"}, nil)
	assert.ErrorContains(t, err, "refused")
}

type recordMonitor struct {
	err  error
	tags map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.err, r.tags = err, tags
}
func (r *recordMonitor) RecoverPanic(any)    {}
func (r *recordMonitor) Flush(time.Duration) {}

func TestPublish_Retries(t *testing.T) {
	netErr := errors.New("broker gone")
	tests := []struct {
		name     string
		failures []error
		attempts int
		wantErr  bool
	}{
		{"first try", nil, 1, false},
		{"recovers", []error{netErr}, 2, false},
		{"exhausted", []error{netErr, netErr, netErr}, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mon := &recordMonitor{}
			coremon.Init(mon)
			t.Cleanup(func() { coremon.Init(nil) })

			fb := &fakeBroker{failures: tt.failures}
			useFake(t, fb)
			pub, err := NewPublisher(Config{Broker: "tcp://b:1883", MaxRetries: 2, BackoffMS: 1}, nil)
			require.NoError(t, err)
			var waits []time.Duration
			pub.sleeps = func(_ context.Context, d time.Duration) error {
				waits = append(waits, d)
				return nil
			}

			err = pub.Publish(context.Background(), relay.Envelope{Name: "delivery_exception"})
			assert.Len(t, fb.sent, tt.attempts)
			assert.Len(t, waits, tt.attempts-1)
			if !tt.wantErr {
				assert.NoError(t, err)
				assert.Nil(t, mon.err)
				return
			}
			assert.ErrorIs(t, err, netErr)
			assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, waits)
			assert.ErrorIs(t, mon.err, netErr)
			assert.Equal(t, "delivery_exception", mon.tags["event"])
			assert.Equal(t, "mqtt", mon.tags["module"])
		})
	}
}

func TestPublish_StopsOnCancel(t *testing.T) {
	netErr := errors.New("broker gone")
	fb := &fakeBroker{failures: []error{netErr, netErr, netErr}}
	useFake(t, fb)
	pub, err := NewPublisher(Config{Broker: "tcp://b:1883", MaxRetries: 5, BackoffMS: 1000}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = pub.Publish(ctx, relay.Envelope{Name: "conflict_detected"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, fb.sent, 1, "canceled publish must not retry")
}
