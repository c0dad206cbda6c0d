// Package testenv starts throwaway broker and database containers for
// integration tests. Tests are skipped unless DOCKER_AVAILABLE is "true"
// or "1".
package testenv

import (
	"context"
	"os"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// RequireDocker skips t when no Docker daemon was announced.
func RequireDocker(t testing.TB) {
	t.Helper()
	switch os.Getenv("DOCKER_AVAILABLE") {
	case "true", "1":
	default:
		t.Skip("docker not available")
	}
}

// Start runs req and returns "host:port" of its lowest exposed port. The
// container is terminated when the test ends.
func Start(t testing.TB, req tc.ContainerRequest) string {
	t.Helper()
	RequireDocker(t)
	ctx := context.Background()
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("start %s: %v", req.Image, err)
	}
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("terminate %s: %v", req.Image, err)
		}
	})
	addr, err := c.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("%s endpoint: %v", req.Image, err)
	}
	return addr
}

// Mosquitto starts an anonymous MQTT broker and returns its tcp:// URL.
func Mosquitto(t testing.TB) string {
	return "tcp://" + Start(t, tc.ContainerRequest{
		Image:        "eclipse-mosquitto:1.6",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp").WithStartupTimeout(30 * time.Second),
	})
}

// RabbitMQ starts a broker with the default guest account and returns its
// amqp:// URL.
func RabbitMQ(t testing.TB) string {
	return "amqp://guest:guest@" + Start(t, tc.ContainerRequest{
		Image:        "rabbitmq:3.13-alpine",
		ExposedPorts: []string{"5672/tcp"},
		WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(90 * time.Second),
	}) + "/"
}

// Postgres starts PostgreSQL with user, password and database "dispatch"
// and returns a DSN.
func Postgres(t testing.TB) string {
	addr := Start(t, tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "dispatch",
			"POSTGRES_PASSWORD": "dispatch",
			"POSTGRES_DB":       "dispatch",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	})
	return "postgres://dispatch:dispatch@" + addr + "/dispatch?sslmode=disable"
}

// InfluxDB starts InfluxDB 2.7 initialised with org, bucket and an admin
// token, and returns its http:// URL.
func InfluxDB(t testing.TB, org, bucket, token string) string {
	return "http://" + Start(t, tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "dispatch",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "dispatch-password",
			"DOCKER_INFLUXDB_INIT_ORG":         org,
			"DOCKER_INFLUXDB_INIT_BUCKET":      bucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": token,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	})
}
