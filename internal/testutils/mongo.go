package testutils

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultMongoPort = "27017"

// MongoContainer is a disposable MongoDB server for integration tests.
type MongoContainer struct {
	testcontainers.Container
	URI string
}

// NewMongoContainer starts a mongo:7 container and waits until it accepts
// connections.
func NewMongoContainer(ctx context.Context) (*MongoContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{defaultMongoPort + "/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	mappedPort, err := container.MappedPort(ctx, defaultMongoPort)
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	return &MongoContainer{
		Container: container,
		URI:       fmt.Sprintf("mongodb://%s:%s", host, mappedPort.Port()),
	}, nil
}

// MongoDatabase starts a container and returns a connected database that is
// torn down with the test. Skipped in -short mode.
func MongoDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := NewMongoContainer(ctx)
	if err != nil {
		t.Fatalf("Failed to create Mongo container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Errorf("Failed to terminate Mongo container: %v", err)
		}
	})

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(container.URI))
	if err != nil {
		t.Fatalf("Failed to connect to Mongo: %v", err)
	}
	t.Cleanup(func() {
		if err := client.Disconnect(context.Background()); err != nil {
			t.Errorf("Failed to disconnect Mongo client: %v", err)
		}
	})

	return client.Database("catalog_test")
}
