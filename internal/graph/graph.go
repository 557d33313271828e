// Package graph wraps the Neo4j driver behind a small gateway used by every
// repository. All queries are parameterized Cypher; values never reach the
// query text by string interpolation, which is what keeps org scoping
// injection-safe.
package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/cloud-companion/cloud-companion/internal/telemetry"
)

// Querier is the read/write surface repositories depend on. The concrete
// Service implements it against Neo4j; tests substitute recording fakes.
type Querier interface {
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
}

// Config holds the connection settings for the graph store.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Service is the Neo4j-backed Querier. One Service is shared by all
// repositories for the lifetime of the process.
type Service struct {
	driver   neo4j.DriverWithContext
	database string
}

// New connects to Neo4j with basic auth and verifies connectivity before
// returning, so a misconfigured store fails at startup rather than on the
// first request.
func New(ctx context.Context, cfg Config) (*Service, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	slog.Info("Connected to graph store", "uri", cfg.URI, "database", cfg.Database)
	return &Service{driver: driver, database: cfg.Database}, nil
}

// ExecuteRead runs a read query and collects every record as a map keyed by
// the RETURN aliases.
func (s *Service) ExecuteRead(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	return s.execute(ctx, neo4j.AccessModeRead, cypher, params)
}

// ExecuteWrite runs a write query and collects the returned records, if any.
func (s *Service) ExecuteWrite(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	return s.execute(ctx, neo4j.AccessModeWrite, cypher, params)
}

func (s *Service) execute(ctx context.Context, mode neo4j.AccessMode, cypher string, params map[string]any) ([]map[string]any, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	telemetry.GraphQueriesTotal.WithLabelValues(accessModeLabel(mode)).Inc()

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("run graph query: %w", err)
	}

	var records []map[string]any
	for result.Next(ctx) {
		records = append(records, result.Record().AsMap())
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("consume graph result: %w", err)
	}

	return records, nil
}

// Healthy reports whether the store answers a trivial query. It returns
// false on any error and never panics, so it is safe to call from the health
// endpoint on every probe.
func (s *Service) Healthy(ctx context.Context) bool {
	records, err := s.ExecuteRead(ctx, "RETURN 1 AS ok", nil)
	if err != nil {
		slog.Warn("Graph health probe failed", "error", err)
		return false
	}
	return len(records) == 1
}

// Close releases the underlying driver. Called once during shutdown.
func (s *Service) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func accessModeLabel(mode neo4j.AccessMode) string {
	if mode == neo4j.AccessModeWrite {
		return "write"
	}
	return "read"
}
