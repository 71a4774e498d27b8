//go:build integration

package allocator_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"doctrack/internal/tracking/allocator"
	"doctrack/internal/tracking/models"
	counterstore "doctrack/internal/tracking/store/counter"
	recordstore "doctrack/internal/tracking/store/record"
	"doctrack/pkg/platform/keylock"
	"doctrack/pkg/testutil/containers"
)

type PostgresAllocatorSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	ctx      context.Context
}

func TestPostgresAllocatorSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAllocatorSuite))
}

func (s *PostgresAllocatorSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.ctx = context.Background()
}

func (s *PostgresAllocatorSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "records", "counters"))
}

// newAllocator builds an allocator with its own keyed lock, as a separate
// server process would have.
func (s *PostgresAllocatorSuite) newAllocator() *allocator.Allocator {
	return allocator.New(
		counterstore.NewPostgres(s.postgres.DB),
		recordstore.NewPostgres(s.postgres.DB),
		keylock.New(),
		slog.Default(),
		nil,
	)
}

// TestConcurrentAllocationAcrossReplicas drives two allocator instances that
// share nothing but the database. Uniqueness must come from the counter row
// lock alone; the in-process keyed locks cannot see each other.
func (s *PostgresAllocatorSuite) TestConcurrentAllocationAcrossReplicas() {
	const perReplica = 25

	replicas := []*allocator.Allocator{s.newAllocator(), s.newAllocator()}

	results := make(chan int, perReplica*len(replicas))
	var wg sync.WaitGroup
	for _, replica := range replicas {
		for i := 0; i < perReplica; i++ {
			wg.Add(1)
			go func(a *allocator.Allocator) {
				defer wg.Done()
				seq, err := a.Allocate(s.ctx, models.ScopeSection, "INVES", "2026-02-18")
				s.NoError(err)
				results <- seq
			}(replica)
		}
	}
	wg.Wait()
	close(results)

	seen := make(map[int]bool)
	for seq := range results {
		s.False(seen[seq], "sequence %d issued twice across replicas", seq)
		seen[seq] = true
	}
	s.Len(seen, perReplica*len(replicas))
	for want := 1; want <= perReplica*len(replicas); want++ {
		s.True(seen[want], "sequence %d missing", want)
	}
}

func (s *PostgresAllocatorSuite) TestAllocateAndResetShareRowLocks() {
	a := s.newAllocator()

	for want := 1; want <= 3; want++ {
		seq, err := a.Allocate(s.ctx, models.ScopeSection, "INVES", "2026-02-18")
		s.Require().NoError(err)
		s.Equal(want, seq)
	}

	store := counterstore.NewPostgres(s.postgres.DB)
	ctr, err := store.Get(s.ctx, models.ScopeSection, "INVES")
	s.Require().NoError(err)
	s.Equal(3, ctr.CurrentNumber)
	s.Equal("2026-02-18", ctr.LastDateUsed)
}
