//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"clavis/internal/user"
	"clavis/internal/user/store"
	id "clavis/pkg/domain"
	"clavis/pkg/platform/sentinel"
	"clavis/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	_, err := s.postgres.DB.Exec(store.Schema)
	s.Require().NoError(err)
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	s.postgres.Terminate(context.Background())
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "users"))
}

func (s *PostgresStoreSuite) create(name, email string) *user.User {
	u := &user.User{Name: name, Email: email, PasswordHash: "$2a$10$placeholderhash"}
	s.Require().NoError(s.store.Create(context.Background(), u))
	return u
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	u := s.create("Jane Doe", "jane.doe@example.com")

	found, err := s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(u.Email, found.Email)
	s.Equal(u.PasswordHash, found.PasswordHash)
	s.EqualValues(0, found.TokenVersion)
	s.Nil(found.LastLogin)

	byEmail, err := s.store.FindByEmail(ctx, "JANE.DOE@example.com")
	s.Require().NoError(err)
	s.Equal(u.ID, byEmail.ID)
}

func (s *PostgresStoreSuite) TestUniqueEmailConstraint() {
	ctx := context.Background()
	s.create("First", "taken@example.com")

	dup := &user.User{Name: "Second", Email: "Taken@Example.com", PasswordHash: "x"}
	err := s.store.Create(ctx, dup)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestUpdateAndDelete() {
	ctx := context.Background()
	u := s.create("Before", "update@example.com")

	u.Name = "After"
	s.Require().NoError(s.store.Update(ctx, u))

	found, err := s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("After", found.Name)
	s.True(found.UpdatedAt.After(found.CreatedAt) || found.UpdatedAt.Equal(found.CreatedAt))

	s.Require().NoError(s.store.Delete(ctx, u.ID))
	_, err = s.store.FindByID(ctx, u.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	err = s.store.Delete(ctx, u.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestSetLastLogin() {
	ctx := context.Background()
	u := s.create("Login", "login@example.com")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.Require().NoError(s.store.SetLastLogin(ctx, u.ID, at))

	found, err := s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.Require().NotNil(found.LastLogin)
	s.True(found.LastLogin.Equal(at))
}

// TestConcurrentVersionBumps verifies the increment is atomic: no lost updates
// under concurrent revocations.
func (s *PostgresStoreSuite) TestConcurrentVersionBumps() {
	ctx := context.Background()
	u := s.create("Versioned", "versioned@example.com")

	const goroutines = 20
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.BumpTokenVersion(ctx, u.ID)
			s.NoError(err)
		}()
	}
	wg.Wait()

	found, err := s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.EqualValues(goroutines, found.TokenVersion)
}

func (s *PostgresStoreSuite) TestBumpMissingUser() {
	_, err := s.store.BumpTokenVersion(context.Background(), id.NewUserID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
