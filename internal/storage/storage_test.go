package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-org-slim/internal/config"
	"github.com/tendant/simple-org-slim/pkg/repository"
)

func TestOpen_Bolt(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "org_management.db")

	store, err := Open(ctx, config.StoreConfig{Driver: config.DriverBolt, BoltPath: path}, nil)
	require.NoError(t, err)
	defer store.Close(ctx)

	assert.Equal(t, "org_management", store.Name())

	orgs := repository.NewOrganizationsRepository(store)
	_, err = orgs.Create(ctx, "Acme", "acme", "org_acme", nil)
	require.NoError(t, err)

	// The unique index on name is in place.
	_, err = orgs.Create(ctx, "Acme", "acme2", "org_acme2", nil)
	assert.Error(t, err)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "sqlite"}, nil)
	assert.Error(t, err)
}
