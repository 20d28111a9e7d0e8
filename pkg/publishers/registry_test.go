package publishers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBuildIsCaseInsensitive(t *testing.T) {
	mem := &memPublisher{id: "m"}
	reg := NewRegistry(map[string]Builder{
		"Memory": func(context.Context, PublisherConfig, Logger) (Publisher, error) { return mem, nil },
	})

	pub, err := reg.Build(context.Background(), PublisherConfig{ID: "m", Type: " MEMORY "}, nil)
	require.NoError(t, err)
	assert.Same(t, mem, pub)

	_, err = reg.Build(context.Background(), PublisherConfig{ID: "m"}, nil)
	assert.ErrorContains(t, err, "no type")

	_, err = reg.Build(context.Background(), PublisherConfig{ID: "m", Type: "kafka"}, nil)
	assert.ErrorContains(t, err, "not registered")
}

func TestBuildAllClosesBuiltPublishersOnFailure(t *testing.T) {
	first := &memPublisher{id: "first"}
	reg := NewRegistry(map[string]Builder{
		"memory": func(context.Context, PublisherConfig, Logger) (Publisher, error) { return first, nil },
		"broken": func(context.Context, PublisherConfig, Logger) (Publisher, error) {
			return nil, errors.New("no credentials")
		},
	})

	pubs, err := BuildAll(context.Background(), reg, []PublisherConfig{
		{ID: "first", Type: "memory"},
		{ID: "second", Type: "broken"},
	}, nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, `build publisher "second"`)
	assert.Nil(t, pubs)
	assert.True(t, first.closed)
}

func TestBuildAllEmpty(t *testing.T) {
	pubs, err := BuildAll(context.Background(), DefaultRegistry(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, pubs)
}
