package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/econodata/noticias-harvester/internal/domain"
)

func TestKnownQueryColumn(t *testing.T) {
	assert.Contains(t, knownQuery(domain.DedupByURL), "SELECT DISTINCT url FROM articles")
	assert.Contains(t, knownQuery(domain.DedupByTitle), "title = ANY($2)")
	assert.Contains(t, knownQuery(domain.DedupKey("url; DROP TABLE articles")), "SELECT DISTINCT url ")
}

func TestListQueries(t *testing.T) {
	countSQL, listSQL, args := listQueries(Query{Page: 1, PageSize: 20})
	assert.Equal(t, "SELECT COUNT(*) FROM articles", countSQL)
	assert.Contains(t, listSQL, "LIMIT $1 OFFSET $2")
	assert.Empty(t, args)

	countSQL, listSQL, args = listQueries(Query{SourceID: "cnn", Page: 2, PageSize: 20})
	assert.Contains(t, countSQL, "WHERE source_id = $1")
	assert.Contains(t, listSQL, "LIMIT $2 OFFSET $3")
	require.Len(t, args, 1)
	assert.Equal(t, "cnn", args[0])
}
