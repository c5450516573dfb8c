package etl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testParams = Params{
	LogData:     "s3://udacity-dend/log_data",
	LogJSONPath: "s3://udacity-dend/log_json_path.json",
	SongData:    "s3://udacity-dend/song_data",
	RoleARN:     "arn:aws:iam::123456789012:role/dwhRole",
}

func TestCopyStatementsContainConfiguredValues(t *testing.T) {
	catalog := NewCatalog(testParams)
	require.Len(t, catalog.CopyTables, 2)

	eventsCopy := catalog.CopyTables[0]
	assert.Contains(t, eventsCopy, "copy staging_events")
	assert.Contains(t, eventsCopy, testParams.LogData)
	assert.Contains(t, eventsCopy, testParams.RoleARN)
	assert.Contains(t, eventsCopy, testParams.LogJSONPath)

	songsCopy := catalog.CopyTables[1]
	assert.Contains(t, songsCopy, "copy staging_songs")
	assert.Contains(t, songsCopy, testParams.SongData)
	assert.Contains(t, songsCopy, testParams.RoleARN)
	assert.Contains(t, songsCopy, "json 'auto'")
}

func TestOnlyCopyStatementsDependOnConfig(t *testing.T) {
	catalog := NewCatalog(testParams)

	var others []string
	others = append(others, catalog.DropTables...)
	others = append(others, catalog.CreateTables...)
	others = append(others, catalog.InsertTables...)

	for _, stmt := range others {
		assert.NotContains(t, stmt, testParams.LogData)
		assert.NotContains(t, stmt, testParams.SongData)
		assert.NotContains(t, stmt, testParams.RoleARN)
	}

	// Identical config must produce identical text, and different S3 paths
	// must only change the COPY list.
	other := NewCatalog(Params{
		LogData:     "s3://other-bucket/logs",
		LogJSONPath: "s3://other-bucket/paths.json",
		SongData:    "s3://other-bucket/songs",
		RoleARN:     "arn:aws:iam::000000000000:role/other",
	})
	assert.Equal(t, catalog.DropTables, other.DropTables)
	assert.Equal(t, catalog.CreateTables, other.CreateTables)
	assert.Equal(t, catalog.InsertTables, other.InsertTables)
	assert.NotEqual(t, catalog.CopyTables, other.CopyTables)
}

func TestStatementListOrder(t *testing.T) {
	catalog := NewCatalog(testParams)

	assert.Len(t, catalog.DropTables, 7)
	assert.Len(t, catalog.CreateTables, 7)
	assert.Len(t, catalog.InsertTables, 5)

	// Every dropped table is re-created.
	assert.Equal(t, "DROP TABLE IF EXISTS staging_events", catalog.DropTables[0])
	for _, stmt := range catalog.CreateTables {
		assert.Contains(t, stmt, "CREATE TABLE IF NOT EXISTS")
	}

	// The fact table is populated last, after its dimensions.
	last := catalog.InsertTables[len(catalog.InsertTables)-1]
	assert.Contains(t, last, "INSERT INTO songplays")

	// Tables referenced by foreign keys are created before songplays.
	var createOrder []int
	for i, stmt := range catalog.CreateTables {
		if strings.Contains(stmt, "songplays") {
			createOrder = append(createOrder, i)
		}
	}
	require.Len(t, createOrder, 1)
	assert.Equal(t, len(catalog.CreateTables)-1, createOrder[0])
}
