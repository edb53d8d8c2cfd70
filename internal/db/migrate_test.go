package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	names, err := MigrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_init.sql", names[0])
	assert.Contains(t, names, "0002_verification_attempts.sql")

	body, err := migrationFS.ReadFile("migrations/" + names[0])
	require.NoError(t, err)
	for _, table := range []string{"complaints", "complaint_forwardings", "status_history", "evidence_files", "public_projects"} {
		assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS "+table+" ")
	}
}
