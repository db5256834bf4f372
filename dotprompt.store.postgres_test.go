package dotprompt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPgStore_EmptyConnectionString(t *testing.T) {
	_, err := NewPgStore(PgConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgStoreUnavailable)
}

func TestNewPgStore_InvalidConnectionString(t *testing.T) {
	_, err := NewPgStore(PgConfig{
		ConnectionString: "invalid://not-a-valid-connection-string",
		QueryTimeout:     2 * time.Second,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgStoreUnavailable)
}

func TestPgConstants(t *testing.T) {
	assert.Equal(t, 25, PgDefaultMaxOpenConns)
	assert.Equal(t, 5, PgDefaultMaxIdleConns)
	assert.Equal(t, 5*time.Minute, PgDefaultConnMaxLifetime)
	assert.Equal(t, 30*time.Second, PgDefaultQueryTimeout)
	assert.Equal(t, "dotprompt_prompts", PgDefaultTableName)
}

func TestContentVersion(t *testing.T) {
	a := contentVersion("hello")
	b := contentVersion("hello")
	c := contentVersion("other")

	assert.Len(t, a, 8)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
