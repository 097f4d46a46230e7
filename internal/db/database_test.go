package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN_EscapesCredentials(t *testing.T) {
	dsn, err := Config{
		Host:     "db.internal",
		Port:     "5433",
		User:     "kuttalk",
		Password: "p@ss/wo rd?x=1",
		DBName:   "kuttalk_db",
		SSLMode:  "require",
	}.dsn()
	require.NoError(t, err)

	assert.Contains(t, dsn, "postgres://kuttalk:")
	assert.Contains(t, dsn, "@db.internal:5433/kuttalk_db")
	assert.Contains(t, dsn, "sslmode=require")
	// The raw password must not survive unescaped into the URL.
	assert.NotContains(t, dsn, "p@ss/wo rd?x=1")
}

func TestDSN_Defaults(t *testing.T) {
	dsn, err := Config{User: "u", Password: "p", DBName: "d"}.dsn()
	require.NoError(t, err)

	assert.Contains(t, dsn, "@127.0.0.1:5432/d")
	assert.Contains(t, dsn, "sslmode=disable")
}

func TestDSN_RequiresUserAndName(t *testing.T) {
	_, err := Config{Password: "p", DBName: "d"}.dsn()
	assert.Error(t, err)

	_, err = Config{User: "u", Password: "p"}.dsn()
	assert.Error(t, err)
}

func TestDSN_RejectsBadPort(t *testing.T) {
	for _, port := range []string{"abc", "0", "70000", "5432; DROP TABLE"} {
		_, err := Config{User: "u", Password: "p", DBName: "d", Port: port}.dsn()
		assert.Error(t, err, "port %q", port)
	}
}
