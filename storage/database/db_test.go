package database

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formationpro/fichepresence/core"
)

func TestDSN(t *testing.T) {
	conf := core.NewTestConfig("http://api.local")
	conf.Database = core.DatabaseConfig{
		Engine:        "postgres",
		Host:          "db",
		Port:          "5432",
		Name:          "fichepresence",
		User:          "app",
		Password:      "p@ss",
		AdminUser:     "postgres",
		AdminPassword: "admin",
	}

	u, err := url.Parse(DSN(conf.Database.Name, false, conf))
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db:5432", u.Host)
	assert.Equal(t, "/fichepresence", u.Path)
	assert.Equal(t, "app", u.User.Username())
	pwd, _ := u.User.Password()
	assert.Equal(t, "p@ss", pwd)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
	assert.Equal(t, "utc", u.Query().Get("timezone"))

	conf.Database.DisableTLS = true
	u, err = url.Parse(DSN("postgres", true, conf))
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.User.Username())
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
}

type pinger struct {
	core.DB
	failures int
	calls    int
}

func (p *pinger) PingContext(context.Context) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("connection refused")
	}
	return nil
}

func TestPing(t *testing.T) {
	var slept []time.Duration
	sleepFunc = func(d time.Duration) { slept = append(slept, d) }
	defer func() { sleepFunc = time.Sleep }()

	db := &pinger{failures: 2}
	require.NoError(t, ping(context.Background(), db))
	assert.Equal(t, 3, db.calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, slept)

	db = &pinger{failures: pingAttempts}
	assert.Error(t, ping(context.Background(), db))
	assert.Equal(t, pingAttempts, db.calls)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir(migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "00001_create_attendance_drafts.sql", entries[0].Name())
}
