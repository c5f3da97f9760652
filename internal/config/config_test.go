package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func setBaseline(t *testing.T) {
	t.Helper()
	t.Setenv("DB_ADAPTER", "memory")
	t.Setenv("ACCESS_SECRET_KEY", "aaa")
	t.Setenv("REFRESH_SECRET_KEY", "bbb")
}

func TestNewDefaults(t *testing.T) {
	setBaseline(t)

	c, err := New()
	require.NoError(t, err)
	require.Equal(t, "8000", c.Port)
	require.Equal(t, "db", c.TokenStore)
	require.Equal(t, "*", c.AllowedOrigin)
}

func TestNewRejectsSharedSecret(t *testing.T) {
	setBaseline(t)
	t.Setenv("REFRESH_SECRET_KEY", "aaa")

	_, err := New()
	require.Error(t, err)
}

func TestNewRejectsBadTokenStore(t *testing.T) {
	setBaseline(t)
	t.Setenv("TOKEN_STORE", "memcached")

	_, err := New()
	require.ErrorContains(t, err, "TOKEN_STORE")
}

func TestNewRejectsDefaultSecretsInProduction(t *testing.T) {
	t.Setenv("DB_ADAPTER", "memory")
	t.Setenv("ACCESS_SECRET_KEY", "")
	t.Setenv("REFRESH_SECRET_KEY", "")
	t.Setenv("ENV", "production")

	_, err := New()
	require.ErrorContains(t, err, "production")
}

func TestNewRejectsBadPort(t *testing.T) {
	setBaseline(t)
	t.Setenv("PORT", "eighty")

	_, err := New()
	require.ErrorContains(t, err, "PORT")
}

func TestBuildPostgresDSN(t *testing.T) {
	c := &Config{
		PostgresHost: "db.internal",
		PostgresUser: "svc",
		PostgresDB:   "blog",
	}
	dsn, err := c.BuildPostgresDSN()
	require.NoError(t, err)
	require.Equal(t, "host=db.internal port=5432 user=svc dbname=blog sslmode=disable", dsn)

	c.PostgresPassword = "s3cret"
	dsn, err = c.BuildPostgresDSN()
	require.NoError(t, err)
	require.Contains(t, dsn, "password=s3cret")

	explicit := &Config{PostgresDSN: "postgres://u:p@h/db"}
	dsn, err = explicit.BuildPostgresDSN()
	require.NoError(t, err)
	require.Equal(t, "postgres://u:p@h/db", dsn)

	_, err = (&Config{}).BuildPostgresDSN()
	require.Error(t, err)
}
