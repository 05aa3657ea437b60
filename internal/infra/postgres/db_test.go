package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfstudio/internal/config"
)

const unreachable = "postgres://pdfstudio@127.0.0.1:1/tokens?sslmode=disable&connect_timeout=1"

func TestDB_OnePoolPerDSN(t *testing.T) {
	p := NewDB()
	defer func() { _ = p.Close() }()

	a, err := p.Get("postgres://pdfstudio@localhost/tokens_a")
	require.NoError(t, err)
	again, err := p.Get("postgres://pdfstudio@localhost/tokens_a")
	require.NoError(t, err)
	assert.Same(t, a, again)

	b, err := p.Get("postgres://pdfstudio@localhost/tokens_b")
	require.NoError(t, err)
	assert.NotSame(t, a, b)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}

func TestUnreachableDatabase(t *testing.T) {
	db, err := NewDB().Get(unreachable)
	require.NoError(t, err, "opening is lazy")
	assert.Error(t, VerifySchema(db))

	_, err = NewTokenRepository(NewDB(), unreachable).LoadTokens(context.Background())
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.PostgresConfig
		want    string
		wantErr bool
	}{
		{name: "explicit dsn", cfg: config.PostgresConfig{DSN: "postgres://a@b/c", Host: "ignored"}, want: "postgres://a@b/c"},
		{name: "url in host", cfg: config.PostgresConfig{Host: "postgresql://x@y/z"}, want: "postgresql://x@y/z"},
		{name: "default port", cfg: config.PostgresConfig{Host: "db", User: "app", Database: "tokens"}, want: "postgres://app@db:5432/tokens"},
		{name: "password and sslmode", cfg: config.PostgresConfig{Host: "db:6543", User: "app", Password: "s3cret", Database: "tokens", SSLMode: "disable"}, want: "postgres://app:s3cret@db:6543/tokens?sslmode=disable"},
		{name: "ipv6", cfg: config.PostgresConfig{Host: "::1", User: "app", Database: "tokens"}, want: "postgres://app@[::1]:5432/tokens"},
		{name: "missing host", cfg: config.PostgresConfig{User: "app", Database: "tokens"}, wantErr: true},
		{name: "missing database", cfg: config.PostgresConfig{Host: "db", User: "app"}, wantErr: true},
		{name: "missing user", cfg: config.PostgresConfig{Host: "db", Database: "tokens"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DSN(tc.cfg)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
