package postgres

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	got, err := migrateURL("postgres://stock:s3cr%40t@db:5432/stock?sslmode=disable")
	require.NoError(t, err)
	assert.Equal(t, "pgx5://stock:s3cr%40t@db:5432/stock?sslmode=disable", got)

	got, err = migrateURL("postgresql://db/stock")
	require.NoError(t, err)
	assert.Equal(t, "pgx5://db/stock", got)

	_, err = migrateURL("mysql://db/stock")
	assert.Error(t, err)
}

func TestMigracionesEmbebidas(t *testing.T) {
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	require.NoError(t, err)
	assert.Len(t, files, 4, "cada migración tiene up y down")

	src, err := iofs.New(migrationsFS, "migrations")
	require.NoError(t, err)
	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)
	next, err := src.Next(first)
	require.NoError(t, err)
	assert.Equal(t, uint(2), next)
}

func TestClasificacionDeErrores(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505"}
	check := &pgconn.PgError{Code: "23514"}

	assert.True(t, isUniqueViolation(unique))
	assert.False(t, isUniqueViolation(check))
	assert.True(t, isCheckViolation(check))
	assert.False(t, isCheckViolation(errors.New("23514")))
}
