package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bus_ticketing/internal/fares"
	"bus_ticketing/internal/models"
	"bus_ticketing/internal/testdb"
)

const kampalaJinjaYAML = `
stops:
  - name: Kampala
    order: 1
    distance: 0
    price: 0
  - name: Mukono
    order: 2
    distance: 25
    price: 4999.6
    eta: 40m
  - name: Lugazi
    order: 3
    distance: 45
    price: 8000
  - name: Njeru
    order: 4
    distance: 75
    price: 12000
  - name: Jinja
    order: 5
    distance: 87
    price: 15000
`

func run(t *testing.T, db *gorm.DB, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(func() (*gorm.DB, error) { return db, nil })
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func seed(t *testing.T, db *gorm.DB, origin, destination string, distance float64, price int64) models.Route {
	t.Helper()
	r := models.Route{Origin: origin, Destination: destination, Distance: distance, Price: price, Active: true}
	require.NoError(t, db.Create(&r).Error)
	return r
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stops.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseStopFile(t *testing.T) {
	rows, err := parseStopFile(strings.NewReader(kampalaJinjaYAML))
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "Mukono", rows[1].StopName)
	assert.Equal(t, int64(5000), rows[1].PriceFromOrigin, "prices round to whole units")
	assert.Equal(t, "40m", rows[1].EstimatedTime)

	_, err = parseStopFile(strings.NewReader(""))
	assert.Error(t, err)

	_, err = parseStopFile(strings.NewReader("stops:\n  - name: A\n    fare: 10\n"))
	assert.Error(t, err, "unknown fields are rejected")

	_, err = parseStopFile(strings.NewReader("stops:\n  - name: A\n    price: 1e19\n"))
	assert.ErrorIs(t, err, fares.ErrPriceOutOfRange)
}

func TestImportAndQuote(t *testing.T) {
	db := testdb.Open(t)
	route := seed(t, db, "Kampala", "Jinja", 87, 15000)

	out, err := run(t, db, "import", "--route", itoa(route.ID), "--file", writeFile(t, kampalaJinjaYAML))
	require.NoError(t, err)
	assert.Contains(t, out, "5 stops imported")

	out, err = run(t, db, "quote", "--route", itoa(route.ID), "--from", "Mukono", "--to", "Njeru")
	require.NoError(t, err)
	assert.Contains(t, out, "Mukono -> Njeru: 50 km, 7000")

	_, err = run(t, db, "quote", "--route", itoa(route.ID), "--from", "Njeru", "--to", "Mukono")
	assert.Error(t, err)
}

func TestImportRejectsBadLedger(t *testing.T) {
	db := testdb.Open(t)
	route := seed(t, db, "Kampala", "Jinja", 90, 15000)

	_, err := run(t, db, "import", "--route", itoa(route.ID), "--file", writeFile(t, kampalaJinjaYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "totals_mismatch")

	var n int64
	require.NoError(t, db.Model(&models.RouteStop{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestBackfillThenCheck(t *testing.T) {
	db := testdb.Open(t)
	seed(t, db, "Kampala", "Masaka", 130, 20000)

	out, err := run(t, db, "check")
	require.Error(t, err)
	assert.Contains(t, out, "origin/destination fallback")

	out, err = run(t, db, "backfill")
	require.NoError(t, err)
	assert.Contains(t, out, "1 routes repaired")

	out, err = run(t, db, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "consistent")
}

func TestCheckReportsOrphanOperators(t *testing.T) {
	db := testdb.Open(t)
	require.NoError(t, db.Create(&models.Operator{Name: "Link Bus", Email: "ops@link.example"}).Error)

	out, err := run(t, db, "check")
	require.Error(t, err)
	assert.Contains(t, out, "operator 1 (Link Bus): no user account linked")
}

func TestAdminCreate(t *testing.T) {
	db := testdb.Open(t)

	out, err := run(t, db, "admin", "create", "--email", "Root@Example.com", "--password", "s3cretpass", "--name", "Root")
	require.NoError(t, err)
	assert.Contains(t, out, "admin account")

	var u models.User
	require.NoError(t, db.Where("email = ?", "root@example.com").First(&u).Error)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.NotEqual(t, "s3cretpass", u.Password)

	_, err = run(t, db, "admin", "create", "--email", "root@example.com", "--password", "s3cretpass", "--name", "Again")
	assert.ErrorContains(t, err, "already registered")

	_, err = run(t, db, "admin", "create", "--email", "x@example.com", "--password", "s3cretpass", "--name", "X", "--role", "passenger")
	assert.Error(t, err)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
