package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/car-price-checker/internal/catalog"
)

func TestFormatCatalog_AllMakes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatCatalog(&buf, catalog.Default(), "", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)))

	out := buf.String()
	assert.Contains(t, out, "MAKE")
	assert.Contains(t, out, "Honda")
	assert.Contains(t, out, "Civic")
	assert.Contains(t, out, "-2026")
}

func TestFormatCatalog_OneMake(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatCatalog(&buf, catalog.Default(), "honda", time.Now()))

	out := buf.String()
	assert.Contains(t, out, "Accord\n")
	assert.NotContains(t, out, "Camry")
}

func TestFormatCatalog_UnknownMake(t *testing.T) {
	err := formatCatalog(&bytes.Buffer{}, catalog.Default(), "Yugo", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Yugo")
}

func TestCatalogCommand(t *testing.T) {
	chdirTemp(t)
	out, err := execute(t, "catalog", "--make", "Toyota")
	require.NoError(t, err)
	assert.Contains(t, out, "Camry")
}
