package file

import (
	"os"
	"path/filepath"
	"testing"

	"RentalDashboard/src/dataset"
	"RentalDashboard/src/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReloaderKeepsPreviousOnFailure(t *testing.T) {
	dir := t.TempDir()
	logger, err := storage.NewLogger(storage.LogOptions{Filename: filepath.Join(dir, "test.log")})
	require.NoError(t, err)
	defer logger.Close()

	hourPath := writeFile(t, dir, "hour.csv", hourCSV)
	dayPath := writeFile(t, dir, "day.csv", dayCSV)
	store := dataset.NewStore()
	r := NewReloader(NewLoader(testDataConfig(), ""), store, logger, hourPath, dayPath)

	require.NoError(t, r.Reload("startup"))
	snap := store.Get()
	assert.Equal(t, 2, snap.Daily.Len())
	assert.Equal(t, "startup", snap.Source)

	require.NoError(t, os.Remove(dayPath))
	assert.ErrorIs(t, r.Reload("watch"), ErrMissingInputFile)
	assert.Equal(t, "startup", store.Get().Source)
	assert.Equal(t, 3, store.Get().Hourly.Len())
}

func TestReloaderValidators(t *testing.T) {
	dir := t.TempDir()
	r := NewReloader(NewLoader(testDataConfig(), ""), dataset.NewStore(), nil, "", "")
	hourly, daily := r.Validators()

	assert.NoError(t, hourly(writeFile(t, dir, "hour.csv", hourCSV)))
	assert.NoError(t, daily(writeFile(t, dir, "day.csv", dayCSV)))
	assert.Error(t, daily(writeFile(t, dir, "broken.csv", "instant,dteday\n1,2011-01-01\n")))
}
