package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"brightermonday-scraper/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleListings() []models.Listing {
	return []models.Listing{
		{
			Title:            "Data Analyst",
			DetailURL:        "https://www.brightermonday.co.ke/listings/data-analyst?ref=a&src=b",
			BriefDescription: "Build <dashboards>",
			Location:         "Nairobi",
			Salary:           "KSh80,000 - 120,000",
			EmploymentType:   "Full Time",
			PostedBy:         "Acme Ltd",
			Category:         "IT & Telecoms",
		},
		{
			Title:            "Driver",
			DetailURL:        "/listings/driver",
			BriefDescription: "",
			Location:         "Mombasa",
			Salary:           models.SalaryNotProvided,
			EmploymentType:   "Contract",
			PostedBy:         models.PosterAnonymous,
			Category:         models.CategoryNone,
		},
	}
}

func TestFileName(t *testing.T) {
	start := time.Date(2016, 11, 14, 10, 33, 2, 0, time.Local)
	name := FileName(start)

	assert.Equal(t, "brightermondayjobs_20161114-103302.json", name)
	assert.True(t, Pattern.MatchString(name))

	got, err := Timestamp("/tmp/out/" + name)
	require.NoError(t, err)
	assert.True(t, start.Equal(got))

	_, err = Timestamp("jobs.json")
	assert.Error(t, err)
}

func TestWriteLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := sampleListings()

	path, err := Write(dir, time.Date(2016, 12, 1, 18, 36, 30, 0, time.Local), want)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "brightermondayjobs_20161201-183630.json"), path)

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWrite_KeyOrderAndEscaping(t *testing.T) {
	dir := t.TempDir()
	path, err := Write(dir, time.Now(), sampleListings()[:1])
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	raw := string(data)

	last := -1
	for _, key := range models.FieldOrder {
		idx := strings.Index(raw, `"`+key+`":`)
		require.Greater(t, idx, last, "key %s out of order", key)
		last = idx
	}
	assert.Contains(t, raw, "?ref=a&src=b")
	assert.Contains(t, raw, "<dashboards>")
}

func TestWrite_NeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	start := time.Now()

	_, err := Write(dir, start, sampleListings())
	require.NoError(t, err)

	_, err = Write(dir, start, nil)
	assert.Error(t, err)

	got, err := Load(filepath.Join(dir, FileName(start)))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestWrite_EmptyCrawl(t *testing.T) {
	dir := t.TempDir()
	path, err := Write(dir, time.Now(), nil)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestListAndLatest(t *testing.T) {
	dir := t.TempDir()

	_, err := Latest(dir)
	assert.ErrorIs(t, err, ErrNoSnapshots)

	for _, name := range []string{
		"brightermondayjobs_20161201-183630.json",
		"brightermondayjobs_20161114-103302.json",
		"brightermondayjobs_20170102-000000.json",
		"notes.json",
		"brightermondayjobs_latest.json",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("[]"), 0644))
	}

	paths, err := List(dir)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, "brightermondayjobs_20161114-103302.json", filepath.Base(paths[0]))

	latest, err := Latest(dir)
	require.NoError(t, err)
	assert.Equal(t, "brightermondayjobs_20170102-000000.json", filepath.Base(latest))
}
