package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"attblink/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(trial int) models.TrialRecord {
	return models.TrialRecord{
		Name:          "Jane Doe",
		Age:           27,
		Gender:        models.GenderWoman,
		Education:     "Bachelor",
		Email:         "jane@example.org",
		TrialNumber:   trial,
		TimeGap:       0.56,
		IndexDistance: 2,
		UnitDistance:  281.4,
		Outcome1:      1,
		Outcome2:      0,
	}
}

func TestCSVStoreAppendWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attentionalBlink.csv")
	store := NewCSVStore(path)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, sampleRecord(1)))
	require.NoError(t, store.Append(ctx, sampleRecord(2)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, models.CSVHeader, lines[0])
	assert.Equal(t, "Jane Doe,27,0,Bachelor,jane@example.org,1,0.56,2,281.4,1,0", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "Jane Doe,27,0,Bachelor,jane@example.org,2,"))
}

func TestCSVStoreAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, os.WriteFile(path, []byte(models.CSVHeader+"\nOld,30,1,PhD,old@example.org,1,0.14,1,120.5,0,1\n"), 0o644))

	store := NewCSVStore(path)
	require.NoError(t, store.Append(context.Background(), sampleRecord(1)))

	records, err := store.ListTrials(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Old", records[0].Name)
	assert.Equal(t, 1, records[0].Gender)
	assert.Equal(t, 0.14, records[0].TimeGap)

	if diff := cmp.Diff(sampleRecord(1), records[1]); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCSVStoreListMissingFile(t *testing.T) {
	store := NewCSVStore(filepath.Join(t.TempDir(), "none.csv"))
	records, err := store.ListTrials(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCSVStoreRejectsSessionFilter(t *testing.T) {
	store := NewCSVStore(filepath.Join(t.TempDir(), "results.csv"))
	require.NoError(t, store.Append(context.Background(), sampleRecord(1)))

	_, err := store.ListTrials(context.Background(), "0b7c5a56-1d1c-4c4e-9f0e-2c1f3c0f9a11")
	assert.ErrorIs(t, err, ErrSessionFilter)

	records, err := store.ListTrials(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCSVStoreListRejectsBadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, os.WriteFile(path, []byte(models.CSVHeader+"\nJane,old,0,BSc,j@x.org,1,0.14,1,1.0,0,1\n"), 0o644))

	_, err := NewCSVStore(path).ListTrials(context.Background(), "")
	assert.ErrorContains(t, err, "line 2")
}

func TestCSVStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "results.csv")
	err := NewCSVStore(path).Append(ctx, sampleRecord(1))
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

type recordingSink struct {
	got []models.TrialRecord
	err error
}

func (r *recordingSink) Append(_ context.Context, rec models.TrialRecord) error {
	if r.err != nil {
		return r.err
	}
	r.got = append(r.got, rec)
	return nil
}

func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	require.NoError(t, MultiSink{a, b}.Append(context.Background(), sampleRecord(4)))
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1)

	boom := errors.New("disk full")
	failing, after := &recordingSink{err: boom}, &recordingSink{}
	err := MultiSink{failing, after}.Append(context.Background(), sampleRecord(5))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, after.got)
}

func TestMembers(t *testing.T) {
	a, b, c := &recordingSink{}, &recordingSink{}, &recordingSink{}
	assert.Equal(t, []TrialSink{a}, Members(a))
	assert.Equal(t, []TrialSink{a, b, c}, Members(MultiSink{a, MultiSink{b, c}}))
	assert.Empty(t, Members(MultiSink{}))
}

func TestNewStores(t *testing.T) {
	s := NewStores(filepath.Join(t.TempDir(), "r.csv"), nil)
	require.Len(t, s.Trials, 1)
	assert.Same(t, s.CSV, s.Reader())
	assert.Nil(t, s.Sessions())
	assert.Nil(t, s.SessionLister())

	none := NewStores("", nil)
	assert.Empty(t, none.Trials)
	assert.Nil(t, none.Reader())
}
