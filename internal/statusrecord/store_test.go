package statusrecord

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreAppendAndReplay(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "status.jsonl")
	s := New(path)

	require.NoError(t, s.Append(Event{TimeEpochMS: 1, StepName: "a", Status: "IN_PROGRESS"}))
	require.NoError(t, s.Append(Event{TimeEpochMS: 2, StepName: "a", Status: "SUCCEEDED"}))
	require.NoError(t, s.Append(Event{TimeEpochMS: 3, StepName: "b", Status: "FAILED"}))

	records, err := s.Records()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "a", records[0].StepName)
	require.Equal(t, "SUCCEEDED", records[1].Status)
}

func TestStoreFailedFiltersNonFailedEvents(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "status.jsonl")
	s := New(path)

	require.NoError(t, s.Append(Event{StepName: "a", Status: "SUCCEEDED"}))
	require.NoError(t, s.Append(Event{StepName: "b", Status: "FAILED"}))
	require.NoError(t, s.Append(Event{StepName: "c", Status: "SKIPPED"}))

	failed, err := s.Failed()
	require.NoError(t, err)
	require.Len(t, failed, 1)
	require.Equal(t, "b", failed[0].StepName)
}

func TestStoreResetTruncatesRecord(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "status.jsonl")
	s := New(path)

	require.NoError(t, s.Append(Event{StepName: "a", Status: "SUCCEEDED"}))
	require.NoError(t, s.Reset())

	records, err := s.Records()
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestStoreRecordsOnMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing.jsonl")
	s := New(path)

	records, err := s.Records()
	require.NoError(t, err)
	require.Empty(t, records)
}
