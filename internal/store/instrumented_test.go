package store

import (
	"testing"

	"github.com/heysubinoy/pyazkv/pkg/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Get(string) (string, error) { return "", kv.ErrInternal }
func (failingStore) Set(string, string) error  { return kv.ErrInternal }

func TestInstrumentedStore_Counts(t *testing.T) {
	s := NewInstrumentedStore(NewMemStore())

	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("a", "2"))
	v, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
	_, err = s.Get("missing")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	m := s.GetMetrics()
	assert.Equal(t, uint64(2), m.GetCount)
	assert.Equal(t, uint64(1), m.GetMisses)
	assert.Equal(t, uint64(2), m.SetCount)
	assert.Equal(t, uint64(0), m.Errors)
	assert.Equal(t, 1, m.Keys)

	s.ResetMetrics()
	m = s.GetMetrics()
	assert.Zero(t, m.GetCount)
	assert.Zero(t, m.SetCount)
	assert.Zero(t, m.GetAvgLatency)
	assert.Equal(t, 1, m.Keys, "reset must not touch stored data")
}

func TestInstrumentedStore_Errors(t *testing.T) {
	s := NewInstrumentedStore(failingStore{})

	_, err := s.Get("a")
	assert.ErrorIs(t, err, kv.ErrInternal)
	assert.ErrorIs(t, s.Set("a", "b"), kv.ErrInternal)

	m := s.GetMetrics()
	assert.Equal(t, uint64(2), m.Errors)
	assert.Equal(t, uint64(0), m.GetMisses)
	assert.Equal(t, -1, m.Keys)
}
