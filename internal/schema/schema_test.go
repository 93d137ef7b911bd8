package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zymatik-com/annonars/internal/schema"
)

func TestInferPromotion(t *testing.T) {
	header := []string{"id", "score", "name"}
	rows := [][]string{
		{"1", "1.5", "foo"},
		{"2", "2", "bar"},
		{"NA", ".", "-"},
	}

	s, err := schema.Infer(header, rows, nil)
	require.NoError(t, err)

	assert.Equal(t, schema.ColumnInteger, s.Types[0])
	assert.Equal(t, schema.ColumnFloat, s.Types[1])
	assert.Equal(t, schema.ColumnString, s.Types[2])
}

func TestInferEmptyColumnDefaultsToString(t *testing.T) {
	header := []string{"a"}
	rows := [][]string{{"NA"}, {"."}}

	s, err := schema.Infer(header, rows, nil)
	require.NoError(t, err)
	assert.Equal(t, schema.ColumnString, s.Types[0])
}

func TestMergeIsLatticeJoin(t *testing.T) {
	a, err := schema.Infer([]string{"a", "b"}, [][]string{{"1", "2"}}, nil)
	require.NoError(t, err)

	b, err := schema.Infer([]string{"a", "b"}, [][]string{{"1", "2.5"}}, nil)
	require.NoError(t, err)

	merged, err := schema.Merge(a, b)
	require.NoError(t, err)

	assert.Equal(t, schema.ColumnInteger, merged.Types[0])
	assert.Equal(t, schema.ColumnFloat, merged.Types[1])
}

func TestMergeIncompatibleColumnCount(t *testing.T) {
	a, err := schema.Infer([]string{"a"}, [][]string{{"1"}}, nil)
	require.NoError(t, err)

	b, err := schema.Infer([]string{"a", "b"}, [][]string{{"1", "2"}}, nil)
	require.NoError(t, err)

	_, err = schema.Merge(a, b)
	require.ErrorIs(t, err, schema.ErrSchemaIncompatible)
}

func TestMergeIncompatibleColumnNames(t *testing.T) {
	a, err := schema.Infer([]string{"a", "b"}, [][]string{{"1", "2"}}, nil)
	require.NoError(t, err)

	b, err := schema.Infer([]string{"a", "c"}, [][]string{{"1", "2"}}, nil)
	require.NoError(t, err)

	_, err = schema.Merge(a, b)
	require.ErrorIs(t, err, schema.ErrSchemaIncompatible)
}

func TestRowCodecRoundTrip(t *testing.T) {
	s := &schema.Schema{
		Columns: []string{"id", "score", "name"},
		Types:   []schema.ColumnType{schema.ColumnInteger, schema.ColumnFloat, schema.ColumnString},
	}

	row, err := s.ParseRow([]string{"42", "3.14", "hello"}, nil)
	require.NoError(t, err)

	enc, err := s.EncodeRow(row)
	require.NoError(t, err)

	dec, err := s.DecodeRow(enc)
	require.NoError(t, err)

	require.Len(t, dec, 3)
	assert.Equal(t, int32(42), dec[0].Int)
	assert.InDelta(t, 3.14, dec[1].Float64, 1e-9)
	assert.Equal(t, "hello", dec[2].Str)
}

func TestRowCodecRoundTripWithNulls(t *testing.T) {
	s := &schema.Schema{
		Columns: []string{"a", "b", "c", "d"},
		Types:   []schema.ColumnType{schema.ColumnInteger, schema.ColumnFloat, schema.ColumnString, schema.ColumnInteger},
	}

	row, err := s.ParseRow([]string{"1", "NA", ".", "-"}, nil)
	require.NoError(t, err)

	enc, err := s.EncodeRow(row)
	require.NoError(t, err)

	dec, err := s.DecodeRow(enc)
	require.NoError(t, err)

	assert.False(t, dec[0].Null)
	assert.True(t, dec[1].Null)
	assert.True(t, dec[2].Null)
	assert.True(t, dec[3].Null)
}

func TestRowCodecRejectsNaN(t *testing.T) {
	s := &schema.Schema{
		Columns: []string{"a"},
		Types:   []schema.ColumnType{schema.ColumnFloat},
	}

	_, err := s.ParseRow([]string{"NaN"}, nil)
	require.Error(t, err)
}
