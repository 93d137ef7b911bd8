package gffimport_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zymatik-com/annonars/internal/importer/gffimport"
	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/store"
)

const gffFixture = "##gff-version 3\n" +
	"NC_000001.11\tRefSeqFE\tregulatory_region\t1000\t2000\t.\t+\t.\tID=id1;regulatory_class=enhancer;Note=test enhancer\n" +
	"NW_000001.1\tRefSeqFE\tregulatory_region\t1\t10\t.\t+\t.\tID=id2\n"

func TestImportWritesCanonicalFeatureAndRejectsUnknownContig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "functional-regions.gff3")
	require.NoError(t, os.WriteFile(path, []byte(gffFixture), 0o644))

	dbPath := filepath.Join(t.TempDir(), "functional-regions.annonars")
	db, err := store.Open(dbPath, false)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.CreateColumnFamilies(store.MetaBucket, store.DataBucket))

	require.NoError(t, gffimport.Import(nil, db, path, gffimport.Options{Category: "regulatory"}))

	raw, err := db.Get(store.DataBucket, []byte("id1"))
	require.NoError(t, err)
	require.NotNil(t, raw)

	rec, err := records.DecodeFunctionalRegion(raw)
	require.NoError(t, err)
	require.Equal(t, "1", rec.Chrom)
	require.Equal(t, "enhancer", rec.RegulatoryClass)
	require.Equal(t, "regulatory", rec.Category)

	missing, err := db.Get(store.DataBucket, []byte("id2"))
	require.NoError(t, err)
	require.Nil(t, missing, "feature on a non-canonical contig must be rejected")
}

func TestImportSkipsFeatureMissingIDAttribute(t *testing.T) {
	const noIDFixture = "NC_000001.11\tRefSeqFE\tregulatory_region\t1\t2\t.\t+\t.\tregulatory_class=enhancer\n"

	path := filepath.Join(t.TempDir(), "no-id.gff3")
	require.NoError(t, os.WriteFile(path, []byte(noIDFixture), 0o644))

	dbPath := filepath.Join(t.TempDir(), "no-id.annonars")
	db, err := store.Open(dbPath, false)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.CreateColumnFamilies(store.MetaBucket, store.DataBucket))

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	require.NoError(t, gffimport.Import(logger, db, path, gffimport.Options{}))
}
