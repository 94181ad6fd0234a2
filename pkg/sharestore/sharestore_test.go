package sharestore

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Davincible/rabinida/pkg/ida"
	"github.com/Davincible/rabinida/pkg/secure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastKDF = KDFParams{Time: 1, Memory: 64, Threads: 1}

func newDispersal(t *testing.T, name string, data []byte, n, k int) *Dispersal {
	t.Helper()
	cfg := ida.Config{Shares: n, Threshold: k}
	codec, err := ida.New(cfg)
	require.NoError(t, err)

	d, err := NewDispersal(name, cfg, codec.Encode(data))
	require.NoError(t, err)
	return d
}

func TestNewDispersal(t *testing.T) {
	d := newDispersal(t, "backup", []byte("some payload"), 5, 3)

	assert.Equal(t, 5, d.Shares)
	assert.Equal(t, 3, d.Threshold)
	assert.Equal(t, uint64(12), d.Length)
	require.Len(t, d.Entries, 5)
	for i, e := range d.Entries {
		assert.Equal(t, byte(i+1), e.ID)
		assert.Equal(t, StatusAvailable, e.Status)
		require.NotNil(t, e.Share)
		assert.Equal(t, e.ID, e.Share.ID)
	}

	_, err := NewDispersal("bad", ida.Config{Shares: 5, Threshold: 3}, nil)
	assert.Error(t, err)

	_, err = NewDispersal("bad", ida.Config{Shares: 2, Threshold: 3}, nil)
	assert.ErrorIs(t, err, ida.ErrConfiguration)
}

func TestAddGetAndReload(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	data := []byte("dispersed payload")
	d := newDispersal(t, "my backup", data, 5, 3)
	d.Tags = []string{"Photos", "2024"}
	require.NoError(t, store.Add(d))
	assert.NotEmpty(t, d.ID)
	assert.NotEmpty(t, d.ChecksumSHA256)

	got, err := store.Get(d.ID)
	require.NoError(t, err)
	assert.Equal(t, d, got)

	byPrefix, err := store.Get(d.ID[:6])
	require.NoError(t, err)
	assert.Equal(t, d.ID, byPrefix.ID)

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, d.ID+".json", filepath.Base(files[0]))

	reopened, err := New(dir)
	require.NoError(t, err)
	rec, err := reopened.Recover(d.ID)
	require.NoError(t, err)
	assert.Equal(t, data, rec)

	_, err = reopened.Get("does-not-exist")
	assert.Error(t, err)
}

func TestListAndSearch(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	older := newDispersal(t, "photos", []byte("a"), 3, 2)
	older.Tags = []string{"media"}
	older.Created = time.Now().Add(-time.Hour)
	require.NoError(t, store.Add(older))

	newer := newDispersal(t, "documents", []byte("b"), 3, 2)
	newer.Tags = []string{"media", "work"}
	newer.Description = "tax photos scans"
	require.NoError(t, store.Add(newer))

	all := store.List(nil)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID)

	work := store.List([]string{"WORK"})
	require.Len(t, work, 1)
	assert.Equal(t, newer.ID, work[0].ID)

	results := store.Search("photos")
	require.Len(t, results, 2)
	assert.Equal(t, older.ID, results[0].ID, "exact name match first")

	assert.Empty(t, store.Search("nothing matches"))
}

func TestUpdateStatusAndRecovery(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	data := bytes.Repeat([]byte("abc"), 100)
	d := newDispersal(t, "status", data, 5, 3)
	require.NoError(t, store.Add(d))

	require.NoError(t, store.UpdateStatus(d.ID, 1, StatusDistributed, "safe deposit box"))
	require.NoError(t, store.UpdateStatus(d.ID, 2, StatusDistributed, "office"))

	got, err := store.Get(d.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Entries[0].Share)
	assert.Equal(t, "safe deposit box", got.Entries[0].Location)

	shares, err := store.RecoveryShares(d.ID)
	require.NoError(t, err)
	assert.Len(t, shares, 3)

	rec, err := store.Recover(d.ID)
	require.NoError(t, err)
	assert.Equal(t, data, rec)

	require.NoError(t, store.UpdateStatus(d.ID, 3, StatusMissing, ""))
	_, err = store.RecoveryShares(d.ID)
	assert.ErrorIs(t, err, ida.ErrInsufficientShares)

	_, err = store.Recover(d.ID)
	assert.ErrorIs(t, err, ida.ErrInsufficientShares)

	err = store.UpdateStatus(d.ID, 9, StatusMissing, "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "share 9 not found")
}

func TestVerify(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	d := newDispersal(t, "verify", []byte("0123456789"), 4, 2)
	d.Entries[0].Share.Body = d.Entries[0].Share.Body[:2]
	d.Entries[1].Share = nil
	d.Entries[2].Share.ID = 4
	require.NoError(t, store.Add(d))

	report, err := store.Verify(d.ID)
	require.NoError(t, err)

	assert.Equal(t, 4, report.TotalShares)
	assert.Equal(t, 1, report.ValidShares)
	assert.False(t, report.IsRecoverable)

	statuses := make([]Status, len(report.Results))
	for i, r := range report.Results {
		statuses[i] = r.Status
	}
	assert.Equal(t, []Status{StatusCorrupted, StatusMissing, StatusCorrupted, StatusAvailable}, statuses)

	got, err := store.Get(d.ID)
	require.NoError(t, err)
	for _, e := range got.Entries {
		assert.NotNil(t, e.LastVerified)
	}
}

func TestChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	d := newDispersal(t, "tamper", []byte("payload"), 3, 2)
	require.NoError(t, store.Add(d))

	d.Name = "changed behind the store's back"
	_, err = store.Get(d.ID)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")

	// A corrupted file is skipped on load and logged.
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(files[0], []byte("{not json"), 0600))

	var logs bytes.Buffer
	reopened, err := New(dir, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, err)
	assert.Empty(t, reopened.List(nil))
	assert.Contains(t, logs.String(), "skipping unreadable dispersal")
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	d := newDispersal(t, "gone", []byte("x"), 2, 1)
	require.NoError(t, store.Add(d))
	require.NoError(t, store.Delete(d.ID))

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	assert.Empty(t, files)

	assert.Error(t, store.Delete(d.ID))
}

func TestExportImport(t *testing.T) {
	src, err := New(t.TempDir())
	require.NoError(t, err)

	data := []byte("move me between stores")
	d := newDispersal(t, "portable", data, 4, 2)
	require.NoError(t, src.Add(d))

	metaOnly, err := src.Export(d.ID, false)
	require.NoError(t, err)
	for _, e := range metaOnly.Dispersal.Entries {
		assert.Nil(t, e.Share)
	}
	original, err := src.Get(d.ID)
	require.NoError(t, err)
	assert.NotNil(t, original.Entries[0].Share, "export must not strip the stored record")

	full, err := src.Export(d.ID, true)
	require.NoError(t, err)

	dst, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, dst.Import(full, false))

	rec, err := dst.Recover(d.ID)
	require.NoError(t, err)
	assert.Equal(t, data, rec)

	assert.Error(t, dst.Import(full, false))
	assert.NoError(t, dst.Import(full, true))
}

func TestImportOverwriteRenamed(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	d := newDispersal(t, "zebra", []byte("first version"), 3, 2)
	require.NoError(t, store.Add(d))

	export, err := store.Export(d.ID, true)
	require.NoError(t, err)
	export.Dispersal.Name = "aardvark"
	export.Dispersal.Description = "renamed on import"
	require.NoError(t, store.Import(export, true))

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	reopened, err := New(dir)
	require.NoError(t, err)
	got, err := reopened.Get(d.ID)
	require.NoError(t, err)
	assert.Equal(t, "aardvark", got.Name)
	assert.Equal(t, "renamed on import", got.Description)

	require.NoError(t, reopened.Delete(d.ID))
	again, err := New(dir)
	require.NoError(t, err)
	_, err = again.Get(d.ID)
	assert.Error(t, err)
	assert.Empty(t, again.List(nil))
}

func TestRejectsUnsafeIDs(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	d := newDispersal(t, "escape", []byte("x"), 2, 1)
	d.ID = "../outside"
	assert.ErrorContains(t, store.Add(d), "invalid dispersal id")
	assert.Empty(t, store.List(nil))

	// A copy under a foreign file name is ignored on load.
	ok := newDispersal(t, "copied", []byte("y"), 2, 1)
	require.NoError(t, store.Add(ok))
	raw, err := os.ReadFile(filepath.Join(dir, ok.ID+".json"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, ok.ID+".json")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale_copy.json"), raw, 0600))

	var logs bytes.Buffer
	reopened, err := New(dir, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, err)
	assert.Empty(t, reopened.List(nil))
	assert.Contains(t, logs.String(), "file name does not match")
}

func TestEncryptedStore(t *testing.T) {
	dir := t.TempDir()
	pass := secure.NewPassphrase([]byte("correct horse"))

	store, err := New(dir, WithPassphrase(pass), WithKDFParams(fastKDF))
	require.NoError(t, err)

	data := []byte("encrypted at rest")
	d := newDispersal(t, "secret", data, 3, 2)
	require.NoError(t, store.Add(d))

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	raw, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")

	reopened, err := New(dir, WithPassphrase(pass), WithKDFParams(fastKDF))
	require.NoError(t, err)
	rec, err := reopened.Recover(d.ID)
	require.NoError(t, err)
	assert.Equal(t, data, rec)

	wrong, err := New(dir,
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
		WithPassphrase(secure.NewPassphrase([]byte("wrong"))),
		WithKDFParams(fastKDF))
	require.NoError(t, err)
	assert.Empty(t, wrong.List(nil))

	_, err = New(dir, WithPassphrase(secure.NewPassphrase(nil)))
	assert.ErrorIs(t, err, errEmptyPassphrase)
}
