package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/nimbusbridge/pkg/output"
)

// useFileProvider points the loader at a fresh file collaborator root.
func useFileProvider(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("NIMBUSBRIDGE_CONFIG", "")

	base := t.TempDir()
	t.Setenv("NIMBUSBRIDGE_PROVIDER", "file")
	t.Setenv("NIMBUSBRIDGE_FILE_BASE_DIR", base)
	t.Setenv("NIMBUSBRIDGE_METRICS_ENABLED", "false")
	return base
}

func resetFlags() {
	cfgFile, providerFlag, logLevel, verbose = "", "", "", false
	versionJSON = false
	bucketLocation, bucketStorageClass = "", ""
	bucketLabels = map[string]string{}
	bucketVersioning, bucketObjectLock = false, false
	uploadQuiet = false
	writeChunkSize, writeFrom, writeQuiet = defaultChunkSize, "-", false
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func records(t *testing.T, out string) []output.Record {
	t.Helper()
	var recs []output.Record
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var rec output.Record
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)
		recs = append(recs, rec)
	}
	return recs
}

func recordsOfType(t *testing.T, out, typ string) []json.RawMessage {
	t.Helper()
	var data []json.RawMessage
	for _, rec := range records(t, out) {
		if rec.Type == typ {
			data = append(data, rec.Data)
		}
	}
	return data
}

func TestCLI_BucketCreateAndStat(t *testing.T) {
	useFileProvider(t)

	out, err := runCLI(t, "", "bucket", "create", "file://media", "--label", "team=video", "--versioning")
	require.NoError(t, err)

	created := recordsOfType(t, out, output.TypeBucket)
	require.Len(t, created, 1)
	var bucket output.BucketRecord
	require.NoError(t, json.Unmarshal(created[0], &bucket))
	assert.Equal(t, "media", bucket.Name)
	assert.True(t, bucket.Versioning)
	assert.Equal(t, map[string]string{"team": "video"}, bucket.Labels)

	out, err = runCLI(t, "", "bucket", "stat", "file://media")
	require.NoError(t, err)
	stat := recordsOfType(t, out, output.TypeBucket)
	require.Len(t, stat, 1)
	require.NoError(t, json.Unmarshal(stat[0], &bucket))
	assert.Equal(t, "media", bucket.Name)
}

func TestCLI_BucketCreateTwiceFails(t *testing.T) {
	useFileProvider(t)

	_, err := runCLI(t, "", "bucket", "create", "file://dup")
	require.NoError(t, err)

	out, err := runCLI(t, "", "bucket", "create", "file://dup")
	require.Error(t, err)

	errs := recordsOfType(t, out, output.TypeError)
	require.Len(t, errs, 1)
	var rec output.ErrorRecord
	require.NoError(t, json.Unmarshal(errs[0], &rec))
	assert.Equal(t, output.ErrCodeAlreadyExists, rec.Code)
	assert.Equal(t, "dup", rec.Bucket)
}

func TestCLI_BucketURIRejectsObject(t *testing.T) {
	useFileProvider(t)

	_, err := runCLI(t, "", "bucket", "stat", "file://media/obj")
	require.Error(t, err)
	assert.Equal(t, foundry.ExitInvalidArgument, exitCode(err))
}

func TestCLI_StatMissingObject(t *testing.T) {
	useFileProvider(t)
	_, err := runCLI(t, "", "bucket", "create", "file://media")
	require.NoError(t, err)

	out, err := runCLI(t, "", "stat", "file://media/missing.txt")
	require.Error(t, err)
	assert.Equal(t, foundry.ExitExternalServiceUnavailable, exitCode(err))

	errs := recordsOfType(t, out, output.TypeError)
	require.Len(t, errs, 1)
	var rec output.ErrorRecord
	require.NoError(t, json.Unmarshal(errs[0], &rec))
	assert.Equal(t, output.ErrCodeNotFound, rec.Code)
	assert.Equal(t, "missing.txt", rec.Object)
}

func TestCLI_StatRequiresObject(t *testing.T) {
	useFileProvider(t)

	_, err := runCLI(t, "", "stat", "file://media/")
	require.Error(t, err)
	assert.Equal(t, foundry.ExitInvalidArgument, exitCode(err))
}

func TestCLI_UploadGlobAndStat(t *testing.T) {
	useFileProvider(t)
	_, err := runCLI(t, "", "bucket", "create", "file://media")
	require.NoError(t, err)

	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "b.txt"), []byte("bravo!"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "c.log"), []byte("skip"), 0o644))

	out, err := runCLI(t, "", "upload", filepath.Join(src, "**", "*.txt"), "file://media/in/")
	require.NoError(t, err)

	objects := recordsOfType(t, out, output.TypeObject)
	require.Len(t, objects, 2)
	names := map[string]uint64{}
	for _, raw := range objects {
		var obj output.ObjectRecord
		require.NoError(t, json.Unmarshal(raw, &obj))
		assert.Equal(t, "media", obj.Bucket)
		names[obj.Name] = obj.Size
	}
	assert.Equal(t, map[string]uint64{"in/a.txt": 5, "in/sub/b.txt": 6}, names)

	progress := recordsOfType(t, out, output.TypeProgress)
	assert.Len(t, progress, 3, "starting plus one per file")

	summaries := recordsOfType(t, out, output.TypeSummary)
	require.Len(t, summaries, 1)
	var sum output.SummaryRecord
	require.NoError(t, json.Unmarshal(summaries[0], &sum))
	assert.Equal(t, "upload", sum.Operation)
	assert.Equal(t, int64(2), sum.Succeeded)
	assert.Equal(t, int64(0), sum.Failed)
	assert.Equal(t, int64(11), sum.BytesTotal)

	out, err = runCLI(t, "", "stat", "file://media/in/sub/b.txt", "file://media/in/a.txt")
	require.NoError(t, err)
	assert.Len(t, recordsOfType(t, out, output.TypeObject), 2)
}

func TestCLI_UploadSingleFileToObjectName(t *testing.T) {
	useFileProvider(t)
	_, err := runCLI(t, "", "bucket", "create", "file://media")
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF"), 0o644))

	out, err := runCLI(t, "", "upload", src, "file://media/docs/2025.pdf", "--quiet")
	require.NoError(t, err)

	assert.Empty(t, recordsOfType(t, out, output.TypeProgress))
	objects := recordsOfType(t, out, output.TypeObject)
	require.Len(t, objects, 1)
	var obj output.ObjectRecord
	require.NoError(t, json.Unmarshal(objects[0], &obj))
	assert.Equal(t, "docs/2025.pdf", obj.Name)
}

func TestCLI_UploadFailures(t *testing.T) {
	useFileProvider(t)

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "b.txt"), []byte("b"), 0o644))

	t.Run("nothing matches", func(t *testing.T) {
		_, err := runCLI(t, "", "upload", filepath.Join(src, "*.csv"), "file://media/")
		require.Error(t, err)
		assert.Equal(t, foundry.ExitFileNotFound, exitCode(err))
	})

	t.Run("many files need a prefix", func(t *testing.T) {
		_, err := runCLI(t, "", "upload", filepath.Join(src, "*.txt"), "file://media/one.txt")
		require.Error(t, err)
		assert.Equal(t, foundry.ExitInvalidArgument, exitCode(err))
	})

	t.Run("missing bucket reports per file", func(t *testing.T) {
		out, err := runCLI(t, "", "upload", filepath.Join(src, "*.txt"), "file://nobucket/")
		require.Error(t, err)
		assert.Equal(t, foundry.ExitExternalServiceUnavailable, exitCode(err))
		assert.Len(t, recordsOfType(t, out, output.TypeError), 2)

		var sum output.SummaryRecord
		summaries := recordsOfType(t, out, output.TypeSummary)
		require.Len(t, summaries, 1)
		require.NoError(t, json.Unmarshal(summaries[0], &sum))
		assert.Equal(t, int64(2), sum.Failed)
	})
}

func TestCLI_WriteFromStdin(t *testing.T) {
	useFileProvider(t)
	_, err := runCLI(t, "", "bucket", "create", "file://media")
	require.NoError(t, err)

	out, err := runCLI(t, "hello world", "write", "file://media/greeting.txt", "--chunk-size", "4")
	require.NoError(t, err)

	assert.Len(t, recordsOfType(t, out, output.TypeProgress), 3)

	objects := recordsOfType(t, out, output.TypeObject)
	require.Len(t, objects, 1)
	var obj output.ObjectRecord
	require.NoError(t, json.Unmarshal(objects[0], &obj))
	assert.Equal(t, "greeting.txt", obj.Name)
	assert.Equal(t, uint64(11), obj.Size)

	out, err = runCLI(t, "", "stat", "file://media/greeting.txt")
	require.NoError(t, err)
	require.Len(t, recordsOfType(t, out, output.TypeObject), 1)
}

func TestCLI_WriteFromFile(t *testing.T) {
	useFileProvider(t)
	_, err := runCLI(t, "", "bucket", "create", "file://media")
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "in.bin")
	require.NoError(t, os.WriteFile(src, bytes.Repeat([]byte{'z'}, 10000), 0o644))

	out, err := runCLI(t, "", "write", "file://media/in.bin", "--from", src, "--quiet")
	require.NoError(t, err)
	assert.Empty(t, recordsOfType(t, out, output.TypeProgress))

	var obj output.ObjectRecord
	objects := recordsOfType(t, out, output.TypeObject)
	require.Len(t, objects, 1)
	require.NoError(t, json.Unmarshal(objects[0], &obj))
	assert.Equal(t, uint64(10000), obj.Size)
}

func TestCLI_WriteValidation(t *testing.T) {
	useFileProvider(t)

	_, err := runCLI(t, "", "write", "file://media/")
	require.Error(t, err)
	assert.Equal(t, foundry.ExitInvalidArgument, exitCode(err))

	_, err = runCLI(t, "", "write", "file://media/x", "--chunk-size", "0")
	require.Error(t, err)
	assert.Equal(t, foundry.ExitInvalidArgument, exitCode(err))

	_, err = runCLI(t, "", "write", "file://media/x", "--from", filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Equal(t, foundry.ExitFileNotFound, exitCode(err))
}

func TestCLI_WriteToMissingBucket(t *testing.T) {
	useFileProvider(t)

	out, err := runCLI(t, "data", "write", "file://nobucket/x.txt")
	require.Error(t, err)
	assert.Len(t, recordsOfType(t, out, output.TypeError), 1)
}

func TestCLI_InvalidConfiguration(t *testing.T) {
	useFileProvider(t)
	t.Setenv("NIMBUSBRIDGE_PROVIDER", "ftp")

	_, err := runCLI(t, "", "stat", "file://media/x")
	require.Error(t, err)
	assert.Equal(t, foundry.ExitInvalidArgument, exitCode(err))
}

func TestCLI_Version(t *testing.T) {
	out, err := runCLI(t, "", "version", "--json")
	require.NoError(t, err)

	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, versionInfo.Version, v["version"])
	assert.NotEmpty(t, v["go_version"])
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 1, exitCode(errors.New("plain")))

	err := exitError(foundry.ExitFileReadError, "Failed to read input", io.ErrUnexpectedEOF)
	assert.Equal(t, foundry.ExitFileReadError, exitCode(err))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "Failed to read input")
	assert.Contains(t, err.Error(), "exit code")
}
