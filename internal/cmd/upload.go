package cmd

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusbridge/internal/observability"
	"github.com/3leaps/nimbusbridge/pkg/bridge"
	"github.com/3leaps/nimbusbridge/pkg/output"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <path-or-glob> <uri>",
	Short: "Upload local files",
	Long: `Upload one or more local files.

The first argument is a file path or a doublestar glob. Every match is
uploaded as its own asynchronous operation; all uploads run concurrently.
When the destination URI ends with "/" each file keeps its path relative to
the glob's base directory under that prefix. Otherwise the URI names the
object and exactly one file must match.

Examples:
  nimbusbridge upload ./report.pdf s3://docs/2025/report.pdf
  nimbusbridge upload './media/**/*.mp4' s3://media/clips/
  nimbusbridge upload '*.log' file://logs/ --quiet`,
	Args: cobra.ExactArgs(2),
	RunE: runUpload,
}

var uploadQuiet bool

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().BoolVarP(&uploadQuiet, "quiet", "q", false, "Suppress progress records")
}

// localFile is one upload source.
type localFile struct {
	// path is the file's path on disk.
	path string
	// rel is the slash-separated path below the glob base.
	rel string
}

// expandLocalGlob resolves pattern to regular files, sorted by path.
func expandLocalGlob(pattern string) ([]localFile, error) {
	base, pat := doublestar.SplitPattern(filepath.ToSlash(pattern))
	if !doublestar.ValidatePattern(pat) {
		return nil, fmt.Errorf("%w: %s", doublestar.ErrBadPattern, pattern)
	}

	matches, err := doublestar.Glob(os.DirFS(filepath.FromSlash(base)), pat, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	files := make([]localFile, 0, len(matches))
	for _, m := range matches {
		files = append(files, localFile{
			path: filepath.Join(filepath.FromSlash(base), filepath.FromSlash(m)),
			rel:  m,
		})
	}
	return files, nil
}

// objectNameFor places f under dest.
func objectNameFor(dest *ObjectURI, f localFile) string {
	if dest.IsPrefix() {
		return dest.Key + path.Clean(f.rel)
	}
	return dest.Key
}

type uploadResult struct {
	env    bridge.ObjectEnvelope
	file   localFile
	object string
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	dest, err := ParseURI(args[1])
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid URI", err)
	}

	files, err := expandLocalGlob(args[0])
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid path or pattern", err)
	}
	if len(files) == 0 {
		return exitError(foundry.ExitFileNotFound, "No files to upload", fmt.Errorf("nothing matches %s", args[0]))
	}
	if !dest.IsPrefix() && len(files) > 1 {
		return exitError(foundry.ExitInvalidArgument, "Destination must be a prefix",
			fmt.Errorf("%d files match; end the URI with / to upload under a prefix", len(files)))
	}

	s, err := openSession(cmd, dest.Provider)
	if err != nil {
		return err
	}
	defer s.Close()

	start := time.Now()
	total := int64(len(files))
	if !uploadQuiet {
		_ = s.out.WriteProgress(ctx, &output.ProgressRecord{Phase: output.PhaseStarting, ItemsTotal: total})
	}

	observability.CLILogger.Info("Starting upload",
		zap.Int("files", len(files)),
		zap.String("destination", dest.String()))

	// Every submission delivers exactly once, so the buffer never blocks a
	// callback.
	results := make(chan uploadResult, len(files))
	for _, f := range files {
		object := objectNameFor(dest, f)
		s.bridge.UploadFile(s.client, f.path, dest.Bucket, object, func(env bridge.ObjectEnvelope) {
			results <- uploadResult{env: env, file: f, object: object}
		})
	}

	var succeeded, failed, bytes int64
	for done := int64(1); done <= total; done++ {
		var r uploadResult
		select {
		case r = <-results:
		case <-ctx.Done():
			go func(pending int64) {
				for ; pending > 0; pending-- {
					s.bridge.FreeObjectEnvelope((<-results).env)
				}
			}(total - done + 1)
			return exitError(foundry.ExitSignalInt, "upload cancelled", ctx.Err())
		}

		rec, err := s.emitObject(ctx, r.env, target{bucket: dest.Bucket, object: r.object, path: r.file.path})
		if err != nil {
			failed++
			observability.CLILogger.Warn("Upload failed",
				zap.String("path", r.file.path),
				zap.String("object", r.object),
				zap.Error(err))
		} else {
			succeeded++
			bytes += int64(rec.Size)
		}

		if !uploadQuiet {
			_ = s.out.WriteProgress(ctx, &output.ProgressRecord{
				Phase:      output.PhaseUploading,
				ItemsTotal: total,
				ItemsDone:  done,
				BytesTotal: bytes,
				Path:       r.file.path,
			})
		}
	}

	elapsed := time.Since(start)
	_ = s.out.WriteSummary(ctx, &output.SummaryRecord{
		Operation:     "upload",
		Succeeded:     succeeded,
		Failed:        failed,
		BytesTotal:    bytes,
		Duration:      elapsed,
		DurationHuman: elapsed.Round(time.Millisecond).String(),
	})

	observability.CLILogger.Info("Upload completed",
		zap.Int64("succeeded", succeeded),
		zap.Int64("failed", failed),
		zap.Int64("bytes", bytes),
		zap.Duration("duration", elapsed))

	if failed > 0 {
		return exitError(foundry.ExitExternalServiceUnavailable, "upload completed with errors", fmt.Errorf("errors=%d", failed))
	}
	return nil
}
