package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusbridge/internal/observability"
	"github.com/3leaps/nimbusbridge/pkg/output"
)

var writeCmd = &cobra.Command{
	Use:   "write <uri>",
	Short: "Stream input into an object",
	Long: `Stream stdin (or --from) into an object through a chunked writer session.

Input is read in --chunk-size pieces and each piece is handed to the
writer in order. The object is committed at end of input. If the input
cannot be read the upload is abandoned and nothing is committed.

Examples:
  tar cz ./site | nimbusbridge write s3://backups/site.tgz
  nimbusbridge write file://scratch/log.txt --from /var/log/app.log --chunk-size 65536`,
	Args: cobra.ExactArgs(1),
	RunE: runWrite,
}

var (
	writeChunkSize int
	writeFrom      string
	writeQuiet     bool
)

const defaultChunkSize = 1 << 20

func init() {
	rootCmd.AddCommand(writeCmd)
	writeCmd.Flags().IntVar(&writeChunkSize, "chunk-size", defaultChunkSize, "Bytes per chunk")
	writeCmd.Flags().StringVar(&writeFrom, "from", "-", "Input file (- for stdin)")
	writeCmd.Flags().BoolVarP(&writeQuiet, "quiet", "q", false, "Suppress progress records")
}

func runWrite(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	parsed, err := ParseURI(args[0])
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid URI", err)
	}
	if parsed.IsPrefix() {
		return exitError(foundry.ExitInvalidArgument, "write requires an exact object name", fmt.Errorf("no object in %s", args[0]))
	}
	if writeChunkSize < 1 {
		return exitError(foundry.ExitInvalidArgument, "Invalid --chunk-size value", fmt.Errorf("chunk size must be >= 1"))
	}

	in := cmd.InOrStdin()
	if writeFrom != "-" {
		f, err := os.Open(writeFrom)
		if err != nil {
			return exitError(foundry.ExitFileNotFound, "Failed to open input", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	s, err := openSession(cmd, parsed.Provider)
	if err != nil {
		return err
	}
	defer s.Close()

	start := time.Now()
	w := s.bridge.WriteObject(s.client, parsed.Bucket, parsed.Key)

	buf := make([]byte, writeChunkSize)
	var chunks, written int64
	for {
		if err := ctx.Err(); err != nil {
			s.bridge.AbortWriter(w)
			return exitError(foundry.ExitSignalInt, "write cancelled", err)
		}

		n, rerr := io.ReadFull(in, buf)
		if n > 0 {
			// A refused chunk fails the session; CloseWriter reports why.
			if !s.bridge.WriteChunk(w, buf[:n]) {
				break
			}
			chunks++
			written += int64(n)
			if !writeQuiet {
				_ = s.out.WriteProgress(ctx, &output.ProgressRecord{
					Phase:      output.PhaseWriting,
					ItemsDone:  chunks,
					BytesTotal: written,
				})
			}
		}
		if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
			break
		}
		if rerr != nil {
			s.bridge.AbortWriter(w)
			return exitError(foundry.ExitFileReadError, "Failed to read input", rerr)
		}
	}

	env := s.bridge.CloseWriter(w)
	rec, err := s.emitObject(ctx, env, target{bucket: parsed.Bucket, object: parsed.Key})
	elapsed := time.Since(start)

	sum := &output.SummaryRecord{
		Operation:     "write",
		BytesTotal:    written,
		Duration:      elapsed,
		DurationHuman: elapsed.Round(time.Millisecond).String(),
	}
	if err != nil {
		sum.Failed = 1
	} else {
		sum.Succeeded = 1
	}
	_ = s.out.WriteSummary(ctx, sum)

	if err != nil {
		return operationFailed("write failed", err)
	}
	observability.CLILogger.Info("Write completed",
		zap.String("object", parsed.String()),
		zap.Int64("chunks", chunks),
		zap.Uint64("size", rec.Size))
	return nil
}
