// Command carb ingests a directory tree into a content-addressed,
// deduplicating blob store with forward-error-correction parity, and
// emits a standalone restore script for the run. Its top-level
// structure — resolve config, preflight, enumerate, fan out to a
// worker pool, collate, report — mirrors cmd/camput's RunCommand flow
// with the HTTP upload target replaced by the local blob installer.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alexandrosbouzalas/carb/internal/blobid"
	"github.com/alexandrosbouzalas/carb/internal/config"
	"github.com/alexandrosbouzalas/carb/internal/enumerate"
	"github.com/alexandrosbouzalas/carb/internal/ingest"
	"github.com/alexandrosbouzalas/carb/internal/journal"
	"github.com/alexandrosbouzalas/carb/internal/mimetype"
	"github.com/alexandrosbouzalas/carb/internal/parity"
	"github.com/alexandrosbouzalas/carb/internal/pathutil"
	"github.com/alexandrosbouzalas/carb/internal/restore"
	"github.com/alexandrosbouzalas/carb/internal/store"
	"github.com/alexandrosbouzalas/carb/internal/worker"

	"github.com/dustin/go-humanize"
)

const (
	exitUsage      = 64
	exitNoDep      = 69
	exitRunFailure = 1
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	startArg, mode, refFile, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "carb: %v\n", err)
		fmt.Fprintln(os.Stderr, "usage: carb <start_dir> [--full | <ref_file>]")
		return exitUsage
	}

	startDir, err := pathutil.Normalize(startArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "carb: %v\n", err)
		return exitUsage
	}

	var cutoff time.Time
	if mode == enumerate.Incremental {
		fi, err := os.Stat(refFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "carb: reference file %q: %v\n", refFile, err)
			return exitUsage
		}
		cutoff = fi.ModTime()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "carb: %v\n", err)
		return exitUsage
	}
	if err := cfg.EnsureLayout(); err != nil {
		fmt.Fprintf(os.Stderr, "carb: %v\n", err)
		return exitRunFailure
	}

	codec, codecAvailable := parity.NewPar2Codec()
	if cfg.ParityEnabled && !codecAvailable {
		fmt.Fprintln(os.Stderr, "carb: warning: par2 not found in PATH; parity sets will be skipped")
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "carb: %v\n", err)
		return exitRunFailure
	}

	start := time.Now()
	runDir, err := journal.RunDir(cfg.ManifestRoot(), start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "carb: %v\n", err)
		return exitRunFailure
	}

	workerLogs := make([]*journal.WorkerLog, cfg.Jobs)
	for i := range workerLogs {
		wl, err := journal.NewWorkerLog(runDir, fmt.Sprintf("w%d", i))
		if err != nil {
			fmt.Fprintf(os.Stderr, "carb: %v\n", err)
			return exitRunFailure
		}
		workerLogs[i] = wl
	}
	defer func() {
		for _, wl := range workerLogs {
			wl.Close()
		}
	}()

	creator := &parity.Creator{ParityDir: cfg.ParityDir(), Codec: codec}

	var (
		entriesMu sync.Mutex
		entries   []restore.Entry
		created   []blobid.ID
		ingested  int
		deduped   int
		bytesSeen int64
	)

	handle := func(ctx context.Context, workerID int, path string) error {
		rel, err := pathutil.Rel(path, startDir)
		if err != nil {
			return err
		}

		fi, err := os.Stat(path)
		if err != nil {
			return err
		}

		result, err := ingest.Stream(path, cfg.TmpDir)
		if err != nil {
			if _, ok := err.(*ingest.ReadError); ok {
				return err
			}
			return worker.AsFatal(err)
		}

		id := blobid.FromSum(result.Size, result.Sum)
		blobPath := filepath.Join(cfg.BlobDir(), id.String())

		outcome, err := store.Install(result.StagingPath, id, cfg.BlobDir())
		if err != nil {
			return err
		}

		var mime string
		if cfg.EnableMIME {
			mime = sniffMIME(blobPath, path)
		}

		if cfg.ParityEnabled {
			plan := parity.Compute(result.Size, parity.PlanInput{
				BlockSize:            cfg.ParityBlockSize,
				Redundancy:           cfg.ParityRedundancy,
				RedundancyConfigured: cfg.RedundancyConfigured,
			})
			parOutcome, parErr := creator.CreateIfAbsent(ctx, id, blobPath, plan)
			if parErr != nil {
				fmt.Fprintf(os.Stderr, "carb: parity for %s: %v\n", id, parErr)
			} else if parOutcome == parity.Created {
				entriesMu.Lock()
				created = append(created, id)
				entriesMu.Unlock()
			}
		}

		rec := journal.Record{
			BlobID:         id,
			SourceCwd:      cwd,
			SourceStartDir: startDir,
			SourceAbsPath:  path,
			RelativePath:   rel,
			Size:           result.Size,
			MTime:          fi.ModTime(),
			Mode:           fi.Mode(),
			MIME:           mime,
			Outcome:        outcome,
		}
		if err := workerLogs[workerID].Record(rec); err != nil {
			return worker.AsFatal(err)
		}

		entriesMu.Lock()
		entries = append(entries, restore.Entry{
			BlobID:    id,
			StartBase: filepath.Base(startDir),
			RelPath:   rel,
		})
		if outcome == store.Ingested {
			ingested++
		} else {
			deduped++
		}
		bytesSeen += result.Size
		entriesMu.Unlock()

		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	paths, warnings := enumerate.Enumerate(ctx, enumerate.Options{
		StartDir:     startDir,
		Mode:         mode,
		CutoffMtime:  cutoff,
		ExcludeGlobs: cfg.ExcludeGlobs,
		InternalDirs: cfg.InternalDirs(),
	})

	var warnWG sync.WaitGroup
	warnWG.Add(1)
	go func() {
		defer warnWG.Done()
		for w := range warnings {
			fmt.Fprintf(os.Stderr, "carb: warning: %s\n", w)
		}
	}()

	runErr := worker.Run(ctx, cfg.Jobs, paths, handle, func(item string, err error) {
		fmt.Fprintf(os.Stderr, "carb: %s: %v\n", item, err)
	})
	// On a fatal error, worker.Run returns before paths is drained; cancel
	// so the enumerator's blocked send unblocks, closes both channels, and
	// warnWG.Wait below doesn't hang forever.
	cancel()
	warnWG.Wait()

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "carb: aborted: %v\n", runErr)
		return exitRunFailure
	}

	if err := journal.WriteSettings(runDir, cfg.Settings()); err != nil {
		fmt.Fprintf(os.Stderr, "carb: %v\n", err)
	}
	if err := journal.WriteStartTime(runDir, start); err != nil {
		fmt.Fprintf(os.Stderr, "carb: %v\n", err)
	}
	if err := journal.WriteStartFolder(runDir, startDir); err != nil {
		fmt.Fprintf(os.Stderr, "carb: %v\n", err)
	}
	if err := journal.WritePar2Created(runDir, created); err != nil {
		fmt.Fprintf(os.Stderr, "carb: %v\n", err)
	}

	for _, wl := range workerLogs {
		wl.Close()
	}
	if _, err := journal.Collate(runDir, cfg.GlobalIndexPath()); err != nil {
		fmt.Fprintf(os.Stderr, "carb: %v\n", err)
	}

	journalMode := journal.Full
	if mode == enumerate.Incremental {
		journalMode = journal.Incremental
	}
	if err := journal.AppendIngestedFoldersLog(cfg.IngestedFoldersLogPath(), start, cwd, startDir, cfg.Comment, journalMode, cutoff); err != nil {
		fmt.Fprintf(os.Stderr, "carb: %v\n", err)
	}

	if err := restore.Emit(filepath.Join(runDir, "recover"), cfg.BlobDir(), cfg.ParityDir(), entries); err != nil {
		fmt.Fprintf(os.Stderr, "carb: %v\n", err)
	}

	fmt.Fprintf(os.Stderr, "carb: %d ingested, %d deduped, %s processed\n",
		ingested, deduped, humanize.Bytes(uint64(bytesSeen)))

	return 0
}

func parseArgs(args []string) (startDir string, mode enumerate.Mode, refFile string, err error) {
	switch len(args) {
	case 1:
		return args[0], enumerate.Full, "", nil
	case 2:
		if args[1] == "--full" {
			return args[0], enumerate.Full, "", nil
		}
		return args[0], enumerate.Incremental, args[1], nil
	default:
		return "", 0, "", fmt.Errorf("expected 1 or 2 arguments, got %d", len(args))
	}
}

func sniffMIME(blobPath, originalPath string) string {
	f, err := os.Open(blobPath)
	if err != nil {
		return ""
	}
	defer f.Close()
	header := make([]byte, mimetype.HeaderSize)
	n, _ := f.Read(header)
	return mimetype.Sniff(header[:n], originalPath)
}
