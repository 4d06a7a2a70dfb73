// Package restore emits a standalone POSIX shell restore script per run,
// in the spirit of the fmt.Sprintf-templated helper scripts dev/devcam
// writes to disk (see hook.go's hookScript). The generated script is
// handed its data table inline so it never depends on the carb binary,
// the module's Go runtime, or the run manifest surviving intact; it
// only assumes the blob and parity directories are still reachable at
// the paths baked in at emission time.
package restore

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/alexandrosbouzalas/carb/internal/blobid"
)

// Entry is one restorable file: the blob backing it, the basename of
// its original start directory, and its path relative to that
// directory.
type Entry struct {
	BlobID    blobid.ID
	StartBase string
	RelPath   string
}

// Emit renders the restore script for one run to path, with mode 0700
// so it is directly executable. blobDir and parityDir are baked into
// the script as absolute paths; they must remain valid on whatever host
// the script is eventually run on.
func Emit(path, blobDir, parityDir string, entries []Entry) error {
	var data strings.Builder
	for _, e := range entries {
		if strings.ContainsAny(e.StartBase, ":\n") || strings.ContainsAny(e.RelPath, ":\n") {
			return fmt.Errorf("recover: entry %q/%q contains a reserved character", e.StartBase, e.RelPath)
		}
		fmt.Fprintf(&data, "%s:%s:%s\n", e.BlobID, e.StartBase, e.RelPath)
	}

	var buf strings.Builder
	if err := scriptTemplate.Execute(&buf, scriptVars{
		BlobDir:   blobDir,
		ParityDir: parityDir,
		Entries:   data.String(),
	}); err != nil {
		return fmt.Errorf("recover: rendering script: %v", err)
	}

	if err := os.WriteFile(path, []byte(buf.String()), 0o700); err != nil {
		return fmt.Errorf("recover: writing %s: %v", path, err)
	}
	return nil
}

type scriptVars struct {
	BlobDir   string
	ParityDir string
	Entries   string
}

var scriptTemplate = template.Must(template.New("recover").Parse(recoverScript))

// recoverScript is the restore program body. It is POSIX sh so it runs
// unmodified on any recovery host with a shell and (optionally) par2;
// the emitted script degrades gracefully to a warning plus raw copy when
// par2 is absent, per the tool's documented fallback contract.
const recoverScript = `#!/bin/sh
# Generated by carb. Restores the files recorded in one run.
set -eu

BLOB_DIR={{printf "%q" .BlobDir}}
PARITY_DIR={{printf "%q" .ParityDir}}

: "${CARB_RECOVER_TO_DIR:?CARB_RECOVER_TO_DIR must be set}"

mode=all
if [ "${1:-}" = "--damaged" ]; then
	mode=damaged
fi

have_par2=0
if command -v par2 >/dev/null 2>&1; then
	have_par2=1
else
	echo "warning: par2 not found on PATH; restoring without verify/repair" >&2
fi

verified_clean=0
repaired=0
no_parity_copied=0
failed=0
skipped_clean=0
skipped_no_parity=0

restore_one() {
	blob_id=$1
	start_base=$2
	rel_path=$3

	blob_path="$BLOB_DIR/$blob_id"
	parity_base="$PARITY_DIR/$blob_id.par2"
	dest="$CARB_RECOVER_TO_DIR/$start_base/$rel_path"

	if [ ! -f "$blob_path" ]; then
		echo "missing blob for $start_base/$rel_path ($blob_id)" >&2
		failed=$((failed + 1))
		return
	fi

	usable_parity=0
	if [ "$have_par2" -eq 1 ] && [ -f "$parity_base" ]; then
		usable_parity=1
	fi

	status=no_parity
	if [ "$usable_parity" -eq 1 ]; then
		if par2 verify -q "$parity_base" "$blob_path" >/dev/null 2>&1; then
			status=clean
		elif par2 repair -q "$parity_base" "$blob_path" >/dev/null 2>&1; then
			status=repaired
		else
			status=unrepaired
			echo "repair failed for $start_base/$rel_path ($blob_id); copying as-is" >&2
		fi
	fi

	if [ "$status" = "unrepaired" ]; then
		failed=$((failed + 1))
	fi

	case "$mode:$status" in
	damaged:clean)
		skipped_clean=$((skipped_clean + 1))
		return
		;;
	damaged:no_parity)
		skipped_no_parity=$((skipped_no_parity + 1))
		return
		;;
	damaged:unrepaired)
		return
		;;
	esac

	mkdir -p "$(dirname "$dest")"
	if ! cp "$blob_path" "$dest"; then
		echo "failed to write $dest" >&2
		failed=$((failed + 1))
		return
	fi

	case "$status" in
	clean) verified_clean=$((verified_clean + 1)) ;;
	repaired) repaired=$((repaired + 1)) ;;
	no_parity) no_parity_copied=$((no_parity_copied + 1)) ;;
	esac
}

while IFS=: read -r blob_id start_base rel_path; do
	[ -n "$blob_id" ] || continue
	restore_one "$blob_id" "$start_base" "$rel_path"
done <<'CARB_ENTRIES'
{{.Entries -}}
CARB_ENTRIES

echo "verified-clean:      $verified_clean"
echo "repaired:             $repaired"
echo "no-parity-copied:     $no_parity_copied"
echo "failed:               $failed"
echo "skipped-clean:        $skipped_clean"
echo "skipped-no-parity:    $skipped_no_parity"
`
