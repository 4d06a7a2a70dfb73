package parity

import (
	"context"
	"fmt"
	"os/exec"
)

// Codec is the capability interface for the forward-error-correction
// tool: an opaque create/verify/repair surface over a named parity-set
// base path, grounded in pkg/misc/pinentry's pattern of
// treating an external binary as a narrow capability behind exec.Command
// rather than linking its internals.
type Codec interface {
	// Create writes a parity set for input whose index file is outputBase
	// itself (a name ending in ".par2"), with its volume files beside it,
	// using the given block size and redundancy percentage.
	Create(ctx context.Context, blockSize int64, redundancy int, outputBase, input string) error
	// Verify reports whether input still matches the parity set at
	// outputBase.
	Verify(ctx context.Context, outputBase, input string) (ok bool, err error)
	// Repair attempts to reconstruct input in place from the parity set
	// at outputBase.
	Repair(ctx context.Context, outputBase, input string) error
}

// ErrToolMissing is returned by NewPar2Codec-produced codecs when the
// underlying binary cannot be found, so callers can apply the "no parity
// tool installed" fallback (warn, raw copy) instead of failing.
type ErrToolMissing struct {
	Bin string
}

func (e *ErrToolMissing) Error() string {
	return fmt.Sprintf("parity: %s not found in PATH", e.Bin)
}

// par2Codec shells out to a par2cmdline-compatible binary; the FEC
// algorithm itself is never implemented in-process.
type par2Codec struct {
	bin string
}

// NewPar2Codec resolves a par2-compatible binary from PATH. It does not
// fail if the binary is missing; the returned bool reports whether it
// was found. A Codec backed by a missing binary still satisfies the
// Codec interface, returning ErrToolMissing from every method, so
// callers that tolerate absent parity can use it unconditionally.
func NewPar2Codec() (codec Codec, available bool) {
	bin, _ := exec.LookPath("par2")
	return &par2Codec{bin: bin}, bin != ""
}

func (c *par2Codec) Create(ctx context.Context, blockSize int64, redundancy int, outputBase, input string) error {
	if c.bin == "" {
		return &ErrToolMissing{Bin: "par2"}
	}
	cmd := exec.CommandContext(ctx, c.bin, "create",
		"-q",
		fmt.Sprintf("-s%d", blockSize),
		fmt.Sprintf("-r%d", redundancy),
		"-a", outputBase,
		input,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("parity: par2 create: %v: %s", err, out)
	}
	return nil
}

func (c *par2Codec) Verify(ctx context.Context, outputBase, input string) (bool, error) {
	if c.bin == "" {
		return false, &ErrToolMissing{Bin: "par2"}
	}
	cmd := exec.CommandContext(ctx, c.bin, "verify", "-q", "-a", outputBase, input)
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() != 0 {
			return false, nil
		}
		return false, fmt.Errorf("parity: par2 verify: %v", err)
	}
	return true, nil
}

func (c *par2Codec) Repair(ctx context.Context, outputBase, input string) error {
	if c.bin == "" {
		return &ErrToolMissing{Bin: "par2"}
	}
	cmd := exec.CommandContext(ctx, c.bin, "repair", "-q", "-a", outputBase, input)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("parity: par2 repair: %v: %s", err, out)
	}
	return nil
}
