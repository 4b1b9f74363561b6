package sandbox

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"

	"github.com/isdmx/coderunner/config"
)

// Policy holds the resource limits applied to every sandbox. It is a value
// type: executions needing different limits get their own copy.
type Policy struct {
	CPUShare            string        // --cpus, e.g. "0.25"
	MemoryLimit         string        // --memory, e.g. "128m"
	PidsLimit           int           // --pids-limit
	FileDescriptorLimit string        // --ulimit nofile=<soft:hard>
	NetworkDisabled     bool          // --network none
	Timeout             time.Duration // wall clock, measured from launch
	KillTimeout         time.Duration // bound on one forced termination
	MaxOutputLength     int           // characters kept per stream
	TruncationMarker    string
}

// DefaultPolicy returns safe defaults for code execution.
func DefaultPolicy() Policy {
	return Policy{
		CPUShare:            "0.25",
		MemoryLimit:         "128m",
		PidsLimit:           100,
		FileDescriptorLimit: "64:64",
		NetworkDisabled:     true,
		Timeout:             60 * time.Second,
		KillTimeout:         5 * time.Second,
		MaxOutputLength:     1000,
		TruncationMarker:    "...\n(truncated)",
	}
}

// NewPolicy builds a policy from the sandbox section of the configuration.
func NewPolicy(cfg *config.Config) Policy {
	return Policy{
		CPUShare:            cfg.Sandbox.CPUShare,
		MemoryLimit:         cfg.Sandbox.MemoryLimit,
		PidsLimit:           cfg.Sandbox.PidsLimit,
		FileDescriptorLimit: cfg.Sandbox.FileDescriptorLimit,
		NetworkDisabled:     cfg.Sandbox.DisableNetwork,
		Timeout:             cfg.GetTimeout(),
		KillTimeout:         cfg.GetKillTimeout(),
		MaxOutputLength:     cfg.Sandbox.MaxOutputLength,
		TruncationMarker:    cfg.Sandbox.TruncationMarker,
	}
}

// Validate checks that the limits can be handed to the container engine.
func (p Policy) Validate() error {
	if p.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got: %s", p.Timeout)
	}
	if p.KillTimeout <= 0 {
		return fmt.Errorf("kill timeout must be positive, got: %s", p.KillTimeout)
	}
	if p.MaxOutputLength <= 0 {
		return fmt.Errorf("max output length must be positive, got: %d", p.MaxOutputLength)
	}
	if p.PidsLimit <= 0 {
		return fmt.Errorf("pids limit must be positive, got: %d", p.PidsLimit)
	}

	cpus, err := strconv.ParseFloat(p.CPUShare, 64)
	if err != nil || cpus <= 0 {
		return fmt.Errorf("invalid cpu share: %q", p.CPUShare)
	}

	mem, err := units.RAMInBytes(p.MemoryLimit)
	if err != nil {
		return fmt.Errorf("invalid memory limit %q: %w", p.MemoryLimit, err)
	}
	if mem <= 0 {
		return fmt.Errorf("memory limit must be positive, got: %q", p.MemoryLimit)
	}

	if err := validateUlimit(p.FileDescriptorLimit); err != nil {
		return fmt.Errorf("invalid file descriptor limit %q: %w", p.FileDescriptorLimit, err)
	}

	return nil
}

// validateUlimit accepts "soft" or "soft:hard" with soft <= hard.
func validateUlimit(limit string) error {
	softStr, hardStr, hasHard := strings.Cut(limit, ":")
	soft, err := strconv.ParseInt(softStr, 10, 64)
	if err != nil || soft < 0 {
		return fmt.Errorf("soft limit must be a non-negative integer")
	}
	if !hasHard {
		return nil
	}
	hard, err := strconv.ParseInt(hardStr, 10, 64)
	if err != nil || hard < 0 {
		return fmt.Errorf("hard limit must be a non-negative integer")
	}
	if soft > hard {
		return fmt.Errorf("soft limit %d exceeds hard limit %d", soft, hard)
	}
	return nil
}

// TruncateOutput applies the policy's output limit to one stream.
func (p Policy) TruncateOutput(s string) string {
	return Truncate(s, p.MaxOutputLength, p.TruncationMarker)
}

// Truncate keeps the first max characters of s and appends marker when s is
// longer than max. Applying it to its own output is a no-op.
func Truncate(s string, max int, marker string) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + marker
}
