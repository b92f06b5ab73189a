package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"
)

// minFreeMemoryMB is the headroom below which doctor warns: turns fan
// out capability goroutines and an exec generator forks per call.
const minFreeMemoryMB = 256

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the engine's environment",
	Long:  "Verify storage paths, generator availability, and host resources.",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Println("Checking environment...")
	fmt.Println()

	ok := true

	// State path writability.
	if cfg.State.Backend == "memory" {
		fmt.Println("  ○ state: memory backend, nothing persisted")
	} else {
		dir := cfg.State.Path
		if cfg.State.Backend == "sqlite" {
			dir = filepath.Dir(cfg.State.Path)
		}
		if err := checkWritable(dir); err != nil {
			fmt.Printf("  ✗ state path %s: %v\n", dir, err)
			ok = false
		} else {
			fmt.Printf("  ✓ state path %s writable (%s backend)\n", dir, cfg.State.Backend)
		}
	}

	// Generator availability.
	switch cfg.Generator.Backend {
	case "exec":
		if _, err := exec.LookPath(cfg.Generator.Path); err != nil {
			fmt.Printf("  ✗ generator command %q not found\n", cfg.Generator.Path)
			ok = false
		} else {
			fmt.Printf("  ✓ generator command %q found\n", cfg.Generator.Path)
		}
	default:
		fmt.Println("  ✓ generator: rule backend, no external dependency")
	}

	// Library root.
	if err := checkWritable(cfg.Library.Root); err != nil {
		fmt.Printf("  ○ library root %s: %v (references disabled)\n", cfg.Library.Root, err)
	} else {
		fmt.Printf("  ✓ library root %s\n", cfg.Library.Root)
	}

	// Host resources.
	if vm, err := mem.VirtualMemory(); err == nil {
		availMB := vm.Available / (1 << 20)
		if availMB < minFreeMemoryMB {
			fmt.Printf("  ✗ memory: %d MB available, below the %d MB headroom\n", availMB, minFreeMemoryMB)
			ok = false
		} else {
			fmt.Printf("  ✓ memory: %d MB available\n", availMB)
		}
	}
	if usage, err := disk.Usage("."); err == nil {
		fmt.Printf("  ✓ disk: %.1f%% used\n", usage.UsedPercent)
	}

	fmt.Println()
	if !ok {
		return fmt.Errorf("environment checks failed")
	}
	fmt.Println("All checks passed.")
	return nil
}

// checkWritable verifies the directory exists (creating it) and accepts
// a write.
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o640); err != nil {
		return err
	}
	return os.Remove(probe)
}
