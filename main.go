package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stackvm/vm"
)

var (
	traceFlag    bool
	dumpPoolFlag bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "stackvm",
		Short: "stackvm runs a stack-based bytecode image",
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <image>",
		Short: "load and execute a bytecode image, reporting its exit status",
		Args:  cobra.ExactArgs(1),
		RunE:  runImage,
	}
	cmd.Flags().BoolVar(&traceFlag, "trace", false, "print a colorized per-instruction trace")
	cmd.Flags().BoolVar(&dumpPoolFlag, "dump-pool", false, "print the parsed constant pool before running")
	return cmd
}

func runImage(cmd *cobra.Command, args []string) error {
	img, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	if dumpPoolFlag {
		dumpPool(img)
	}

	opts := []vm.Option{
		vm.WithStdin(os.Stdin),
		vm.WithStdout(os.Stdout),
	}
	if traceFlag {
		opts = append(opts, vm.WithTrace(os.Stderr))
	}

	status := vm.Launch(img, opts...)
	fmt.Fprintf(os.Stderr, "exit status: %d (%s)\n", uint32(status), status)
	if status != vm.ExitSuccess {
		os.Exit(int(status))
	}
	return nil
}

// dumpPool prints the raw u64 value of every whole 8-byte slot from
// PoolOffset to the end of the image (the image carries no pool length,
// so bytes past the pool print as slots too), a debugging aid independent
// of Launch — it never constructs a VM and cannot itself report an
// ExitStatus.
func dumpPool(img []byte) {
	if uint64(len(img)) < vm.HeaderSize {
		fmt.Fprintln(os.Stderr, "pool: image shorter than header size")
		return
	}
	pool := img[vm.PoolOffset:]
	for i := 0; i+8 <= len(pool); i += 8 {
		slot := i / 8
		value := uint64(pool[i]) | uint64(pool[i+1])<<8 | uint64(pool[i+2])<<16 | uint64(pool[i+3])<<24 |
			uint64(pool[i+4])<<32 | uint64(pool[i+5])<<40 | uint64(pool[i+6])<<48 | uint64(pool[i+7])<<56
		fmt.Fprintf(os.Stderr, "pool[%d] = 0x%x\n", slot, value)
	}
}
