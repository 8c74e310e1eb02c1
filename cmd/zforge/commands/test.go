package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/zforge/internal/hwtest"
	"github.com/dyluth/zforge/internal/printer"
	"github.com/dyluth/zforge/internal/toolchain"
	"github.com/dyluth/zforge/pkg/boardlock"
)

var (
	testImage string
)

var testCmd = &cobra.Command{
	Use:   "test BOARD_ID VARIANT",
	Short: "Run the acceptance test on a bench board",
	Long: `Run one hardware test: lease the board from the lock server, power
cycle it, deploy the built boot image, wait out the boot, run the
board's acceptance test command, then power off and release.

BOARD_ID names a physical unit in the lab section of zforge.yml; its
target is fixed by the bench wiring. VARIANT picks which built image
to deploy, so the pair must have been built first:

  zforge build zc706/nist_qc2
  zforge test zc706-1 nist_qc2

A failing test is a verdict, not a tooling error: the command reports
the reason and exits nonzero. Interrupting a run still powers the
board off and releases the lease.`,
	Args: cobra.ExactArgs(2),
	RunE: runTest,
}

func init() {
	testCmd.Flags().StringVar(&testImage, "image", "", "Boot image to deploy (defaults to the pair's built sd image)")
	rootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	boardID, variant := args[0], args[1]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Lab == nil {
		return printer.Error(
			"no lab configured",
			"Hardware testing needs a lab section in zforge.yml naming the lock server, deploy host and bench boards.",
			[]string{"A fresh zforge.yml carries a commented lab section to start from:\n  zforge init"},
		)
	}

	labBoard, ok := cfg.Lab.Boards[boardID]
	if !ok {
		known := make([]string, 0, len(cfg.Lab.Boards))
		for id := range cfg.Lab.Boards {
			known = append(known, id)
		}
		sort.Strings(known)
		return printer.Error(
			fmt.Sprintf("unknown board: %s", boardID),
			fmt.Sprintf("Configured bench boards: %s", strings.Join(known, ", ")),
			[]string{"Declare the board under lab.boards in zforge.yml."},
		)
	}

	image := testImage
	if image == "" {
		image = filepath.Join(cfg.OutputDir, labBoard.Target, variant, "sd", "boot.bin")
	}

	var recorder hwtest.RunRecorder
	if cfg.RegistryURL() != "" {
		client, err := openRegistry(cfg)
		if err != nil {
			return err
		}
		defer client.Close()
		recorder = client
	}

	orch := hwtest.New(hwtest.Options{
		Locker:   hwtest.NewLocker(boardlock.NewClient(cfg.Lab.LockServer)),
		Deployer: hwtest.NewDeployer(&toolchain.ExecRunner{}, cfg.Lab.Deploy),
		Exec:     &toolchain.ExecRunner{},
		Recorder: recorder,
	})

	printer.Step("testing %s/%s on %s\n", labBoard.Target, variant, boardID)

	outcome, err := orch.Run(ctx, hwtest.RunSpec{
		BoardID: boardID,
		Target:  labBoard.Target,
		Variant: variant,
		Image:   image,
		Power:   hwtest.NewRelayPower(labBoard.Power),
		Runner:  labBoard.Runner,
	})
	if err != nil {
		return err
	}

	if !outcome.Passed() {
		return printer.Error(
			fmt.Sprintf("test failed on %s", boardID),
			outcome.Reason,
			[]string{fmt.Sprintf("Inspect past runs:\n  zforge results --board %s", boardID)},
		)
	}

	printer.Success("%s/%s passed on %s in %s (run %s)\n",
		labBoard.Target, variant, boardID, outcome.Duration.Round(time.Second), outcome.RunID)
	return nil
}
