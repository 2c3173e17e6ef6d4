package steps

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Runner executes build steps in index order.
type Runner struct {
	manager *Manager

	// Out receives progress lines and, for steps with force_verbose, the
	// step's own output. Defaults to os.Stdout.
	Out io.Writer
}

// NewRunner creates a runner over the given manager.
func NewRunner(m *Manager) *Runner {
	return &Runner{manager: m, Out: os.Stdout}
}

// Run executes every step in index order. A failing step aborts the run
// when its break_on_error flag is set; otherwise the failure is reported
// and the run continues.
func (r *Runner) Run() error {
	for _, step := range r.manager.Steps() {
		fmt.Fprintf(r.Out, "[%d] %s\n", step.Index, step.Description)

		if err := r.runStep(step); err != nil {
			if step.BreakOnError {
				return fmt.Errorf("步骤 %d (%s) 执行失败: %w", step.Index, step.Description, err)
			}
			fmt.Fprintf(r.Out, "步骤 %d 失败，继续执行后续步骤: %v\n", step.Index, err)
		}
	}
	return nil
}

func (r *Runner) runStep(step Step) error {
	command, err := ExpandEnv(step.ExecuteCommand)
	if err != nil {
		return err
	}
	workPath, err := ExpandEnv(step.WorkPath)
	if err != nil {
		return err
	}

	fields := strings.Fields(command)
	if len(fields) == 0 {
		return fmt.Errorf("执行命令为空")
	}

	cmd := exec.Command(fields[0], fields[1:]...)
	cmd.Dir = workPath
	if step.ForceVerbose {
		cmd.Stdout = r.Out
		cmd.Stderr = r.Out
	}
	return cmd.Run()
}
