package cmd

import (
	"fmt"
	"strings"

	"ccsw/config"
	"ccsw/internal/tools"
	"github.com/spf13/cobra"
)

func newRestoreCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:       "restore <tool>",
		Short:     "从最近的备份恢复工具的配置文件",
		Long:      "用切换前自动保存的最近一份备份恢复工具的配置文件 (claude, codex, iflow)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: tools.List(),
		RunE: func(cmd *cobra.Command, args []string) error {
			tool, err := tools.Get(args[0])
			if err != nil {
				return fmt.Errorf("%w (支持: %s)", err, strings.Join(tools.List(), ", "))
			}
			manager, err := newManager(cmd)
			if err != nil {
				return err
			}

			s := config.NewSwitcher(manager, config.SwitchOptions{DryRun: dryRun, Out: stdout(cmd)})
			used, err := s.Restore(tool.Name())
			if err != nil {
				return err
			}
			if dryRun {
				return nil
			}
			printSuccess(stderr(cmd), "已恢复 %s 的配置", tool.DisplayName())
			for _, b := range used {
				fmt.Fprintln(stderr(cmd), dimStyle.Render("  "+b))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "只显示将使用的备份")
	return cmd
}
