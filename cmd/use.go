package cmd

import (
	"ccsw/config"
	"ccsw/config/models"
	"github.com/spf13/cobra"
)

type switchFlags struct {
	dryRun   bool
	noBackup bool
}

func (f *switchFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "只打印合并后的配置，不写入文件")
	cmd.Flags().BoolVar(&f.noBackup, "no-backup", false, "写入前不备份原文件")
}

func (f *switchFlags) switcher(cmd *cobra.Command) (*config.Switcher, error) {
	manager, err := newManager(cmd)
	if err != nil {
		return nil, err
	}
	return config.NewSwitcher(manager, config.SwitchOptions{
		Backup: !f.noBackup,
		DryRun: f.dryRun,
		Out:    stdout(cmd),
	}), nil
}

// report prints the outcome of a switch; dry runs have already printed the files
func (f *switchFlags) report(cmd *cobra.Command, tool string, sel *models.ActiveSelection) {
	if f.dryRun {
		printWarn(stderr(cmd), "dry run: 未写入任何文件")
		return
	}
	printSuccess(stderr(cmd), "%s 已切换到 %s", tool, sel.SiteName)
	describeSelection(stderr(cmd), sel)
}

func newUseCmd() *cobra.Command {
	var flags switchFlags
	var token string

	cmd := &cobra.Command{
		Use:     "use <site>",
		Aliases: []string{"claude"},
		Short:   "切换 Claude Code 到指定站点",
		Long: `将站点的 claude 配置合并到 Claude Code 的 settings.json

站点有多个 token 时使用 --token 指定名称，否则在终端中交互选择。`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.switcher(cmd)
			if err != nil {
				return err
			}
			sel, err := s.UseClaude(args[0], token, picker())
			if err != nil {
				return err
			}
			flags.report(cmd, "Claude Code", sel)
			return nil
		},
	}
	cmd.Flags().StringVarP(&token, "token", "t", "", "使用的 token 名称")
	flags.register(cmd)
	return cmd
}

func newCodexCmd() *cobra.Command {
	var flags switchFlags
	var provider, key string

	cmd := &cobra.Command{
		Use:   "codex <site>",
		Short: "切换 Codex 到指定站点",
		Long: `根据站点的 codex 配置重新生成 config.toml 并写入 auth.json

config.toml 中与站点无关的段落和注释会被保留。`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.switcher(cmd)
			if err != nil {
				return err
			}
			sel, err := s.UseCodex(args[0], provider, key, picker())
			if err != nil {
				return err
			}
			flags.report(cmd, "Codex", sel)
			return nil
		},
	}
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "使用的 provider")
	cmd.Flags().StringVarP(&key, "key", "k", "", "使用的 API key 名称")
	flags.register(cmd)
	return cmd
}

func newIflowCmd() *cobra.Command {
	var flags switchFlags

	cmd := &cobra.Command{
		Use:   "iflow <site>",
		Short: "切换 iFlow 到指定站点",
		Long:  `将站点的 iflow 配置写入 ~/.iflow/settings.json，其他设置保持不变`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.switcher(cmd)
			if err != nil {
				return err
			}
			sel, err := s.UseIflow(args[0])
			if err != nil {
				return err
			}
			flags.report(cmd, "iFlow", sel)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
