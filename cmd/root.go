package cmd

import (
	"io"

	"ccsw/config"
	"ccsw/internal/logging"
	"github.com/spf13/cobra"
)

// Version information
var (
	version string
	commit  string
	date    string
)

// SetVersionInfo sets the version information
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

// NewRootCmd builds the ccsw command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ccsw",
		Short: "Claude Code / Codex / iFlow 站点配置切换工具",
		Long: `在多个 API 站点之间切换 Claude Code、Codex 和 iFlow 的配置

站点保存在 api_configs.json 中，切换时会合并写入各工具自己的配置文件，
保留其中与站点无关的设置。`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			file, _ := cmd.Flags().GetString("log-file")
			return logging.Setup(level, file)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Close()
		},
	}

	rootCmd.PersistentFlags().String("store", "", "站点配置文件路径 (默认 $CCSW_STORE 或 ~/.config/ccsw/api_configs.json)")
	rootCmd.PersistentFlags().String("log-level", "", "日志级别: debug, info, warn, error, quiet")
	rootCmd.PersistentFlags().String("log-file", "", "将日志写入文件 (自动轮转)")

	rootCmd.AddCommand(
		newListCmd(),
		newAddCmd(),
		newRemoveCmd(),
		newUseCmd(),
		newCodexCmd(),
		newIflowCmd(),
		newStatusCmd(),
		newSyncCmd(),
		newRestoreCmd(),
	)

	rootCmd.Version = version
	rootCmd.SetVersionTemplate(`ccsw {{.Version}}
Commit: ` + commit + `
Date: ` + date + `
`)
	return rootCmd
}

// Execute executes the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// newManager opens the store named by --store, or the default location
func newManager(cmd *cobra.Command) (*config.Manager, error) {
	paths, err := config.DefaultPaths()
	if err != nil {
		return nil, err
	}
	if store, _ := cmd.Flags().GetString("store"); store != "" {
		paths = paths.WithStore(store)
	}
	return config.NewManager(paths), nil
}

func stdout(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}

func stderr(cmd *cobra.Command) io.Writer {
	return cmd.ErrOrStderr()
}
