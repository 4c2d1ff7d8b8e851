package cmd

import (
	"fmt"
	"io"
	"time"

	configsync "ccsw/config/sync"
	"ccsw/internal/tools"
	"ccsw/internal/utils"
	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "检查各工具的配置文件与记录是否一致",
		Long: `读取 Claude Code、Codex 和 iFlow 的配置文件，找出它们实际指向的站点，
并与站点配置文件中的记录比较。

使用 --write 将匹配到的站点写回记录。`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := newManager(cmd)
			if err != nil {
				return err
			}
			store, err := manager.LoadOrEmpty()
			if err != nil {
				return err
			}

			reports := configsync.Reconcile(manager.Paths(), store, tools.List())
			printSyncReports(stdout(cmd), reports)

			if !write {
				return nil
			}
			changed := configsync.Apply(store, reports, time.Now())
			if changed == 0 {
				fmt.Fprintln(stderr(cmd), dimStyle.Render("记录无需更新"))
				return nil
			}
			if err := manager.Save(store); err != nil {
				return err
			}
			printSuccess(stderr(cmd), "已更新 %d 条记录", changed)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "将检测结果写回站点配置文件")
	return cmd
}

func printSyncReports(w io.Writer, reports []configsync.Report) {
	for _, r := range reports {
		tool, _ := tools.Get(r.Tool)
		fmt.Fprintln(w, headerStyle.Render(tool.DisplayName()+":"))

		switch {
		case r.Err != nil:
			fmt.Fprintln(w, warnStyle.Render("  无法读取: "+r.Err.Error()))
			continue
		case r.State.IsZero():
			fmt.Fprintln(w, dimStyle.Render("  配置文件中没有站点信息"))
		default:
			fmt.Fprintf(w, "  文件: %s", r.State.BaseURL)
			if r.State.Provider != "" {
				fmt.Fprintf(w, " (provider %s)", r.State.Provider)
			}
			if r.State.Credential != "" {
				fmt.Fprintf(w, " %s", utils.MaskAPIKey(r.State.Credential))
			}
			fmt.Fprintln(w)
		}

		if r.Match != nil {
			match := r.Match.Site
			if r.Match.CredentialName != "" {
				match += " / " + r.Match.CredentialName
			}
			fmt.Fprintf(w, "  匹配站点: %s\n", match)
		} else if !r.State.IsZero() {
			fmt.Fprintln(w, warnStyle.Render("  没有匹配的站点"))
		}

		if r.Recorded != nil {
			fmt.Fprintf(w, "  记录: %s\n", r.Recorded.Site)
		}
		if r.InSync() {
			fmt.Fprintln(w, successStyle.Render("  ✓ 一致"))
		} else {
			fmt.Fprintln(w, warnStyle.Render("  ✗ 不一致"))
		}
	}
}
