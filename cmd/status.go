package cmd

import (
	"fmt"
	"io"

	"ccsw/config"
	"ccsw/config/models"
	"ccsw/internal/tools"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "显示各工具当前使用的站点",
		Long:  "显示站点配置文件中记录的 Claude Code、Codex 和 iFlow 当前配置",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := newManager(cmd)
			if err != nil {
				return err
			}
			store, err := manager.LoadOrEmpty()
			if err != nil {
				return err
			}
			printStatus(stdout(cmd), store)
			return nil
		},
	}
}

func printStatus(w io.Writer, store *models.Store) {
	for _, name := range tools.List() {
		tool, _ := tools.Get(name)
		fmt.Fprintln(w, headerStyle.Render(tool.DisplayName()+":"))

		sel := config.Active(store, name)
		if sel == nil {
			fmt.Fprintln(w, dimStyle.Render("  未配置"))
			continue
		}

		site := sel.SiteName
		if site != sel.Site {
			site += dimStyle.Render(" (" + sel.Site + ")")
		}
		if _, ok := store.Sites[sel.Site]; !ok {
			site += warnStyle.Render(" [站点已不存在]")
		}
		fmt.Fprintf(w, "  站点: %s\n", site)
		describeSelection(w, sel)
		if sel.UpdatedAt != "" {
			fmt.Fprintln(w, dimStyle.Render("  更新于: "+sel.UpdatedAt))
		}
	}
}
