package cmd

import (
	"github.com/spf13/cobra"
)

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <site>",
		Aliases: []string{"rm"},
		Short:   "删除站点",
		Long:    "删除站点；如果它正被某个工具使用，对应的当前配置记录也会被清除",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := newManager(cmd)
			if err != nil {
				return err
			}
			if err := manager.RemoveSite(args[0]); err != nil {
				return err
			}
			printSuccess(stderr(cmd), "已删除站点 %s", args[0])
			return nil
		},
	}
}
