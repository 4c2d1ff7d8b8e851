package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"ccsw/config"
	"ccsw/config/models"
	"ccsw/internal/tools"
	"ccsw/internal/utils"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type credentialView struct {
	Name   string `json:"name" yaml:"name"`
	Key    string `json:"key" yaml:"key"`
	Active bool   `json:"active,omitempty" yaml:"active,omitempty"`
}

type providerView struct {
	Key     string `json:"key" yaml:"key"`
	BaseURL string `json:"baseUrl" yaml:"baseUrl"`
	Active  bool   `json:"active,omitempty" yaml:"active,omitempty"`
}

type toolView struct {
	Tool        string           `json:"tool" yaml:"tool"`
	BaseURL     string           `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
	Model       string           `json:"model,omitempty" yaml:"model,omitempty"`
	Providers   []providerView   `json:"providers,omitempty" yaml:"providers,omitempty"`
	Credentials []credentialView `json:"credentials" yaml:"credentials"`
	Active      bool             `json:"active" yaml:"active"`
}

type siteView struct {
	Site        string     `json:"site" yaml:"site"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Tools       []toolView `json:"tools" yaml:"tools"`
}

func (v siteView) active() bool {
	for _, t := range v.Tools {
		if t.Active {
			return true
		}
	}
	return false
}

func newListCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "列出所有站点",
		Long:  "列出所有站点、它们支持的工具和脱敏后的凭据，* 表示当前使用中",
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
			views := buildSiteViews(store)

			switch output {
			case "", "table":
				printSiteTable(stdout(cmd), views)
				return nil
			case "json":
				data, err := json.MarshalIndent(views, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout(cmd), string(data))
				return nil
			case "yaml":
				enc := yaml.NewEncoder(stdout(cmd))
				enc.SetIndent(2)
				if err := enc.Encode(views); err != nil {
					return err
				}
				return enc.Close()
			default:
				return fmt.Errorf("unsupported output format: %s (use table, json or yaml)", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "输出格式: table, json, yaml")
	return cmd
}

func buildSiteViews(store *models.Store) []siteView {
	views := make([]siteView, 0, len(store.Sites))
	for _, key := range config.SiteKeys(store) {
		site := store.Sites[key]
		view := siteView{Site: key, Description: site.Description, Tools: []toolView{}}

		for _, name := range tools.Served(site) {
			tool, _ := tools.Get(name)
			sel := config.Active(store, name)
			tv := toolView{
				Tool:        name,
				Active:      sel != nil && sel.Site == key,
				Credentials: []credentialView{},
			}
			for _, c := range tool.Credentials(site) {
				tv.Credentials = append(tv.Credentials, credentialView{
					Name:   c.Name,
					Key:    utils.MaskAPIKey(c.Value),
					Active: tv.Active && sel.Secret() == c.Value,
				})
			}

			switch name {
			case config.ToolClaude:
				tv.BaseURL = site.Claude.BaseURL
			case config.ToolCodex:
				tv.Model = site.Codex.Model
				for _, p := range site.Codex.Providers {
					tv.Providers = append(tv.Providers, providerView{
						Key:     p.Key,
						BaseURL: p.Config.BaseURL,
						Active:  tv.Active && sel.Provider == p.Key,
					})
				}
			case config.ToolIflow:
				tv.BaseURL = site.Iflow.BaseURL
				tv.Model = site.Iflow.ModelName
			}
			view.Tools = append(view.Tools, tv)
		}
		views = append(views, view)
	}
	return views
}

func printSiteTable(w io.Writer, views []siteView) {
	if len(views) == 0 {
		fmt.Fprintln(w, "没有已保存的站点，使用 ccsw add 添加")
		return
	}

	fmt.Fprintln(w, headerStyle.Render("站点列表:"))
	for _, v := range views {
		marker := " "
		if v.active() {
			marker = "*"
		}
		title := v.Site
		if v.Description != "" {
			title += dimStyle.Render(" (" + v.Description + ")")
		}
		fmt.Fprintf(w, "%s %s\n", marker, title)

		for _, t := range v.Tools {
			line := fmt.Sprintf("    %-7s", t.Tool)
			if t.BaseURL != "" {
				line += " " + t.BaseURL
			}
			for _, p := range t.Providers {
				line += " " + markActive(p.Key+"="+p.BaseURL, p.Active)
			}
			if t.Model != "" {
				line += dimStyle.Render(" [" + t.Model + "]")
			}
			fmt.Fprintln(w, line)

			if len(t.Credentials) > 0 {
				creds := make([]string, 0, len(t.Credentials))
				for _, c := range t.Credentials {
					creds = append(creds, markActive(c.Name+": "+c.Key, c.Active))
				}
				fmt.Fprintf(w, "            %s\n", strings.Join(creds, ", "))
			}
		}
	}
	fmt.Fprintf(w, "\n* 表示当前使用中的站点\n")
}

func markActive(s string, active bool) string {
	if active {
		return successStyle.Render(s + " *")
	}
	return s
}
