package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/UkralStul/yatube-api/internal/admin"
	"github.com/spf13/cobra"
)

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Операции админки над зарегистрированными моделями",
	}
	cmd.AddCommand(newAdminListCmd(a), newAdminEditCmd(a), newAdminDeleteCmd(a))
	return cmd
}

func newAdminListCmd(a *app) *cobra.Command {
	var q admin.Query
	cmd := &cobra.Command{
		Use:   "list <model>",
		Short: "Вывести список записей модели",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			site, err := a.site()
			if err != nil {
				return err
			}
			cl, err := site.Changelist(cmd.Context(), admin.Model(args[0]), q)
			if err != nil {
				return err
			}
			return printChangelist(cmd.OutOrStdout(), cl)
		},
	}
	cmd.Flags().StringVar(&q.Search, "search", "", "search by search_fields")
	cmd.Flags().StringToStringVar(&q.Filters, "filter", nil, "list_filter value, e.g. --filter group=none")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "max rows, 0 - no limit")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "rows to skip")
	return cmd
}

func newAdminEditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <model> <pk> <field> <value>",
		Short: "Изменить поле из list_editable",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			site, err := a.site()
			if err != nil {
				return err
			}
			return site.Edit(cmd.Context(), admin.Model(args[0]), args[1], args[2], args[3])
		},
	}
}

func newAdminDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <model> <pk>",
		Short: "Удалить запись",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			site, err := a.site()
			if err != nil {
				return err
			}
			return site.Delete(cmd.Context(), admin.Model(args[0]), args[1])
		},
	}
}

// printChangelist печатает список таблицей. Колонки-ссылки помечены *, редактируемые ~.
func printChangelist(out io.Writer, cl *admin.Changelist) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if len(cl.Rows) == 0 {
		fmt.Fprintln(w, strings.ToUpper(strings.Join(cl.Columns, "\t")))
		return w.Flush()
	}

	header := make([]string, len(cl.Rows[0].Cells))
	for i, c := range cl.Rows[0].Cells {
		header[i] = strings.ToUpper(c.Field)
		switch {
		case c.Link:
			header[i] += "*"
		case c.Editable:
			header[i] += "~"
		}
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))

	for _, row := range cl.Rows {
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = c.Value
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}
