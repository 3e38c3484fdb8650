package main

import (
	"fmt"

	"github.com/UkralStul/yatube-api/internal/domain"
	"github.com/spf13/cobra"
)

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Пользователи",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <username>",
		Short: "Создать пользователя и вывести его id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.store.CreateUser(cmd.Context(), &domain.User{Username: args[0]})
			if err != nil {
				return err
			}
			a.log.WithField("user", user.ID).Info("user created")
			_, err = fmt.Fprintln(cmd.OutOrStdout(), user.ID)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Удалить пользователя вместе с его постами, комментариями и подписками",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.DeleteUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.log.WithField("user", args[0]).Info("user deleted")
			return nil
		},
	})
	return cmd
}
