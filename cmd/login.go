package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "检查当前登录凭证的状态",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newCLIApp()
		if err != nil {
			return err
		}
		defer app.Close()

		if !app.settings.Session().LoggedIn() {
			fmt.Fprintln(cmd.OutOrStdout(), "未设置 SESSDATA，当前为游客")
			return nil
		}
		tier, err := app.resolve.CheckLogin(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "当前身份: %s\n", tier)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
