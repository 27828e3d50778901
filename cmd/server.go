package cmd

import (
	"schooltone/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动Schooltone服务器",
	Long:  `启动音频发布网关的HTTP服务器，提供审批、发布和分片上传API`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
