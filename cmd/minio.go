package cmd

import (
	"fmt"
	"log"

	"schooltone/config"
	"schooltone/logger"
	"schooltone/storage"

	"github.com/spf13/cobra"
)

var minioPrefix string

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶管理",
	Long:  `查看MinIO存储桶中的音频资产，支持按前缀过滤和显示统计信息。`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger.InitLogger(logger.Config{Level: logger.LogLevel(cfg.LogLevel)})
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		if err := storage.InitMinio(cfg); err != nil {
			log.Fatalf("无法连接到MinIO: %v", err)
		}

		if err := storage.PrintBucketStatus(minioPrefix); err != nil {
			log.Fatalf("获取存储桶状态失败: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "events/", "按前缀过滤文件")

	minioCmd.Example = `  # 列出所有活动音频资产
  schooltone minio

  # 按活动过滤
  schooltone minio -p "events/42/"`
}
