package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"schooltone/config"

	"github.com/minio/minio-go/v7"
)

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// ListBucketObjects 列出存储桶中指定前缀下的所有对象
func ListBucketObjects(prefix string) ([]ObjectInfo, *BucketStats, error) {
	client := GetMinioClient()
	if client == nil {
		return nil, nil, fmt.Errorf("MinIO 客户端未初始化")
	}

	ctx := context.Background()
	cfg := config.Load()

	stats := &BucketStats{}
	var objects []ObjectInfo

	objectCh := client.ListObjects(ctx, cfg.MinioBucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for object := range objectCh {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("列出对象时出错: %w", object.Err)
		}

		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}

		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ETag:         object.ETag,
		})
	}

	return objects, stats, nil
}

// PrintBucketStatus 打印存储桶状态
func PrintBucketStatus(prefix string) error {
	objects, stats, err := ListBucketObjects(prefix)
	if err != nil {
		return err
	}

	cfg := config.Load()
	log.Printf("存储桶状态报告: %s", cfg.MinioBucket)
	log.Printf("前缀过滤: %s", prefix)
	log.Printf("总文件数: %d", stats.TotalObjects)
	log.Printf("总存储大小: %s", formatSize(stats.TotalSize))
	log.Printf("最后更新时间: %s", stats.LastModified.Format("2006-01-02 15:04:05"))

	for _, obj := range objects {
		log.Printf("  %s (%s)", obj.Key, formatSize(obj.Size))
	}

	return nil
}

// formatSize 格式化文件大小
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
