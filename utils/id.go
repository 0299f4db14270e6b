package utils

import (
	"github.com/segmentio/ksuid"
)

// GenerateID 生成全局唯一的文件ID
func GenerateID() string {
	return ksuid.New().String()
}
