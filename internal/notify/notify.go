// Package notify 定义导出状态的跨进程消息契约：
// worker 通过 Redis Pub/Sub 发布，WebSocket 层解码后以类型化
// 信封转发给前端。双方只依赖这里的结构体，不传裸字符串。
package notify

import "fmt"

// 导出状态取值。
const (
	StatusCompleted = "completed"
	StatusError     = "error"
)

// ExportStatus 是单次 PDF 导出的结果通知。
// ErrorCode 为 errcode 包中的错误码；部分资源缺失但导出成功时
// Status 仍为 completed，通过 ErrorCode/MissingKeys 提示降级。
type ExportStatus struct {
	Status        string   `json:"status"`
	ResumeID      uint     `json:"resume_id"`
	CorrelationID string   `json:"correlation_id"`
	ErrorCode     int      `json:"error_code"`
	ErrorMessage  string   `json:"error_message"`
	MissingKeys   []string `json:"missing_keys,omitempty"`
}

// Channel 返回按用户划分的通知频道名。
func Channel(userID uint) string {
	return fmt.Sprintf("user_notify:%d", userID)
}
