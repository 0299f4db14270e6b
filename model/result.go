package model

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// BatchItem 批量处理中单张图片的结果
// 单张图片失败只记录在自身条目中，不影响其它图片
type BatchItem struct {
	Index    int    `json:"index"`
	Filename string `json:"filename"`
	Status   string `json:"status"`           // success, error
	Data     string `json:"data,omitempty"`   // data:image/png;base64,...
	Error    string `json:"error,omitempty"`
}

// BatchResponse 批量处理响应
type BatchResponse struct {
	Results []BatchItem `json:"results"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
