package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// fetchPrintData 从后端内部打印接口拉取渲染数据。
// 只允许 Worker 通过 Header 携带 INTERNAL_API_SECRET 访问。
func fetchPrintData(ctx context.Context, internalAPIBaseURL string, resumeID uint, secret, correlationID string) (PrintData, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return PrintData{}, fmt.Errorf("internal api secret missing")
	}

	internalAPIBaseURL = strings.TrimRight(strings.TrimSpace(internalAPIBaseURL), "/")
	if internalAPIBaseURL == "" {
		return PrintData{}, fmt.Errorf("internal api base url missing")
	}

	targetURL := fmt.Sprintf("%s/v1/internal/resumes/%d/print-data", internalAPIBaseURL, resumeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return PrintData{}, fmt.Errorf("build internal request: %w", err)
	}
	req.Header.Set("X-Internal-Secret", secret)
	if correlationID != "" {
		req.Header.Set("X-Correlation-ID", correlationID)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return PrintData{}, fmt.Errorf("request internal print data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		return PrintData{}, fmt.Errorf("internal print data status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return PrintData{}, fmt.Errorf("read internal print data: %w", err)
	}

	var data PrintData
	if err := json.Unmarshal(raw, &data); err != nil {
		return PrintData{}, fmt.Errorf("decode internal print data: %w", err)
	}
	return data, nil
}
