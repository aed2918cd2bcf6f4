package api

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"craftcv/internal/notify"
)

func TestEncodeExportEnvelope_WrapsTypedStatus(t *testing.T) {
	raw, err := json.Marshal(notify.ExportStatus{
		Status:        notify.StatusCompleted,
		ResumeID:      7,
		CorrelationID: "corr-1",
	})
	if err != nil {
		t.Fatalf("marshal status: %v", err)
	}

	frame, err := encodeExportEnvelope(raw)
	if err != nil {
		t.Fatalf("encode envelope: %v", err)
	}

	var envelope struct {
		Type string              `json:"type"`
		Data notify.ExportStatus `json:"data"`
	}
	if err := json.Unmarshal(frame, &envelope); err != nil {
		t.Fatalf("decode envelope: %v frame=%s", err, frame)
	}
	if envelope.Type != wsTypeExportStatus {
		t.Fatalf("envelope type = %q, want %q", envelope.Type, wsTypeExportStatus)
	}
	if envelope.Data.ResumeID != 7 || envelope.Data.Status != notify.StatusCompleted {
		t.Fatalf("envelope data = %+v", envelope.Data)
	}
	if envelope.Data.CorrelationID != "corr-1" {
		t.Fatalf("correlation id = %q", envelope.Data.CorrelationID)
	}
}

func TestEncodeExportEnvelope_DropsNonContractPayloads(t *testing.T) {
	// 裸字符串与缺少 status 字段的对象都不在协议内，不得透传。
	if _, err := encodeExportEnvelope([]byte("export done")); err == nil {
		t.Fatal("opaque string payload should be rejected")
	}
	if _, err := encodeExportEnvelope([]byte(`{"resume_id":1}`)); err == nil {
		t.Fatal("payload without status should be rejected")
	}
}

func TestWsOriginAllowed(t *testing.T) {
	withList := NewWsHandler(nil, nil, nil, []string{"https://app.example.com"})
	sameHost := NewWsHandler(nil, nil, nil, nil)

	req := httptest.NewRequest("GET", "http://api.example.com/v1/ws", nil)
	req.Header.Set("Origin", "https://app.example.com")
	if !withList.originAllowed(req) {
		t.Fatal("whitelisted origin should be allowed")
	}

	req.Header.Set("Origin", "https://evil.example.com")
	if withList.originAllowed(req) {
		t.Fatal("unlisted origin should be rejected")
	}

	req.Header.Set("Origin", "http://api.example.com")
	if !sameHost.originAllowed(req) {
		t.Fatal("same-host origin should be allowed without a whitelist")
	}
	if withList.originAllowed(req) {
		t.Fatal("same-host origin is not enough once a whitelist is configured")
	}
}
