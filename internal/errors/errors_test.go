package errors

import (
	"fmt"
	"testing"
)

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *ClaimError
		wantCode   ErrorCode
		wantStatus int
	}{
		{"invalid request", NewInvalidRequest("bad input"), ErrInvalidRequest, 400},
		{"upload missing", NewUploadMissing(), ErrUploadMissing, 400},
		{"unauthorized", NewUnauthorized(""), ErrUnauthorized, 401},
		{"not found", NewNotFound("01HX"), ErrNotFound, 404},
		{"ocr failed", NewOCRFailed(fmt.Errorf("boom")), ErrOCRFailed, 500},
		{"extraction failed", NewExtractionFailed(fmt.Errorf("boom")), ErrExtractionFailed, 502},
		{"storage", NewStorage(fmt.Errorf("disk full")), ErrStorage, 500},
		{"internal", NewInternal(fmt.Errorf("boom")), ErrInternal, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.wantCode)
			}
			if tt.err.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", tt.err.Status, tt.wantStatus)
			}
			if tt.err.Message == "" {
				t.Error("Message is empty")
			}
		})
	}
}

func TestErrorString(t *testing.T) {
	err := NewUploadMissing()
	want := "UPLOAD_MISSING: no file uploaded"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestNotFound_Details(t *testing.T) {
	err := NewNotFound("01HX")
	if err.Details["identifier"] != "01HX" {
		t.Errorf("Details = %v", err.Details)
	}
}

func TestNewUnauthorized_DefaultMessage(t *testing.T) {
	if got := NewUnauthorized("").Message; got != "invalid credentials" {
		t.Errorf("Message = %q", got)
	}
	if got := NewUnauthorized("session expired").Message; got != "session expired" {
		t.Errorf("Message = %q", got)
	}
}

func TestIs(t *testing.T) {
	err := NewNotFound("01HX")
	if !Is(err, ErrNotFound) {
		t.Error("Is() should match NOT_FOUND")
	}
	if Is(err, ErrStorage) {
		t.Error("Is() should not match STORAGE")
	}
	if Is(fmt.Errorf("plain"), ErrInternal) {
		t.Error("Is() should not match plain errors")
	}
	if Is(nil, ErrInternal) {
		t.Error("Is() should not match nil")
	}
}
