package model

import (
	"errors"
	"testing"
)

func TestTouhouStatus_IsValid(t *testing.T) {
	tests := []struct {
		status TouhouStatus
		want   bool
	}{
		{StatusUnchecked, true},
		{StatusAutoMatch, true},
		{StatusAutoNoMatch, true},
		{StatusConfirmedMatch, true},
		{StatusConfirmedNoMatch, true},
		{TouhouStatus(5), false},
		{TouhouStatus(-1), false},
	}

	for _, tt := range tests {
		if got := tt.status.IsValid(); got != tt.want {
			t.Errorf("IsValid(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestTouhouStatus_Merge(t *testing.T) {
	tests := []struct {
		name   string
		stored TouhouStatus
		auto   TouhouStatus
		want   TouhouStatus
	}{
		{"unchecked takes auto match", StatusUnchecked, StatusAutoMatch, StatusAutoMatch},
		{"auto match takes new auto no-match", StatusAutoMatch, StatusAutoNoMatch, StatusAutoNoMatch},
		{"confirmed match never downgrades", StatusConfirmedMatch, StatusAutoNoMatch, StatusConfirmedMatch},
		{"confirmed no-match never upgrades", StatusConfirmedNoMatch, StatusAutoMatch, StatusConfirmedNoMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stored.Merge(tt.auto); got != tt.want {
				t.Errorf("Merge(%v, %v) = %v, want %v", tt.stored, tt.auto, got, tt.want)
			}
		})
	}
}

func TestVideo_Validate(t *testing.T) {
	tests := []struct {
		name    string
		video   Video
		wantErr error
	}{
		{
			name:    "valid",
			video:   Video{Aid: 1, Bvid: "BV1xx411c7mD"},
			wantErr: nil,
		},
		{
			name:    "missing aid",
			video:   Video{Bvid: "BV1xx411c7mD"},
			wantErr: ErrMissingAid,
		},
		{
			name:    "missing bvid",
			video:   Video{Aid: 1},
			wantErr: ErrMissingBvid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.video.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
