package fat32

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input uint16
		want  time.Time
	}{
		{
			name:  "epoch",
			input: 1<<5 | 1, // 01/01/1980
			want:  time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "regular date",
			input: 39<<9 | 8<<5 | 23, // 08/23/2019
			want:  time.Date(2019, time.August, 23, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "last representable date",
			input: 127<<9 | 12<<5 | 31, // 12/31/2107
			want:  time.Date(2107, time.December, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "zero day is invalid",
			input: 39<<9 | 8<<5 | 0,
			want:  time.Time{},
		},
		{
			name:  "zero month is invalid",
			input: 39<<9 | 0<<5 | 23,
			want:  time.Time{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseDate(tt.input); !got.Equal(tt.want) {
				t.Errorf("ParseDate(%#x) = %v, want %v", tt.input, got, tt.want)
			}
			if got := ParseDate(tt.input); got.IsZero() != tt.want.IsZero() {
				t.Errorf("ParseDate(%#x).IsZero() = %v, want %v", tt.input, got.IsZero(), tt.want.IsZero())
			}
		})
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name  string
		input uint16
		want  time.Time
	}{
		{
			name:  "midnight",
			input: 0,
			want:  time.Time{},
		},
		{
			name:  "regular time",
			input: 13<<11 | 37<<5 | 21, // 13:37:42
			want:  time.Date(1, 1, 1, 13, 37, 42, 0, time.UTC),
		},
		{
			name:  "last second of the day",
			input: 23<<11 | 59<<5 | 29, // 23:59:58
			want:  time.Date(1, 1, 1, 23, 59, 58, 0, time.UTC),
		},
		{
			name:  "invalid time is clamped",
			input: 0xFFFF,
			want:  time.Date(1, 1, 1, 23, 59, 59, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseTime(tt.input); !got.Equal(tt.want) {
				t.Errorf("ParseTime(%#x) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
