package utils_test

import (
	"testing"
	"time"

	"github.com/glengalafresh/shop_backend/utils"
)

func TestNormalizePhoneNumber(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"0412 345 678", "+61412345678"},
		{"0412345678", "+61412345678"},
		{"+61 412 345 678", "+61412345678"},
		{"(03) 9123 4567", "+61391234567"},
	}

	for _, tc := range cases {
		got, err := utils.NormalizePhoneNumber(tc.input, utils.CountryCode)
		if err != nil {
			t.Fatalf("NormalizePhoneNumber(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Errorf("NormalizePhoneNumber(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestNormalizePhoneNumberRejectsInvalid(t *testing.T) {
	for _, input := range []string{"123", "not a phone", ""} {
		if _, err := utils.NormalizePhoneNumber(input, utils.CountryCode); err == nil {
			t.Errorf("NormalizePhoneNumber(%q): expected error", input)
		}
	}
}

func TestConvertToDate(t *testing.T) {
	// 13:30 UTC on Jan 1 is already Jan 2 in Melbourne (UTC+11 in summer).
	in := time.Date(2026, 1, 1, 13, 30, 0, 0, time.UTC)
	got, err := utils.ConvertToDate(in, utils.Timezone)
	if err != nil {
		t.Fatalf("ConvertToDate: %v", err)
	}
	if got.Year() != 2026 || got.Month() != time.January || got.Day() != 2 {
		t.Fatalf("ConvertToDate = %v, want Melbourne date 2026-01-02", got)
	}
	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 {
		t.Fatalf("ConvertToDate = %v, want midnight", got)
	}
}
