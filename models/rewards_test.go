package models_test

import (
	"testing"
	"time"

	"github.com/glengalafresh/shop_backend/models"
	"github.com/shopspring/decimal"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func TestNextStreak(t *testing.T) {
	cases := []struct {
		name          string
		lastOrderDate *time.Time
		currentStreak int
		today         time.Time
		want          int
	}{
		{
			name:          "first ever order starts at 1",
			lastOrderDate: nil,
			currentStreak: 0,
			today:         date(2026, 1, 2),
			want:          1,
		},
		{
			name:          "consecutive day extends",
			lastOrderDate: datePtr(2026, 1, 1),
			currentStreak: 3,
			today:         date(2026, 1, 2),
			want:          4,
		},
		{
			name:          "same day keeps streak unchanged",
			lastOrderDate: datePtr(2026, 1, 2),
			currentStreak: 4,
			today:         date(2026, 1, 2),
			want:          4,
		},
		{
			name:          "two day gap resets to 1",
			lastOrderDate: datePtr(2026, 1, 1),
			currentStreak: 7,
			today:         date(2026, 1, 3),
			want:          1,
		},
		{
			name:          "long gap resets to 1",
			lastOrderDate: datePtr(2025, 11, 20),
			currentStreak: 30,
			today:         date(2026, 1, 2),
			want:          1,
		},
		{
			name:          "clock skew backwards resets to 1",
			lastOrderDate: datePtr(2026, 1, 5),
			currentStreak: 2,
			today:         date(2026, 1, 3),
			want:          1,
		},
		{
			name:          "consecutive day across month boundary",
			lastOrderDate: datePtr(2026, 1, 31),
			currentStreak: 1,
			today:         date(2026, 2, 1),
			want:          2,
		},
		{
			name:          "timestamps within the day compare as calendar days",
			lastOrderDate: func() *time.Time { t := time.Date(2026, 1, 1, 23, 50, 0, 0, time.UTC); return &t }(),
			currentStreak: 1,
			today:         time.Date(2026, 1, 2, 0, 5, 0, 0, time.UTC),
			want:          2,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := models.NextStreak(tc.lastOrderDate, tc.currentStreak, tc.today)
			if got != tc.want {
				t.Fatalf("NextStreak(%v, %d, %v) = %d, want %d",
					tc.lastOrderDate, tc.currentStreak, tc.today, got, tc.want)
			}
		})
	}
}

func TestPointsForTotal(t *testing.T) {
	cases := []struct {
		total string
		want  int
	}{
		{"0", 0},
		{"0.99", 0},
		{"1", 1},
		{"45.50", 45},
		{"45.99", 45},
		{"100", 100},
		{"-5", 0},
	}

	for _, tc := range cases {
		got := models.PointsForTotal(decimal.RequireFromString(tc.total))
		if got != tc.want {
			t.Errorf("PointsForTotal(%s) = %d, want %d", tc.total, got, tc.want)
		}
	}
}

func TestPriceChanged(t *testing.T) {
	cases := []struct {
		oldPrice string
		newPrice string
		want     bool
	}{
		{"2.49", "2.99", true},
		{"2.99", "2.49", true},
		{"2.49", "2.49", false},
		{"2.50", "2.500", false}, // same value, different scale
		{"0", "0.01", true},
	}

	for _, tc := range cases {
		got := models.PriceChanged(
			decimal.RequireFromString(tc.oldPrice),
			decimal.RequireFromString(tc.newPrice),
		)
		if got != tc.want {
			t.Errorf("PriceChanged(%s, %s) = %v, want %v", tc.oldPrice, tc.newPrice, got, tc.want)
		}
	}
}
