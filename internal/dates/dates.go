// Package dates tarihleri tek bir kanonik gün biçimine (UTC gece yarısı, "2006-01-02") indirger.
package dates

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const Layout = "2006-01-02"

var layouts = []string{
	Layout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02.01.2006",
	"02/01/2006",
	"2006/01/02",
}

// Day zamanı UTC gün başına çeker.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func Today() time.Time {
	return Day(time.Now().UTC())
}

func Format(t time.Time) string {
	return t.Format(Layout)
}

func FormatPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return Format(*t)
}

// Parse metin ya da Excel seri numarası olarak gelen tarihi çözer.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("tarih boş")
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return Day(t), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("tarih çözülemedi: %q", s)
}

// ParseOptional boş değer için nil döner.
func ParseOptional(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := Parse(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
