package utils

import (
	"reflect"
	"strings"
	"time"
)

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

// get type name of generic parameter
func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

func DereferencePtr[T any](ptr *T, defaults ...T) T {
	if ptr != nil {
		return *ptr
	}
	var zero T
	if len(defaults) > 0 {
		return defaults[0]
	}
	return zero
}

// truncate to midnight in the given timezone (UTC when blank or unknown)
func ConvertToDate(t time.Time, timezone string) (time.Time, error) {
	location := time.UTC
	if strings.TrimSpace(timezone) != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return time.Time{}, err
		}
		location = loc
	}
	local := t.In(location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, location), nil
}

// start and end of a civil date, for BETWEEN-style window queries
func DayBounds(d time.Time) (time.Time, time.Time) {
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}

func UniqueSlice[T comparable](items []T) []T {
	seen := make(map[T]bool, len(items))
	result := make([]T, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}
	return result
}
