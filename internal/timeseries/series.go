// Package timeseries provides daily forward-fill lookups over historical data.
package timeseries

import (
	"errors"
	"sort"
	"time"
)

// ErrEmpty is returned when a series is built with no points.
var ErrEmpty = errors.New("timeseries: no points")

// Day truncates t to midnight UTC. All dates in the engine are day-valued.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a UTC day value.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Point is one dated observation.
type Point[T any] struct {
	Date  time.Time
	Value T
}

// Series is an immutable, date-sorted sequence of points.
type Series[T any] struct {
	points []Point[T]
}

// New sorts a copy of points by date. Later duplicates of a date win.
func New[T any](points []Point[T]) (*Series[T], error) {
	if len(points) == 0 {
		return nil, ErrEmpty
	}
	cp := make([]Point[T], len(points))
	for i, p := range points {
		cp[i] = Point[T]{Date: Day(p.Date), Value: p.Value}
	}
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Date.Before(cp[j].Date) })

	out := cp[:0]
	for _, p := range cp {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return &Series[T]{points: out}, nil
}

// Constant returns a single-point series, which resolves to v for every date.
func Constant[T any](v T) *Series[T] {
	return &Series[T]{points: []Point[T]{{Date: time.Time{}, Value: v}}}
}

// At returns the value of the most recent point on or before date.
// Dates before the first point resolve to the first point; dates after the
// last point resolve to the last one.
func (s *Series[T]) At(date time.Time) T {
	date = Day(date)
	i := sort.Search(len(s.points), func(i int) bool { return s.points[i].Date.After(date) })
	if i == 0 {
		return s.points[0].Value
	}
	return s.points[i-1].Value
}

// Len returns the number of points.
func (s *Series[T]) Len() int { return len(s.points) }

// Span returns the first and last dates covered.
func (s *Series[T]) Span() (time.Time, time.Time) {
	return s.points[0].Date, s.points[len(s.points)-1].Date
}

// Points returns a copy of the underlying points.
func (s *Series[T]) Points() []Point[T] {
	out := make([]Point[T], len(s.points))
	copy(out, s.points)
	return out
}

// Mean averages a float series. Used for reference prices.
func Mean(s *Series[float64]) float64 {
	if s == nil || len(s.points) == 0 {
		return 0
	}
	total := 0.0
	for _, p := range s.points {
		total += p.Value
	}
	return total / float64(len(s.points))
}
