package core

import (
	"context"
	"time"
)

type CacheKind string

const (
	CacheKindCourseAnalytics       CacheKind = "course_analytics"
	CacheKindCourseStudentProgress CacheKind = "course_student_progress"
	CacheKindCourseTaskAnalytics   CacheKind = "course_task_analytics"
	CacheKindStudentProgress       CacheKind = "student_progress"
	CacheKindQuizPerformance       CacheKind = "student_quiz_performance"
)

// CacheKey identifies a cached value by the kind of report and the entity it is computed for.
type CacheKey struct {
	Kind CacheKind
	ID   string
}

func (k CacheKey) String() string {
	return string(k.Kind) + ":" + k.ID
}

// Cache is a short-lived key/value store for computed results.
type Cache interface {
	// Get loads the value stored under key into dst and reports whether it was found.
	Get(ctx context.Context, key CacheKey, dst interface{}) (bool, error)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key CacheKey, value interface{}, ttl time.Duration) error
}
