package student

import (
	"context"
	"fmt"
	"regexp"

	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
)

const (
	counterKeyPrefix = "student"

	// maxSequence bounds the numeral portion of a student number; the
	// sequence space for one course/year pair is exhausted beyond it.
	maxSequence = 99999
)

var (
	schoolYearRegex = regexp.MustCompile(`^(\d{4})-\d{4}$`)

	ErrInvalidSchoolYear = errors.New("invalid school year format")
	ErrSequenceExhausted = errors.New("student number sequence exhausted for this course and year")
)

// AllocationError reports a failed student number allocation. The underlying
// store failure is kept as the cause; the counter is guaranteed untouched
// (the increment is a single atomic statement that either applied and the
// allocation succeeded, or did not apply at all), so callers may retry.
type AllocationError struct {
	cause error
}

func (e *AllocationError) Error() string {
	if e.cause != nil {
		return "failed to generate student number: " + e.cause.Error()
	}
	return "failed to generate student number"
}

// Cause implements the pkg/errors causer interface.
func (e *AllocationError) Cause() error { return e.cause }

func (e *AllocationError) Unwrap() error { return e.cause }

func IsAllocationError(err error) bool {
	_, ok := err.(*AllocationError)
	return ok
}

type (
	// CounterRepository is a durable keyed counter store. IncrementCounter must
	// be atomic (upsert-on-absent, starting at 1) so concurrent increments on
	// one key are serialized by the store and each caller observes a distinct,
	// monotonically increasing value. Counter values are never cached in
	// process; every read goes to the store.
	CounterRepository interface {
		IncrementCounter(ctx context.Context, key string, exec ...core.DBExecutor) (int64, error)
		GetCounter(ctx context.Context, key string, exec ...core.DBExecutor) (int64, error)
	}

	// NumberAllocator issues unique, human-readable student numbers of the
	// form {startYear}-{courseCode}-{NNNNN}, one durable counter per
	// (courseCode, startYear) pair.
	NumberAllocator struct {
		repo CounterRepository
	}
)

func NewNumberAllocator(repo CounterRepository) *NumberAllocator {
	return &NumberAllocator{repo: repo}
}

// CounterKey derives the durable counter key for a course code and start year,
// eg. "student_BEED_2024".
func CounterKey(courseCode, startYear string) string {
	return counterKeyPrefix + "_" + courseCode + "_" + startYear
}

// StartYear extracts the first calendar year of a school year string
// ("2024-2025" -> "2024"). Malformed input fails fast with
// ErrInvalidSchoolYear so a corrupted counter key can never be composed.
func StartYear(schoolYear string) (string, error) {
	m := schoolYearRegex.FindStringSubmatch(schoolYear)
	if m == nil {
		return "", ErrInvalidSchoolYear
	}
	return m[1], nil
}

// Allocate issues the next student number for a course and school year.
//
// The visible sequence derives directly from the atomically incremented
// counter, making the emitted number unique by construction for its
// course/year pair. When the caller passes a transaction executor the
// increment joins that transaction and rolls back with it.
func (a *NumberAllocator) Allocate(ctx context.Context, courseID int, schoolYear string, exec ...core.DBExecutor) (string, error) {
	startYear, err := StartYear(schoolYear)
	if err != nil {
		return "", err
	}
	courseCode := CourseCode(courseID)

	seq, err := a.repo.IncrementCounter(ctx, CounterKey(courseCode, startYear), exec...)
	if err != nil {
		return "", &AllocationError{cause: err}
	}
	if seq > maxSequence {
		return "", &AllocationError{cause: ErrSequenceExhausted}
	}

	return fmt.Sprintf("%s-%s-%05d", startYear, courseCode, seq), nil
}

// PeekNextSequence reads the sequence the next allocation for this course
// code and school year would likely get. The read is non-transactional and
// goes stale under concurrent allocation; it is for display only and must
// never be used to compose an actual student number.
func (a *NumberAllocator) PeekNextSequence(ctx context.Context, courseCode, schoolYear string) (int64, error) {
	startYear, err := StartYear(schoolYear)
	if err != nil {
		return 0, err
	}
	current, err := a.repo.GetCounter(ctx, CounterKey(courseCode, startYear))
	if err != nil {
		return 0, errors.Wrap(err, "reading counter")
	}
	return current + 1, nil
}
