// Package service implements the event lifecycle and request admission
// rules on top of the transactional repository layer.
package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ianibaeva/explore-with-me/internal/model"
	"github.com/ianibaeva/explore-with-me/internal/repository"
	"github.com/ianibaeva/explore-with-me/internal/telemetry"
)

// Minimum distance between now and an event date.
const (
	ownerLeadTime = 2 * time.Hour
	adminLeadTime = time.Hour
)

// Default page size for listings that were not given one.
const defaultPageSize = 10

type options struct {
	now     func() time.Time
	log     *zap.Logger
	metrics *telemetry.Metrics
}

// Option configures a service.
type Option func(*options)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger state transitions are reported to.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithMetrics sets the counters admissions and transitions are recorded in.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func newOptions(opts []Option) options {
	o := options{
		now: time.Now,
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) clock() time.Time {
	return o.now().UTC()
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateInput runs struct tag validation and reports failures as
// model.ErrValidation.
func validateInput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("field %s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("field %s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", model.ErrValidation, strings.Join(msgs, "; "))
}

// notFound translates a repository miss into the given domain sentinel.
func notFound(err, sentinel error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return sentinel
	}
	return fmt.Errorf("%s: %w", what, err)
}

// page normalises from/size paging arguments.
func page(from, size int) (offset, limit int) {
	if from < 0 {
		from = 0
	}
	if size <= 0 {
		size = defaultPageSize
	}
	return from, size
}
