package lifecycle

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runtime starts components in registration order and stops them in
// reverse. A failed Start winds back whatever already started, so the
// bootstrap either comes up completely or not at all.
type Runtime struct {
	components []Component
	started    []Component
}

func NewRuntime(components ...Component) *Runtime {
	r := &Runtime{}
	for _, component := range components {
		r.Register(component)
	}
	return r
}

func (r *Runtime) Register(component Component) {
	if component == nil {
		return
	}
	r.components = append(r.components, component)
}

func (r *Runtime) Start(ctx context.Context) error {
	for _, component := range r.components {
		if err := component.Start(ctx); err != nil {
			if stopErr := r.Stop(ctx); stopErr != nil {
				r.getLogEntry().WithField("error", stopErr.Error()).Error("cant wind back started components")
			}
			return errors.WithMessagef(err, "cant start %s", componentName(component))
		}
		r.getLogEntry().WithField("component", componentName(component)).Debug("component started")
		r.started = append(r.started, component)
	}
	return nil
}

// Stop stops only what Start brought up, newest first. Safe after a failed
// Start and safe to call more than once.
func (r *Runtime) Stop(ctx context.Context) error {
	var stopErr error
	for i := len(r.started) - 1; i >= 0; i-- {
		component := r.started[i]
		if err := component.Stop(ctx); err != nil {
			wrapped := errors.WithMessagef(err, "cant stop %s", componentName(component))
			if stopErr == nil {
				stopErr = wrapped
			} else {
				stopErr = errors.WithMessage(stopErr, wrapped.Error())
			}
			continue
		}
		r.getLogEntry().WithField("component", componentName(component)).Debug("component stopped")
	}
	r.started = nil
	return stopErr
}

func componentName(component Component) string {
	return fmt.Sprintf("%T", component)
}

func (r *Runtime) getLogEntry() *log.Entry {
	return log.WithField("object", "Runtime")
}
