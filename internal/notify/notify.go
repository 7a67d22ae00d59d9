// Package notify relays alerts to notification buses.
package notify

import (
	"context"
	"errors"

	"github.com/miradorstack/mirador-aiops/internal/models"
)

// Publisher relays a single alert.
type Publisher interface {
	Publish(ctx context.Context, alert models.Alert) error
}

// Multi fans an alert out to every publisher. All publishers are attempted;
// their errors are joined.
type Multi []Publisher

// NewMulti drops nil publishers and returns nil when none remain.
func NewMulti(publishers ...Publisher) Publisher {
	active := make(Multi, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			active = append(active, p)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	default:
		return active
	}
}

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, alert models.Alert) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
