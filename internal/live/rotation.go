package live

import (
	"fmt"

	"github.com/cwrk-planet/live-room-service/internal/domain"
)

// Rotation — упорядоченный список продуктов с курсором. Не потокобезопасен,
// доступ сериализует Session.
type Rotation struct {
	slots []domain.ProductSlot
	pos   int
}

func NewRotation(slots []domain.ProductSlot) (*Rotation, error) {
	if len(slots) == 0 {
		return nil, fmt.Errorf("%w: empty product list", domain.ErrInvalidConfig)
	}
	return &Rotation{slots: slots}, nil
}

func (r *Rotation) Index() int { return r.pos }
func (r *Rotation) Len() int { return len(r.slots) }

func (r *Rotation) Current() domain.ProductSlot {
	return r.slots[r.pos]
}

func (r *Rotation) HasNext() bool {
	return r.pos+1 < len(r.slots)
}

// Advance moves the cursor forward; past the last slot it fails with
// domain.ErrOutOfRange and the cursor stays put.
func (r *Rotation) Advance() error {
	if !r.HasNext() {
		return domain.ErrOutOfRange
	}
	r.pos++
	return nil
}
