package vaccine

import (
	"context"

	"github.com/google/uuid"

	"github.com/vaxadmin/vaxadmin/internal/platform/slotrules"
)

// Repositories return ErrNotFound for missing rows and a *StoreError for
// any other failure.

type VaccineRepository interface {
	Create(ctx context.Context, v *Vaccine) error
	GetByID(ctx context.Context, id uuid.UUID) (*Vaccine, error)
	// GetForUpdate reads the vaccine and, inside a transaction, locks its
	// row until commit.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Vaccine, error)
	Update(ctx context.Context, v *Vaccine) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Vaccine, int, error)
}

type TimeSlotRepository interface {
	// ListByVaccine returns every slot of the vaccine, enabled or not,
	// ordered by start time.
	ListByVaccine(ctx context.Context, vaccineID uuid.UUID) ([]*TimeSlot, error)
	GetByID(ctx context.Context, id uuid.UUID) (*TimeSlot, error)
	Create(ctx context.Context, s *TimeSlot) error
	Update(ctx context.Context, s *TimeSlot) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByVaccine(ctx context.Context, vaccineID uuid.UUID) (int, error)
}

type ServiceDayRepository interface {
	ListByVaccine(ctx context.Context, vaccineID uuid.UUID) ([]*ServiceDay, error)
	// ListUsedWeekdays is the union of the weekdays of every service day of
	// the vaccine except excludeID (uuid.Nil excludes nothing).
	ListUsedWeekdays(ctx context.Context, vaccineID, excludeID uuid.UUID) (slotrules.WeekdaySet, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ServiceDay, error)
	Create(ctx context.Context, d *ServiceDay) error
	Update(ctx context.Context, d *ServiceDay) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByVaccine(ctx context.Context, vaccineID uuid.UUID) (int, error)
}

// TxRunner runs fn in one transaction. db.TxRunner satisfies it.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
