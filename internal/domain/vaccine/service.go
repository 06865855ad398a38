package vaccine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vaxadmin/vaxadmin/internal/platform/auth"
	"github.com/vaxadmin/vaxadmin/internal/platform/events"
	"github.com/vaxadmin/vaxadmin/internal/platform/lock"
	"github.com/vaxadmin/vaxadmin/internal/platform/slotrules"
	"github.com/vaxadmin/vaxadmin/internal/platform/telemetry"
	"github.com/vaxadmin/vaxadmin/pkg/timeofday"
)

// Service administers vaccines, their service days and their time slots.
//
// Every mutation checks the caller is an administrator, takes the vaccine's
// lock, loads current state, runs the scheduling rules and writes in a
// single transaction. A change event is published once the transaction has
// committed.
type Service struct {
	vaccines VaccineRepository
	slots    TimeSlotRepository
	days     ServiceDayRepository
	tx       TxRunner
	authz    auth.Authorizer

	locker    lock.Locker
	publisher events.Publisher
	logger    zerolog.Logger
	now       func() time.Time
	loc       *time.Location
}

type Option func(*Service)

func WithLocker(l lock.Locker) Option { return func(s *Service) { s.locker = l } }

func WithPublisher(p events.Publisher) Option { return func(s *Service) { s.publisher = p } }

func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.logger = l } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithLocation sets the zone booking dates and horizons are computed in.
func WithLocation(loc *time.Location) Option { return func(s *Service) { s.loc = loc } }

func NewService(vaccines VaccineRepository, slots TimeSlotRepository, days ServiceDayRepository, tx TxRunner, authz auth.Authorizer, opts ...Option) *Service {
	s := &Service{
		vaccines:  vaccines,
		slots:     slots,
		days:      days,
		tx:        tx,
		authz:     authz,
		locker:    lock.NewKeyed(0),
		publisher: events.NopPublisher{},
		logger:    zerolog.Nop(),
		now:       time.Now,
		loc:       time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func lockKey(vaccineID uuid.UUID) string { return "vaccine:" + vaccineID.String() }

// mutate checks the admin capability, then runs fn under the vaccine's lock
// inside one transaction.
func (s *Service) mutate(ctx context.Context, op string, vaccineID uuid.UUID, fn func(ctx context.Context) error) error {
	if err := s.authorizeWrite(ctx); err != nil {
		return err
	}
	return s.locked(ctx, op, vaccineID, fn)
}

// locked is mutate for callers that already passed authorizeWrite.
func (s *Service) locked(ctx context.Context, op string, vaccineID uuid.UUID, fn func(ctx context.Context) error) (err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "vaccine."+op,
		trace.WithAttributes(attribute.String("vaccine.id", vaccineID.String())))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	release, err := s.locker.Acquire(ctx, lockKey(vaccineID))
	if err != nil {
		return &StoreError{Op: op, Err: err}
	}
	defer func() {
		if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
			s.logger.Warn().Err(rerr).Str("vaccine_id", vaccineID.String()).Msg("release vaccine lock")
		}
	}()

	if err = s.tx.InTx(ctx, fn); err != nil {
		if isRejection(err) {
			s.logger.Debug().Err(err).Str("op", op).Str("vaccine_id", vaccineID.String()).Msg("rejected")
		} else {
			s.logger.Error().Err(err).Str("op", op).Str("vaccine_id", vaccineID.String()).Msg("write failed")
		}
		return storeErr(op, err)
	}
	s.logger.Info().Str("op", op).Str("vaccine_id", vaccineID.String()).
		Str("user_id", auth.UserIDFromContext(ctx)).Msg("committed")
	return nil
}

// isRejection reports whether err is a validation outcome rather than an
// infrastructure failure.
func isRejection(err error) bool {
	for _, kind := range []error{
		ErrNotFound, ErrInUse, ErrInvalidInput,
		slotrules.ErrInvalidInterval, slotrules.ErrOverlap, slotrules.ErrQuotaExceeded,
		slotrules.ErrInvalidQuota, slotrules.ErrWeekdayAlreadyAssigned, slotrules.ErrEmptyAssignment,
		slotrules.ErrInvalidWeekday, slotrules.ErrInvalidPolicy,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func (s *Service) publish(ctx context.Context, eventType string, vaccineID, entityID uuid.UUID, data interface{}) {
	evt := events.NewEvent(eventType, vaccineID, entityID, auth.UserIDFromContext(ctx), data)
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Str("event_id", evt.ID).
			Str("vaccine_id", vaccineID.String()).Msg("publish change event")
	}
}

// authorizeWrite runs once per mutating call, before any lookup needed to
// find the vaccine a slot or service day belongs to.
func (s *Service) authorizeWrite(ctx context.Context) error {
	if !s.authz.IsAdmin(ctx) {
		s.logger.Debug().Str("user_id", auth.UserIDFromContext(ctx)).Msg("forbidden")
		return ErrForbidden
	}
	return nil
}

func (s *Service) authorizeRead(ctx context.Context) error {
	if !s.authz.CanRead(ctx) {
		return ErrForbidden
	}
	return nil
}

// -- Vaccines --

func (s *Service) CreateVaccine(ctx context.Context, v *Vaccine) error {
	if v.Gender == "" {
		v.Gender = GenderAny
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	err := s.mutate(ctx, "create_vaccine", v.ID, func(ctx context.Context) error {
		if err := v.Validate(); err != nil {
			return err
		}
		return s.vaccines.Create(ctx, v)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, events.VaccineCreated, v.ID, v.ID, v)
	return nil
}

func (s *Service) GetVaccine(ctx context.Context, id uuid.UUID) (*Vaccine, error) {
	if err := s.authorizeRead(ctx); err != nil {
		return nil, err
	}
	return s.vaccines.GetByID(ctx, id)
}

func (s *Service) ListVaccines(ctx context.Context, limit, offset int) ([]*Vaccine, int, error) {
	if err := s.authorizeRead(ctx); err != nil {
		return nil, 0, err
	}
	return s.vaccines.List(ctx, limit, offset)
}

// UpdateVaccine replaces the vaccine's attributes. Lowering MaxCapacity
// below the quota already committed by enabled slots is refused with a
// *slotrules.QuotaExceededError.
func (s *Service) UpdateVaccine(ctx context.Context, v *Vaccine) error {
	err := s.mutate(ctx, "update_vaccine", v.ID, func(ctx context.Context) error {
		cur, err := s.vaccines.GetForUpdate(ctx, v.ID)
		if err != nil {
			return err
		}
		if err := v.Validate(); err != nil {
			return err
		}
		slots, err := s.slots.ListByVaccine(ctx, v.ID)
		if err != nil {
			return err
		}
		if committed := slotrules.CommittedQuota(enabledIntervals(slots, uuid.Nil)); committed > v.MaxCapacity {
			return &slotrules.QuotaExceededError{Requested: committed, Remaining: v.MaxCapacity, MaxCapacity: v.MaxCapacity}
		}
		v.CreatedAt = cur.CreatedAt
		return s.vaccines.Update(ctx, v)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, events.VaccineUpdated, v.ID, v.ID, v)
	return nil
}

// DeleteVaccine removes a vaccine with no service days and no time slots.
func (s *Service) DeleteVaccine(ctx context.Context, id uuid.UUID) error {
	err := s.mutate(ctx, "delete_vaccine", id, func(ctx context.Context) error {
		if _, err := s.vaccines.GetForUpdate(ctx, id); err != nil {
			return err
		}
		nSlots, err := s.slots.CountByVaccine(ctx, id)
		if err != nil {
			return err
		}
		nDays, err := s.days.CountByVaccine(ctx, id)
		if err != nil {
			return err
		}
		if nSlots > 0 || nDays > 0 {
			return fmt.Errorf("%w: %d time slot(s), %d service day(s)", ErrInUse, nSlots, nDays)
		}
		return s.vaccines.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, events.VaccineDeleted, id, id, nil)
	return nil
}

// UpdateBookingPolicy validates and stores the vaccine's booking policy.
func (s *Service) UpdateBookingPolicy(ctx context.Context, vaccineID uuid.UUID, p slotrules.Policy) (*Vaccine, error) {
	var v *Vaccine
	err := s.mutate(ctx, "update_booking_policy", vaccineID, func(ctx context.Context) error {
		var err error
		if v, err = s.vaccines.GetForUpdate(ctx, vaccineID); err != nil {
			return err
		}
		if err := p.Validate(); err != nil {
			return err
		}
		v.Policy = p
		return s.vaccines.Update(ctx, v)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.PolicyUpdated, vaccineID, vaccineID, p)
	return v, nil
}

// BookingHorizon returns the window in which a booking made now may start,
// narrowed to the vaccine's booking open and close dates.
func (s *Service) BookingHorizon(ctx context.Context, vaccineID uuid.UUID) (slotrules.Horizon, error) {
	if err := s.authorizeRead(ctx); err != nil {
		return slotrules.Horizon{}, err
	}
	v, err := s.vaccines.GetByID(ctx, vaccineID)
	if err != nil {
		return slotrules.Horizon{}, err
	}
	h, err := v.Policy.Horizon(s.now().In(s.loc))
	if err != nil {
		return slotrules.Horizon{}, err
	}
	return h.Clip(v.bookingBounds(s.loc)), nil
}

// -- Capacity and availability --

func (s *Service) CapacitySummary(ctx context.Context, vaccineID uuid.UUID) (*Capacity, error) {
	v, slots, err := s.loadSchedule(ctx, vaccineID)
	if err != nil {
		return nil, err
	}
	committed := enabledIntervals(slots, uuid.Nil)
	return &Capacity{
		MaxCapacity: v.MaxCapacity,
		Committed:   slotrules.CommittedQuota(committed),
		Remaining:   slotrules.RemainingCapacity(v.MaxCapacity, committed),
	}, nil
}

// AvailableStartTimes lists the starts of the service window, stepped by the
// policy's slot duration, from which a slot of that duration fits without
// overlapping an enabled slot.
func (s *Service) AvailableStartTimes(ctx context.Context, vaccineID uuid.UUID) ([]timeofday.TimeOfDay, error) {
	v, slots, err := s.loadSchedule(ctx, vaccineID)
	if err != nil {
		return nil, err
	}
	step := v.SlotDurationMinutes
	candidates := slotrules.CandidateStarts(v.ServiceStart, v.ServiceEnd, step)
	out := slices.Collect(slotrules.AvailableStarts(candidates, step, v.ServiceEnd, enabledIntervals(slots, uuid.Nil)))
	if out == nil {
		out = []timeofday.TimeOfDay{}
	}
	return out, nil
}

// AvailableEndTimes lists the grid times after start that can close a slot
// opened at start.
func (s *Service) AvailableEndTimes(ctx context.Context, vaccineID uuid.UUID, start timeofday.TimeOfDay) ([]timeofday.TimeOfDay, error) {
	if !start.Valid() {
		return nil, fmt.Errorf("%w: start %d", ErrInvalidInput, int(start))
	}
	v, slots, err := s.loadSchedule(ctx, vaccineID)
	if err != nil {
		return nil, err
	}
	candidates := slotrules.CandidateStarts(v.ServiceStart, v.ServiceEnd, v.SlotDurationMinutes)
	out := slices.Collect(slotrules.AvailableEnds(candidates, start, enabledIntervals(slots, uuid.Nil)))
	if out == nil {
		out = []timeofday.TimeOfDay{}
	}
	return out, nil
}

func (s *Service) loadSchedule(ctx context.Context, vaccineID uuid.UUID) (*Vaccine, []*TimeSlot, error) {
	if err := s.authorizeRead(ctx); err != nil {
		return nil, nil, err
	}
	v, err := s.vaccines.GetByID(ctx, vaccineID)
	if err != nil {
		return nil, nil, err
	}
	slots, err := s.slots.ListByVaccine(ctx, vaccineID)
	if err != nil {
		return nil, nil, err
	}
	return v, slots, nil
}

// -- Time slots --

func (s *Service) ListTimeSlots(ctx context.Context, vaccineID uuid.UUID) ([]*TimeSlot, error) {
	_, slots, err := s.loadSchedule(ctx, vaccineID)
	return slots, err
}

// checkSlot validates slot against the vaccine and its other slots. Disabled
// slots are checked for shape only; enabled ones must not overlap another
// enabled slot and must fit in the remaining capacity.
func checkSlot(v *Vaccine, slot *TimeSlot, existing []*TimeSlot) error {
	if !slot.Start.Valid() || !slot.End.Valid() {
		return fmt.Errorf("%w: slot bounds %s-%s", ErrInvalidInput, slot.Start, slot.End)
	}
	candidate := slot.Interval()
	if !candidate.Valid() {
		return &slotrules.InvalidIntervalError{Interval: candidate}
	}
	if slot.Quota < 0 {
		return fmt.Errorf("%w: %d", slotrules.ErrInvalidQuota, slot.Quota)
	}
	if !slot.Enabled {
		return nil
	}
	others := enabledIntervals(existing, slot.ID)
	if err := slotrules.CheckOverlap(candidate, others, candidate.ID); err != nil {
		return err
	}
	return slotrules.ValidateCommitment(slot.Quota, v.MaxCapacity, slotrules.RemainingCapacity(v.MaxCapacity, others))
}

// CreateTimeSlot adds an enabled slot [start, end) with the given quota.
func (s *Service) CreateTimeSlot(ctx context.Context, vaccineID uuid.UUID, start, end timeofday.TimeOfDay, quota int) (*TimeSlot, error) {
	slot := &TimeSlot{VaccineID: vaccineID, Start: start, End: end, Quota: quota, Enabled: true}
	err := s.mutate(ctx, "create_time_slot", vaccineID, func(ctx context.Context) error {
		v, err := s.vaccines.GetForUpdate(ctx, vaccineID)
		if err != nil {
			return err
		}
		existing, err := s.slots.ListByVaccine(ctx, vaccineID)
		if err != nil {
			return err
		}
		if err := checkSlot(v, slot, existing); err != nil {
			return err
		}
		return s.slots.Create(ctx, slot)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TimeSlotCreated, vaccineID, slot.ID, slot)
	return slot, nil
}

// UpdateTimeSlot replaces a slot's bounds, quota and enabled flag. The slot
// itself is excluded from the overlap and capacity checks.
func (s *Service) UpdateTimeSlot(ctx context.Context, id uuid.UUID, start, end timeofday.TimeOfDay, quota int, enabled bool) (*TimeSlot, error) {
	if err := s.authorizeWrite(ctx); err != nil {
		return nil, err
	}
	found, err := s.slots.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	vaccineID := found.VaccineID

	var slot *TimeSlot
	err = s.locked(ctx, "update_time_slot", vaccineID, func(ctx context.Context) error {
		v, err := s.vaccines.GetForUpdate(ctx, vaccineID)
		if err != nil {
			return err
		}
		if slot, err = s.slots.GetByID(ctx, id); err != nil {
			return err
		}
		existing, err := s.slots.ListByVaccine(ctx, vaccineID)
		if err != nil {
			return err
		}
		slot.Start, slot.End, slot.Quota, slot.Enabled = start, end, quota, enabled
		if err := checkSlot(v, slot, existing); err != nil {
			return err
		}
		return s.slots.Update(ctx, slot)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TimeSlotUpdated, vaccineID, id, slot)
	return slot, nil
}

func (s *Service) DeleteTimeSlot(ctx context.Context, id uuid.UUID) error {
	if err := s.authorizeWrite(ctx); err != nil {
		return err
	}
	found, err := s.slots.GetByID(ctx, id)
	if err != nil {
		return err
	}
	err = s.locked(ctx, "delete_time_slot", found.VaccineID, func(ctx context.Context) error {
		return s.slots.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, events.TimeSlotDeleted, found.VaccineID, id, nil)
	return nil
}

// -- Service days --

func (s *Service) ListServiceDays(ctx context.Context, vaccineID uuid.UUID) ([]*ServiceDay, error) {
	if err := s.authorizeRead(ctx); err != nil {
		return nil, err
	}
	if _, err := s.vaccines.GetByID(ctx, vaccineID); err != nil {
		return nil, err
	}
	return s.days.ListByVaccine(ctx, vaccineID)
}

// CreateServiceDay assigns weekdays to the vaccine. None of them may already
// belong to another of its service days.
func (s *Service) CreateServiceDay(ctx context.Context, vaccineID uuid.UUID, weekdays slotrules.WeekdaySet) (*ServiceDay, error) {
	day := &ServiceDay{VaccineID: vaccineID, Weekdays: weekdays}
	err := s.mutate(ctx, "create_service_day", vaccineID, func(ctx context.Context) error {
		if _, err := s.vaccines.GetForUpdate(ctx, vaccineID); err != nil {
			return err
		}
		used, err := s.days.ListUsedWeekdays(ctx, vaccineID, uuid.Nil)
		if err != nil {
			return err
		}
		if err := slotrules.ValidateAssignment(weekdays, used); err != nil {
			return err
		}
		return s.days.Create(ctx, day)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ServiceDayCreated, vaccineID, day.ID, day)
	return day, nil
}

// UpdateServiceDay replaces the record's weekdays. Its own current days do
// not count as taken.
func (s *Service) UpdateServiceDay(ctx context.Context, id uuid.UUID, weekdays slotrules.WeekdaySet) (*ServiceDay, error) {
	if err := s.authorizeWrite(ctx); err != nil {
		return nil, err
	}
	found, err := s.days.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	vaccineID := found.VaccineID

	var day *ServiceDay
	err = s.locked(ctx, "update_service_day", vaccineID, func(ctx context.Context) error {
		if _, err := s.vaccines.GetForUpdate(ctx, vaccineID); err != nil {
			return err
		}
		var err error
		if day, err = s.days.GetByID(ctx, id); err != nil {
			return err
		}
		used, err := s.days.ListUsedWeekdays(ctx, vaccineID, id)
		if err != nil {
			return err
		}
		if err := slotrules.ValidateAssignment(weekdays, used); err != nil {
			return err
		}
		day.Weekdays = weekdays
		return s.days.Update(ctx, day)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ServiceDayUpdated, vaccineID, id, day)
	return day, nil
}

func (s *Service) DeleteServiceDay(ctx context.Context, id uuid.UUID) error {
	if err := s.authorizeWrite(ctx); err != nil {
		return err
	}
	found, err := s.days.GetByID(ctx, id)
	if err != nil {
		return err
	}
	err = s.locked(ctx, "delete_service_day", found.VaccineID, func(ctx context.Context) error {
		return s.days.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, events.ServiceDayDeleted, found.VaccineID, id, nil)
	return nil
}
