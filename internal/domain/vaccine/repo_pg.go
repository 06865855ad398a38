package vaccine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vaxadmin/vaxadmin/internal/platform/db"
	"github.com/vaxadmin/vaxadmin/internal/platform/slotrules"
	"github.com/vaxadmin/vaxadmin/pkg/timeofday"
)

// pgErr maps driver errors onto the repository contract.
func pgErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsNoRows(err):
		return ErrNotFound
	case db.IsForeignKeyViolation(err):
		if op == "delete vaccine" {
			return ErrInUse
		}
		return ErrNotFound
	}
	return &StoreError{Op: op, Err: err}
}

// =========== Vaccine Repository ===========

type vaccineRepoPG struct{ pool *pgxpool.Pool }

func NewVaccineRepoPG(pool *pgxpool.Pool) VaccineRepository { return &vaccineRepoPG{pool: pool} }

func (r *vaccineRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const vaccineCols = `id, title, min_age, max_age, gender, max_capacity, uses_time_slots,
	service_start, service_end, advance_days, lead_minutes, slot_duration_minutes,
	booking_opens, booking_closes, active, created_at, updated_at`

func (r *vaccineRepoPG) scanVaccine(row pgx.Row) (*Vaccine, error) {
	var v Vaccine
	var start, end pgtype.Time
	var opens, closes pgtype.Date
	err := row.Scan(&v.ID, &v.Title, &v.MinAge, &v.MaxAge, &v.Gender, &v.MaxCapacity, &v.UsesTimeSlots,
		&start, &end, &v.AdvanceDays, &v.LeadMinutes, &v.SlotDurationMinutes,
		&opens, &closes, &v.Active, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	v.ServiceStart = timeofday.FromPG(start)
	v.ServiceEnd = timeofday.FromPG(end)
	v.BookingOpens = fromPGDate(opens)
	v.BookingCloses = fromPGDate(closes)
	return &v, nil
}

func toPGDate(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: *t, Valid: true}
}

func fromPGDate(d pgtype.Date) *time.Time {
	if !d.Valid {
		return nil
	}
	t := d.Time
	return &t
}

func (r *vaccineRepoPG) Create(ctx context.Context, v *Vaccine) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO vaccine (id, title, min_age, max_age, gender, max_capacity, uses_time_slots,
			service_start, service_end, advance_days, lead_minutes, slot_duration_minutes,
			booking_opens, booking_closes, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING created_at, updated_at`,
		v.ID, v.Title, v.MinAge, v.MaxAge, v.Gender, v.MaxCapacity, v.UsesTimeSlots,
		v.ServiceStart.PG(), v.ServiceEnd.PG(), v.AdvanceDays, v.LeadMinutes, v.SlotDurationMinutes,
		toPGDate(v.BookingOpens), toPGDate(v.BookingCloses), v.Active,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
	return pgErr("create vaccine", err)
}

func (r *vaccineRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Vaccine, error) {
	v, err := r.scanVaccine(r.conn(ctx).QueryRow(ctx, `SELECT `+vaccineCols+` FROM vaccine WHERE id = $1`, id))
	return v, pgErr("get vaccine", err)
}

func (r *vaccineRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Vaccine, error) {
	v, err := r.scanVaccine(r.conn(ctx).QueryRow(ctx, `SELECT `+vaccineCols+` FROM vaccine WHERE id = $1 FOR UPDATE`, id))
	return v, pgErr("lock vaccine", err)
}

func (r *vaccineRepoPG) Update(ctx context.Context, v *Vaccine) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE vaccine SET title=$2, min_age=$3, max_age=$4, gender=$5, max_capacity=$6,
			uses_time_slots=$7, service_start=$8, service_end=$9, advance_days=$10,
			lead_minutes=$11, slot_duration_minutes=$12, booking_opens=$13, booking_closes=$14,
			active=$15, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		v.ID, v.Title, v.MinAge, v.MaxAge, v.Gender, v.MaxCapacity,
		v.UsesTimeSlots, v.ServiceStart.PG(), v.ServiceEnd.PG(), v.AdvanceDays,
		v.LeadMinutes, v.SlotDurationMinutes, toPGDate(v.BookingOpens), toPGDate(v.BookingCloses),
		v.Active,
	).Scan(&v.UpdatedAt)
	return pgErr("update vaccine", err)
}

func (r *vaccineRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM vaccine WHERE id = $1`, id)
	if err != nil {
		return pgErr("delete vaccine", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *vaccineRepoPG) List(ctx context.Context, limit, offset int) ([]*Vaccine, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM vaccine`).Scan(&total); err != nil {
		return nil, 0, pgErr("count vaccines", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+vaccineCols+` FROM vaccine ORDER BY title, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, pgErr("list vaccines", err)
	}
	defer rows.Close()
	var items []*Vaccine
	for rows.Next() {
		v, err := r.scanVaccine(rows)
		if err != nil {
			return nil, 0, pgErr("list vaccines", err)
		}
		items = append(items, v)
	}
	return items, total, pgErr("list vaccines", rows.Err())
}

// =========== Time Slot Repository ===========

type timeSlotRepoPG struct{ pool *pgxpool.Pool }

func NewTimeSlotRepoPG(pool *pgxpool.Pool) TimeSlotRepository { return &timeSlotRepoPG{pool: pool} }

func (r *timeSlotRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const slotCols = `id, vaccine_id, start_time, end_time, quota, enabled, created_at, updated_at`

func (r *timeSlotRepoPG) scanSlot(row pgx.Row) (*TimeSlot, error) {
	var s TimeSlot
	var start, end pgtype.Time
	if err := row.Scan(&s.ID, &s.VaccineID, &start, &end, &s.Quota, &s.Enabled, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Start = timeofday.FromPG(start)
	s.End = timeofday.FromPG(end)
	return &s, nil
}

func (r *timeSlotRepoPG) ListByVaccine(ctx context.Context, vaccineID uuid.UUID) ([]*TimeSlot, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+slotCols+` FROM time_slot WHERE vaccine_id = $1 ORDER BY start_time, end_time`, vaccineID)
	if err != nil {
		return nil, pgErr("list time slots", err)
	}
	defer rows.Close()
	var items []*TimeSlot
	for rows.Next() {
		s, err := r.scanSlot(rows)
		if err != nil {
			return nil, pgErr("list time slots", err)
		}
		items = append(items, s)
	}
	return items, pgErr("list time slots", rows.Err())
}

func (r *timeSlotRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	s, err := r.scanSlot(r.conn(ctx).QueryRow(ctx, `SELECT `+slotCols+` FROM time_slot WHERE id = $1`, id))
	return s, pgErr("get time slot", err)
}

func (r *timeSlotRepoPG) Create(ctx context.Context, s *TimeSlot) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO time_slot (id, vaccine_id, start_time, end_time, quota, enabled)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		s.ID, s.VaccineID, s.Start.PG(), s.End.PG(), s.Quota, s.Enabled,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	return pgErr("create time slot", err)
}

func (r *timeSlotRepoPG) Update(ctx context.Context, s *TimeSlot) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE time_slot SET start_time=$2, end_time=$3, quota=$4, enabled=$5, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		s.ID, s.Start.PG(), s.End.PG(), s.Quota, s.Enabled,
	).Scan(&s.UpdatedAt)
	return pgErr("update time slot", err)
}

func (r *timeSlotRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM time_slot WHERE id = $1`, id)
	if err != nil {
		return pgErr("delete time slot", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *timeSlotRepoPG) CountByVaccine(ctx context.Context, vaccineID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM time_slot WHERE vaccine_id = $1`, vaccineID).Scan(&n)
	return n, pgErr("count time slots", err)
}

// =========== Service Day Repository ===========

type serviceDayRepoPG struct{ pool *pgxpool.Pool }

func NewServiceDayRepoPG(pool *pgxpool.Pool) ServiceDayRepository {
	return &serviceDayRepoPG{pool: pool}
}

func (r *serviceDayRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const dayCols = `id, vaccine_id, weekdays, created_at, updated_at`

func (r *serviceDayRepoPG) scanDay(row pgx.Row) (*ServiceDay, error) {
	var d ServiceDay
	var days []int16
	if err := row.Scan(&d.ID, &d.VaccineID, &days, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	set, err := slotrules.WeekdaySetFromInt16s(days)
	if err != nil {
		return nil, err
	}
	d.Weekdays = set
	return &d, nil
}

func (r *serviceDayRepoPG) ListByVaccine(ctx context.Context, vaccineID uuid.UUID) ([]*ServiceDay, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+dayCols+` FROM service_day WHERE vaccine_id = $1 ORDER BY created_at, id`, vaccineID)
	if err != nil {
		return nil, pgErr("list service days", err)
	}
	defer rows.Close()
	var items []*ServiceDay
	for rows.Next() {
		d, err := r.scanDay(rows)
		if err != nil {
			return nil, pgErr("list service days", err)
		}
		items = append(items, d)
	}
	return items, pgErr("list service days", rows.Err())
}

func (r *serviceDayRepoPG) ListUsedWeekdays(ctx context.Context, vaccineID, excludeID uuid.UUID) (slotrules.WeekdaySet, error) {
	var days []int16
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(array_agg(DISTINCT d), '{}')::SMALLINT[]
		FROM service_day, unnest(weekdays) AS d
		WHERE vaccine_id = $1 AND id <> $2`,
		vaccineID, excludeID).Scan(&days)
	if err != nil {
		return 0, pgErr("list used weekdays", err)
	}
	set, err := slotrules.WeekdaySetFromInt16s(days)
	if err != nil {
		return 0, &StoreError{Op: "list used weekdays", Err: err}
	}
	return set, nil
}

func (r *serviceDayRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ServiceDay, error) {
	d, err := r.scanDay(r.conn(ctx).QueryRow(ctx, `SELECT `+dayCols+` FROM service_day WHERE id = $1`, id))
	return d, pgErr("get service day", err)
}

func (r *serviceDayRepoPG) Create(ctx context.Context, d *ServiceDay) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO service_day (id, vaccine_id, weekdays)
		VALUES ($1,$2,$3)
		RETURNING created_at, updated_at`,
		d.ID, d.VaccineID, d.Weekdays.Int16s(),
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	return pgErr("create service day", err)
}

func (r *serviceDayRepoPG) Update(ctx context.Context, d *ServiceDay) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE service_day SET weekdays=$2, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		d.ID, d.Weekdays.Int16s(),
	).Scan(&d.UpdatedAt)
	return pgErr("update service day", err)
}

func (r *serviceDayRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM service_day WHERE id = $1`, id)
	if err != nil {
		return pgErr("delete service day", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *serviceDayRepoPG) CountByVaccine(ctx context.Context, vaccineID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM service_day WHERE vaccine_id = $1`, vaccineID).Scan(&n)
	return n, pgErr("count service days", err)
}
