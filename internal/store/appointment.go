package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"clinic-appointments-api/internal/model"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// InsertAppointment persists a new appointment with status active and
// assigns its id. Returns ErrMissingReference when the provider or patient
// id does not resolve to a user; the referential check is the store's
// foreign key constraint, evaluated at the moment of insertion.
func (s *Store) InsertAppointment(ctx context.Context, a *model.Appointment) error {
	d, err := dateArg(a.Date)
	if err != nil {
		return err
	}
	t, err := timeArg(a.Time)
	if err != nil {
		return err
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO appointments (provider_id, patient_id, date, time, reason, status)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 RETURNING id`,
		a.ProviderID, a.PatientID, d, t, a.Reason, model.StatusActive,
	).Scan(&a.ID)
	if pgErrCode(err) == codeForeignKeyViolation {
		return ErrMissingReference
	}
	if err != nil {
		return err
	}
	a.Status = model.StatusActive
	return nil
}

// CancelIfActive transitions the appointment to cancelled only if it is
// currently active, as a single conditional update. Two concurrent calls on
// the same id cannot both succeed: the row lock serializes them and the
// second sees a non-active status.
func (s *Store) CancelIfActive(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE appointments SET status = $1 WHERE id = $2 AND status = $3`,
		model.StatusCancelled, id, model.StatusActive,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListActiveByPatient returns the patient's active appointments joined with
// the provider's name, most recent first (date descending, then time).
func (s *Store) ListActiveByPatient(ctx context.Context, patientID int64) ([]model.PatientAppointment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT a.id, a.date, a.time, a.reason, a.status, p.name
		 FROM appointments a
		 JOIN users p ON a.provider_id = p.id
		 WHERE a.patient_id = $1 AND a.status = $2
		 ORDER BY a.date DESC, a.time DESC`,
		patientID, model.StatusActive,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PatientAppointment
	for rows.Next() {
		var (
			pa model.PatientAppointment
			d  pgtype.Date
			t  pgtype.Time
		)
		if err := rows.Scan(&pa.ID, &d, &t, &pa.Reason, &pa.Status, &pa.ProviderName); err != nil {
			return nil, err
		}
		pa.Date = formatDate(d)
		pa.Time = formatTime(t)
		out = append(out, pa)
	}
	return out, rows.Err()
}

func dateArg(s string) (pgtype.Date, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return pgtype.Date{}, fmt.Errorf("bad date %q: %w", s, err)
	}
	return pgtype.Date{Time: d, Valid: true}, nil
}

func timeArg(s string) (pgtype.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return pgtype.Time{}, fmt.Errorf("bad time %q: %w", s, err)
	}
	micros := int64(t.Hour())*int64(time.Hour/time.Microsecond) +
		int64(t.Minute())*int64(time.Minute/time.Microsecond)
	return pgtype.Time{Microseconds: micros, Valid: true}, nil
}

func formatDate(d pgtype.Date) string {
	return d.Time.Format(dateLayout)
}

func formatTime(t pgtype.Time) string {
	total := t.Microseconds / int64(time.Minute/time.Microsecond)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
