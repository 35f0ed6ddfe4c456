// Package postgres implements the ledger store on Postgres via GORM. A
// user's rows are read and written inside one transaction holding a row lock
// on the user, which both serializes mutations per user and makes the
// persisted record change as a single durable write.
package postgres

import (
	"context"
	"fmt"

	"github.com/dulgistudio/dulgi/internal/entity"
	"github.com/dulgistudio/dulgi/internal/ledger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db *gorm.DB
}

var _ ledger.Store = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the ledger tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.LedgerUser{},
		&entity.AttendanceDay{},
		&entity.ActivityDay{},
		&entity.NotifiedPeriod{},
	)
}

func (s *Store) Update(ctx context.Context, uid string, fn ledger.UpdateFunc) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Ensure the user row exists, then lock it for the duration of the
		// read-modify-write. Concurrent events for the same user queue here.
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&entity.LedgerUser{UID: uid}).Error; err != nil {
			return storageErr(err)
		}
		var lockRow entity.LedgerUser
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("uid = ?", uid).First(&lockRow).Error; err != nil {
			return storageErr(err)
		}

		rec, err := loadUser(tx, uid)
		if err != nil {
			return storageErr(err)
		}

		changed, err := fn(rec)
		if err != nil {
			// fn errors pass through unchanged; only database errors are
			// storage failures.
			return err
		}
		if !changed {
			return nil
		}

		if err := writeUser(tx, uid, rec); err != nil {
			return storageErr(err)
		}
		return nil
	})
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", ledger.ErrStorage, err)
}

func loadUser(tx *gorm.DB, uid string) (*entity.UserRecord, error) {
	rec := entity.NewUserRecord()

	var attendance []entity.AttendanceDay
	if err := tx.Where("uid = ?", uid).Order("date asc").Find(&attendance).Error; err != nil {
		return nil, err
	}
	for _, a := range attendance {
		rec.Attendance = append(rec.Attendance, a.Date)
	}

	var days []entity.ActivityDay
	if err := tx.Where("uid = ?", uid).Find(&days).Error; err != nil {
		return nil, err
	}
	for _, d := range days {
		day := entity.NewDailyRecord()
		day.Total = d.Total
		for ch, pts := range d.ByChannel {
			day.ByChannel[ch] = pts
		}
		rec.Activity[d.Date] = day
	}

	var periods []entity.NotifiedPeriod
	if err := tx.Where("uid = ?", uid).Find(&periods).Error; err != nil {
		return nil, err
	}
	for _, p := range periods {
		rec.Notified[p.PeriodKey] = append([]int{}, p.Milestones...)
	}

	return rec, nil
}

func writeUser(tx *gorm.DB, uid string, rec *entity.UserRecord) error {
	for _, date := range rec.Attendance {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&entity.AttendanceDay{UID: uid, Date: date}).Error; err != nil {
			return err
		}
	}
	for date, day := range rec.Activity {
		row := entity.ActivityDay{
			UID:       uid,
			Date:      date,
			Total:     day.Total,
			ByChannel: entity.ChannelPoints(day.ByChannel),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uid"}, {Name: "date"}},
			UpdateAll: true,
		}).Create(&row).Error; err != nil {
			return err
		}
	}
	for key, values := range rec.Notified {
		row := entity.NotifiedPeriod{
			UID:        uid,
			PeriodKey:  key,
			Milestones: entity.MilestoneList(values),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uid"}, {Name: "period_key"}},
			UpdateAll: true,
		}).Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, uid string) (*entity.UserRecord, error) {
	rec, err := loadUser(s.db.WithContext(ctx), uid)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrStorage, err)
	}
	return rec, nil
}

func (s *Store) UserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&entity.LedgerUser{}).
		Order("uid asc").Pluck("uid", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrStorage, err)
	}
	return ids, nil
}

func (s *Store) TotalsBetween(ctx context.Context, start, end string) (map[string]int, error) {
	type row struct {
		UID   string
		Score int
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&entity.ActivityDay{}).
		Select("uid, COALESCE(SUM(total), 0) as score").
		Where("date >= ? AND date <= ?", start, end).
		Group("uid").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrStorage, err)
	}
	totals := make(map[string]int, len(rows))
	for _, r := range rows {
		totals[r.UID] = r.Score
	}
	return totals, nil
}

func (s *Store) Dump(ctx context.Context) (map[string]*entity.UserRecord, error) {
	out := map[string]*entity.UserRecord{}
	// One transaction keeps the dump consistent across users.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&entity.LedgerUser{}).Order("uid asc").Pluck("uid", &ids).Error; err != nil {
			return err
		}
		for _, uid := range ids {
			rec, err := loadUser(tx, uid)
			if err != nil {
				return err
			}
			out[uid] = rec
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrStorage, err)
	}
	return out, nil
}

func (s *Store) Replace(ctx context.Context, users map[string]*entity.UserRecord, wipe bool) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if wipe {
			for _, model := range []interface{}{
				&entity.NotifiedPeriod{}, &entity.ActivityDay{},
				&entity.AttendanceDay{}, &entity.LedgerUser{},
			} {
				if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
					return err
				}
			}
		}
		for uid, rec := range users {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&entity.LedgerUser{UID: uid}).Error; err != nil {
				return err
			}
			// Per-user all-or-nothing: clear the user's rows, then rewrite
			// them from the restored record.
			for _, model := range []interface{}{
				&entity.NotifiedPeriod{}, &entity.ActivityDay{}, &entity.AttendanceDay{},
			} {
				if err := tx.Where("uid = ?", uid).Delete(model).Error; err != nil {
					return err
				}
			}
			if err := writeUser(tx, uid, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrStorage, err)
	}
	return nil
}
