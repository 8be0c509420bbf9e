package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jask/moneyboard/internal/database"
)

// UserConfigRepo reads and writes the singleton settings row (id = 1). The row
// is created lazily by the first write.
type UserConfigRepo struct {
	db database.DBTX
}

func NewUserConfigRepo(db database.DBTX) *UserConfigRepo { return &UserConfigRepo{db: db} }

// Get returns the stored settings, or zero-value defaults when no row exists.
func (r *UserConfigRepo) Get(ctx context.Context) (UserConfig, error) {
	var c UserConfig
	var name, url, trained sql.NullString
	err := r.db.QueryRowContext(ctx, `
	SELECT display_name, simplefin_url, classifier_training_date, auto_categorize, auto_mark_duplicates
	FROM user_config WHERE id = 1`).Scan(&name, &url, &trained, &c.AutoCategorize, &c.AutoMarkDuplicates)
	if errors.Is(err, sql.ErrNoRows) {
		return UserConfig{}, nil
	}
	if err != nil {
		return UserConfig{}, err
	}
	if name.Valid {
		c.DisplayName = &name.String
	}
	if url.Valid {
		c.SimpleFINURL = &url.String
	}
	if trained.Valid {
		c.ClassifierTrainingDate = &trained.String
	}
	return c, nil
}

func (r *UserConfigRepo) SetDisplayName(ctx context.Context, name string) error {
	return r.set(ctx, "display_name", name)
}

func (r *UserConfigRepo) SetSimpleFINURL(ctx context.Context, url string) error {
	return r.set(ctx, "simplefin_url", url)
}

func (r *UserConfigRepo) SetClassifierTrainingDate(ctx context.Context, date string) error {
	return r.set(ctx, "classifier_training_date", date)
}

func (r *UserConfigRepo) SetAutoCategorize(ctx context.Context, on bool) error {
	return r.set(ctx, "auto_categorize", on)
}

func (r *UserConfigRepo) SetAutoMarkDuplicates(ctx context.Context, on bool) error {
	return r.set(ctx, "auto_mark_duplicates", on)
}

// Delete removes the row so the next read reports first-run defaults.
func (r *UserConfigRepo) Delete(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_config WHERE id = 1`)
	return err
}

// set upserts a single column. column is always one of the literals above.
func (r *UserConfigRepo) set(ctx context.Context, column string, value interface{}) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO user_config(id, `+column+`) VALUES (1, ?)
	ON CONFLICT(id) DO UPDATE SET `+column+`=excluded.`+column, value)
	return err
}
