package notify

import (
	"context"
	"database/sql"
	"time"

	"github.com/reddykarthikeya-123/OnBoardingRite/internal/repo"
)

// Writer appends notifications inside the caller's transaction so a failed
// lifecycle transition never leaves a stray notification behind.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

func (w Writer) Append(ctx context.Context, tx *sql.Tx, teamMemberID, notifType, title, message, taskInstanceID string) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx, `INSERT INTO notifications(team_member_id,type,title,message,task_instance_id,is_read,created_at) VALUES (?,?,?,?,?,0,?)`,
		teamMemberID, notifType, title, nullable(message), nullable(taskInstanceID), ts)
	return err
}

// MarkRead flips the read flag outside any transaction; reading a
// notification is not part of a lifecycle transition.
func (w Writer) MarkRead(ctx context.Context, id int64) error {
	res, err := w.DB.ExecContext(ctx, `UPDATE notifications SET is_read=1 WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
