package notes

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"fsyportal/internal/auth"
	"fsyportal/internal/store"
)

// Repository persists notes in participant_notes.
type Repository struct {
	db store.Gateway
}

// NewRepository creates a repo.
func NewRepository(db store.Gateway) *Repository {
	return &Repository{db: db}
}

// ParticipantGroup returns the company and group of a registrant, or nil when
// the registrant does not exist.
func (r *Repository) ParticipantGroup(ctx context.Context, fsyID int64) (*auth.GroupRef, error) {
	var found *auth.GroupRef
	err := r.db.Query(ctx, `
		SELECT COALESCE(c.company_name, r.company_name, ''), COALESCE(g.group_name, r.group_name, '')
		FROM registrations r
		LEFT JOIN company_members cm ON cm.fsy_id = r.fsy_id
		LEFT JOIN companies c ON c.company_id = cm.company_id
		LEFT JOIN company_groups g ON g.group_id = cm.group_id
		WHERE r.fsy_id = $1
	`, func(row pgx.Row) error {
		var g auth.GroupRef
		if err := row.Scan(&g.CompanyName, &g.GroupName); err != nil {
			return err
		}
		found = &g
		return nil
	}, fsyID)
	if err != nil {
		return nil, fmt.Errorf("participant group: %w", err)
	}
	return found, nil
}

// List returns a participant's notes, newest first, with the author's name.
func (r *Repository) List(ctx context.Context, participantFsyID int64) ([]Note, error) {
	var notes []Note
	err := r.db.Query(ctx, `
		SELECT pn.note_id, pn.participant_fsy_id, pn.counselor_fsy_id, pn.note_type, pn.category,
		       pn.message, pn.severity, pn.photo_url, pn.created_at, pn.updated_at, u.full_name
		FROM participant_notes pn
		LEFT JOIN users u ON u.fsy_id = pn.counselor_fsy_id
		WHERE pn.participant_fsy_id = $1
		ORDER BY pn.created_at DESC, pn.note_id DESC
	`, func(row pgx.Row) error {
		n, err := scanNote(row)
		if err != nil {
			return err
		}
		notes = append(notes, n)
		return nil
	}, participantFsyID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// Get returns a note, or nil.
func (r *Repository) Get(ctx context.Context, noteID int64) (*Note, error) {
	var found *Note
	err := r.db.Query(ctx, `
		SELECT pn.note_id, pn.participant_fsy_id, pn.counselor_fsy_id, pn.note_type, pn.category,
		       pn.message, pn.severity, pn.photo_url, pn.created_at, pn.updated_at, u.full_name
		FROM participant_notes pn
		LEFT JOIN users u ON u.fsy_id = pn.counselor_fsy_id
		WHERE pn.note_id = $1
	`, func(row pgx.Row) error {
		n, err := scanNote(row)
		if err != nil {
			return err
		}
		found = &n
		return nil
	}, noteID)
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return found, nil
}

// Create inserts a note written by counselorFsyID.
func (r *Repository) Create(ctx context.Context, counselorFsyID int64, d Draft) (Note, error) {
	n := Note{
		ParticipantFsyID: d.ParticipantFsyID,
		CounselorFsyID:   counselorFsyID,
		Type:             d.Type,
		Category:         d.Category,
		Message:          d.Message,
		Severity:         d.Severity,
		PhotoURL:         d.PhotoURL,
	}
	err := r.db.Tx(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO participant_notes
				(participant_fsy_id, counselor_fsy_id, note_type, category, message, severity, photo_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING note_id, created_at, updated_at
		`, n.ParticipantFsyID, n.CounselorFsyID, string(n.Type), string(n.Category), n.Message,
			string(n.Severity), n.PhotoURL).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
	})
	if err != nil {
		return Note{}, fmt.Errorf("create note: %w", err)
	}
	return n, nil
}

// Update replaces a note's editable fields.
func (r *Repository) Update(ctx context.Context, noteID int64, d Draft) error {
	_, err := r.db.Exec(ctx, `
		UPDATE participant_notes
		SET note_type = $2, category = $3, message = $4, severity = $5, photo_url = $6,
		    updated_at = NOW()
		WHERE note_id = $1
	`, noteID, string(d.Type), string(d.Category), d.Message, string(d.Severity), d.PhotoURL)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return nil
}

// Delete removes a note.
func (r *Repository) Delete(ctx context.Context, noteID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM participant_notes WHERE note_id = $1`, noteID); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

func scanNote(row pgx.Row) (Note, error) {
	var (
		n             Note
		typ, cat, sev string
		counselor     pgtype.Text
	)
	err := row.Scan(&n.ID, &n.ParticipantFsyID, &n.CounselorFsyID, &typ, &cat, &n.Message, &sev,
		&n.PhotoURL, &n.CreatedAt, &n.UpdatedAt, &counselor)
	n.Type, n.Category, n.Severity = NoteType(typ), Category(cat), Severity(sev)
	n.CounselorName = counselor.String
	return n, err
}
