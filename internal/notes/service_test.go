package notes

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fsyportal/internal/account"
	"fsyportal/internal/apperr"
	"fsyportal/internal/auth"
)

type fakeStore struct {
	groups  map[int64]auth.GroupRef
	notes   map[int64]Note
	nextID  int64
	deleted []int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		groups: map[int64]auth.GroupRef{
			100: {CompanyName: "Company 1", GroupName: "Group A"},
			200: {CompanyName: "Company 1", GroupName: "Group B"},
		},
		notes: map[int64]Note{
			1: {ID: 1, ParticipantFsyID: 100, Message: "helped clean up"},
			2: {ID: 2, ParticipantFsyID: 200, Message: "late"},
		},
		nextID: 3,
	}
}

func (f *fakeStore) ParticipantGroup(_ context.Context, id int64) (*auth.GroupRef, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (f *fakeStore) List(_ context.Context, id int64) ([]Note, error) {
	var out []Note
	for _, n := range f.notes {
		if n.ParticipantFsyID == id {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, id int64) (*Note, error) {
	n, ok := f.notes[id]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func (f *fakeStore) Create(_ context.Context, counselor int64, d Draft) (Note, error) {
	n := Note{ID: f.nextID, ParticipantFsyID: d.ParticipantFsyID, CounselorFsyID: counselor, Message: d.Message}
	f.notes[n.ID] = n
	f.nextID++
	return n, nil
}

func (f *fakeStore) Update(_ context.Context, id int64, d Draft) error {
	n := f.notes[id]
	n.Message = d.Message
	f.notes[id] = n
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id int64) error {
	delete(f.notes, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeDirectory struct {
	info account.UserInfo
	err  error
}

func (f fakeDirectory) GroupOf(context.Context, auth.Session) (account.UserInfo, error) {
	return f.info, f.err
}

var counselor = auth.Session{UserID: 5, Role: auth.RoleCounselor}

func newTestService() (*Service, *fakeStore) {
	store := newFakeStore()
	dir := fakeDirectory{info: account.UserInfo{FsyID: 50, CompanyName: "Company 1", GroupName: "Group A"}}
	return NewService(store, dir, nil), store
}

func draft(participant int64) Draft {
	return Draft{
		ParticipantFsyID: participant,
		Type:             TypePositive,
		Category:         "Kindness/Service",
		Message:          "shared lunch",
		Severity:         SeverityLow,
	}
}

func TestList_OwnGroupOnly(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	notes, err := svc.List(ctx, counselor, 100)
	require.NoError(t, err)
	assert.Len(t, notes, 1)

	_, err = svc.List(ctx, counselor, 200)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = svc.List(ctx, counselor, 999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.List(ctx, auth.Session{UserID: 6, Role: auth.RoleParticipant}, 100)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestList_EmptyIsNotNil(t *testing.T) {
	svc, store := newTestService()
	store.groups[101] = auth.GroupRef{CompanyName: "Company 1", GroupName: "Group A"}

	notes, err := svc.List(context.Background(), counselor, 101)
	require.NoError(t, err)
	assert.NotNil(t, notes)
}

func TestCreate_UsesCallersFsyID(t *testing.T) {
	svc, _ := newTestService()

	n, err := svc.Create(context.Background(), counselor, draft(100))
	require.NoError(t, err)
	assert.Equal(t, int64(50), n.CounselorFsyID)
}

func TestCreate_Validation(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	before := len(store.notes)

	d := draft(100)
	d.Category = "Singing"
	assert.True(t, apperr.Is(mustErr(svc.Create(ctx, counselor, d)), apperr.KindValidation))

	d = draft(100)
	d.Severity = "Critical"
	var verrs validator.ValidationErrors
	assert.True(t, errors.As(mustErr(svc.Create(ctx, counselor, d)), &verrs))

	assert.True(t, apperr.Is(mustErr(svc.Create(ctx, counselor, draft(0))), apperr.KindValidation))
	assert.True(t, apperr.Is(mustErr(svc.Create(ctx, counselor, draft(200))), apperr.KindForbidden))
	assert.Len(t, store.notes, before)
}

func TestUpdateAndDelete(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	d := draft(0)
	d.Message = "rewritten"
	require.NoError(t, svc.Update(ctx, counselor, 1, d))
	assert.Equal(t, "rewritten", store.notes[1].Message)

	assert.True(t, apperr.Is(svc.Update(ctx, counselor, 2, d), apperr.KindForbidden))
	assert.True(t, apperr.Is(svc.Update(ctx, counselor, 77, d), apperr.KindNotFound))

	assert.True(t, apperr.Is(svc.Delete(ctx, counselor, 2), apperr.KindForbidden))
	require.NoError(t, svc.Delete(ctx, counselor, 1))
	assert.Equal(t, []int64{1}, store.deleted)
}

func TestUnassignedCaller(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, fakeDirectory{err: apperr.NotFound("User not assigned to a company/group")}, nil)

	_, err := svc.List(context.Background(), counselor, 100)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCategoriesComplete(t *testing.T) {
	assert.Len(t, Categories, 9)
	assert.True(t, Category("Curfew & Dorm Violations").Valid())
	assert.False(t, Category("curfew & dorm violations").Valid())
}

func mustErr(_ Note, err error) error { return err }
