package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"in8/internal/model"
)

func newUserFixture(t *testing.T) (*harness, *UserService) {
	t.Helper()
	h := newHarness(t, twoQuestionTemplate())
	svc := NewUserService(h.userRepo, h.resultRepo, h.progress, zaptest.NewLogger(t))
	svc.SetBroadcaster(h.broadcaster)
	svc.SetSessions(h.sessions)
	return h, svc
}

func TestUserService_EnsureProfile(t *testing.T) {
	h, svc := newUserFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureProfile(ctx, model.SessionRequest{UserID: " kakao_1 ", Name: "민지", LoginType: "kakao"}))
	require.NoError(t, svc.EnsureProfile(ctx, model.SessionRequest{UserID: "kakao_1"}))

	u, err := h.userRepo.Get(ctx, "kakao_1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "민지", u.Name, "an empty name does not erase the stored one")
	assert.Equal(t, "kakao", u.LoginType)

	assert.ErrorIs(t, svc.EnsureProfile(ctx, model.SessionRequest{UserID: "  "}), ErrMissingUserID)
}

func TestUserService_ListUsersCountsStoredResults(t *testing.T) {
	h, svc := newUserFixture(t)
	ctx := context.Background()

	for _, user := range []string{"u1", "u1", "u2"} {
		_, err := h.results.Commit(ctx, user, evaluate(t, model.AnswerMap{0: 0, 1: 0}))
		require.NoError(t, err)
	}
	require.NoError(t, svc.EnsureProfile(ctx, model.SessionRequest{UserID: "u3", LoginType: "guest"}))

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)

	got := map[string]int64{}
	for _, u := range users {
		got[u.UserID] = u.ActualSurveyCount
	}
	assert.Equal(t, map[string]int64{"u1": 2, "u2": 1, "u3": 0}, got)
}

func TestUserService_DeleteUser(t *testing.T) {
	h, svc := newUserFixture(t)
	ctx := context.Background()

	_, err := h.results.Commit(ctx, "u1", evaluate(t, model.AnswerMap{0: 0, 1: 0}))
	require.NoError(t, err)
	_, err = h.results.Commit(ctx, "u2", evaluate(t, model.AnswerMap{0: 1, 1: 0}))
	require.NoError(t, err)
	require.NoError(t, h.progress.Save(ctx, sampleProgress("u1", 1, model.AnswerMap{0: 1})))

	deleted, err := svc.DeleteUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	u, err := svc.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, u)

	saved, err := h.progress.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, saved)

	n, err := h.resultRepo.CountByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "other users keep their results")
	assert.Contains(t, h.broadcaster.events, EventUserDeleted)
}

func TestUserService_DeleteUserEndsLiveSession(t *testing.T) {
	h, svc := newUserFixture(t)
	ctx := context.Background()
	sess := startFresh(t, h, "u1")

	_, err := sess.SelectOption(ctx, 0)
	require.NoError(t, err)

	_, err = svc.DeleteUser(ctx, "u1")
	require.NoError(t, err)

	_, err = h.sessions.Get("u1")
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = sess.SelectOption(ctx, 0)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = sess.Complete(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	u, err := h.userRepo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, u, "a deleted user is not recreated by a stale session")
	saved, err := h.progress.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, saved)
	n, err := h.resultRepo.CountByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)
}
