package quota

import (
	"errors"
	"testing"
	"time"

	"github.com/MarcusHaas/NeuraDesk/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserSource struct {
	user *models.User
	err  error
}

func (f *fakeUserSource) GetByID(id uint) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

type fakeClaimer struct {
	claimed map[int]bool
	deny    bool
	err     error
}

func (f *fakeClaimer) ClaimWarningThreshold(userID uint, threshold int) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.deny || f.claimed[threshold] {
		return false, nil
	}
	if f.claimed == nil {
		f.claimed = map[int]bool{}
	}
	f.claimed[threshold] = true
	return true, nil
}

type sentMail struct {
	to, subject, body string
}

func notifierFixture() (*WarningNotifier, *fakeClaimer, *[]sentMail) {
	claims := &fakeClaimer{}
	var sent []sentMail
	n := NewWarningNotifier(
		&fakeUserSource{user: &models.User{Name: "Ana", Email: "ana@example.com"}},
		claims,
		func(to, subject, body string) error {
			sent = append(sent, sentMail{to: to, subject: subject, body: body})
			return nil
		},
	)
	return n, claims, &sent
}

func quotaAt(used, limit int64) *models.UsageQuota {
	return &models.UsageQuota{
		UserID:          1,
		AIRequestsUsed:  used,
		AIRequestsLimit: limit,
		ResetAt:         time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestNotifierCrossing80SendsOnce(t *testing.T) {
	n, claims, sent := notifierFixture()

	q := quotaAt(20, 25) // 80%
	n.NotifyThresholds(1, q)
	require.Len(t, *sent, 1)
	assert.Equal(t, "ana@example.com", (*sent)[0].to)
	assert.Contains(t, (*sent)[0].subject, "80%")
	assert.True(t, q.Warning80Sent)

	// 84% later the same period: flag already set, nothing new.
	q.AIRequestsUsed = 21
	n.NotifyThresholds(1, q)
	assert.Len(t, *sent, 1)
	assert.True(t, claims.claimed[80])
}

func TestNotifierHighestUnsentThresholdWins(t *testing.T) {
	n, _, sent := notifierFixture()

	// A burst jumps straight from 50% to 100%: one email, for 100%.
	q := quotaAt(25, 25)
	n.NotifyThresholds(1, q)

	require.Len(t, *sent, 1)
	assert.Contains(t, (*sent)[0].subject, "used up")
	assert.True(t, q.Warning100Sent)
	assert.False(t, q.Warning80Sent, "lower thresholds are not back-filled")
}

func TestNotifierBelowThresholdSendsNothing(t *testing.T) {
	n, _, sent := notifierFixture()
	n.NotifyThresholds(1, quotaAt(19, 25)) // 76%
	assert.Empty(t, *sent)
}

func TestNotifierLostClaimSendsNothing(t *testing.T) {
	// Another request in a concurrent burst already claimed the flag.
	n, claims, sent := notifierFixture()
	claims.deny = true

	n.NotifyThresholds(1, quotaAt(20, 25))
	assert.Empty(t, *sent)
}

func TestNotifierClaimErrorIsSwallowed(t *testing.T) {
	n, claims, sent := notifierFixture()
	claims.err = errors.New("db down")

	n.NotifyThresholds(1, quotaAt(20, 25))
	assert.Empty(t, *sent)
}

func TestNotifierMissingUserIsSwallowed(t *testing.T) {
	claims := &fakeClaimer{}
	var sent []sentMail
	n := NewWarningNotifier(
		&fakeUserSource{err: errors.New("record not found")},
		claims,
		func(to, subject, body string) error {
			sent = append(sent, sentMail{to: to})
			return nil
		},
	)

	n.NotifyThresholds(1, quotaAt(20, 25))
	assert.Empty(t, sent)
	assert.True(t, claims.claimed[80], "flag stays claimed even when the email cannot go out")
}

func TestNotifierUnlimitedQuotaIgnored(t *testing.T) {
	n, _, sent := notifierFixture()
	n.NotifyThresholds(1, quotaAt(5000, models.UnlimitedAIRequests))
	assert.Empty(t, *sent)
}
