package quota

import (
	"errors"
	"log"

	"github.com/MarcusHaas/NeuraDesk/app/models"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/mail"
	"gorm.io/gorm"
)

// warningThresholds are checked from highest to lowest; the first unsent
// match wins, so a single call sends at most one email.
var warningThresholds = []int{100, 90, 80}

// UserEmailSource resolves the recipient of a warning email.
type UserEmailSource interface {
	GetByID(id uint) (*models.User, error)
}

// ThresholdClaimer flips a warning flag at most once per period.
type ThresholdClaimer interface {
	ClaimWarningThreshold(userID uint, threshold int) (bool, error)
}

// MailSender delivers one rendered message. Failures are swallowed by the
// notifier; email is a best-effort side channel.
type MailSender func(to, subject, body string) error

// WarningNotifier sends the 80/90/100% quota emails. The flag is claimed with
// a conditional write before sending, so a burst of concurrent requests at
// 81% produces one email per period, not one per request.
type WarningNotifier struct {
	users  UserEmailSource
	claims ThresholdClaimer
	send   MailSender
}

func NewWarningNotifier(users UserEmailSource, claims ThresholdClaimer, send MailSender) *WarningNotifier {
	return &WarningNotifier{users: users, claims: claims, send: send}
}

// NewWarningNotifierFromDB wires the notifier to GORM and the SMTP mailer.
func NewWarningNotifierFromDB(db *gorm.DB) *WarningNotifier {
	return NewWarningNotifier(
		&gormUserSource{db: db},
		&repoClaimer{repo: NewRepository(db)},
		mail.SendMail,
	)
}

// NotifyThresholds runs after every successful increment. All failures are
// logged and swallowed; notification is never a correctness-critical path.
func (n *WarningNotifier) NotifyThresholds(userID uint, q *models.UsageQuota) {
	if q == nil || q.AIRequestsLimit <= 0 {
		return
	}
	percentage := q.UsagePercent()

	for _, threshold := range warningThresholds {
		if percentage < threshold {
			continue
		}
		if flagAlreadySent(q, threshold) {
			return
		}

		claimed, err := n.claims.ClaimWarningThreshold(userID, threshold)
		if err != nil {
			log.Printf("quota: claiming %d%% warning for user %d failed: %v", threshold, userID, err)
			return
		}
		if !claimed {
			return
		}
		markFlagSent(q, threshold)

		user, err := n.users.GetByID(userID)
		if err != nil {
			log.Printf("quota: user %d not found for %d%% warning: %v", userID, threshold, err)
			return
		}

		subject, body := mail.BuildQuotaWarning(user.Name, threshold, q)
		if err := n.send(user.Email, subject, body); err != nil {
			log.Printf("quota: sending %d%% warning to %s failed: %v", threshold, user.Email, err)
		}
		return
	}
}

func flagAlreadySent(q *models.UsageQuota, threshold int) bool {
	switch threshold {
	case 100:
		return q.Warning100Sent
	case 90:
		return q.Warning90Sent
	case 80:
		return q.Warning80Sent
	}
	return true
}

func markFlagSent(q *models.UsageQuota, threshold int) {
	switch threshold {
	case 100:
		q.Warning100Sent = true
	case 90:
		q.Warning90Sent = true
	case 80:
		q.Warning80Sent = true
	}
}

type gormUserSource struct {
	db *gorm.DB
}

func (s *gormUserSource) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	if user.Email == "" {
		return nil, errors.New("user has no email address")
	}
	return &user, nil
}

type repoClaimer struct {
	repo Repository
}

func (c *repoClaimer) ClaimWarningThreshold(userID uint, threshold int) (bool, error) {
	return c.repo.SetWarningFlagIfUnset(userID, threshold)
}
