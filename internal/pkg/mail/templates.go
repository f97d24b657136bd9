package mail

import (
	"fmt"

	"github.com/MarcusHaas/NeuraDesk/app/models"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/env"
)

// BuildQuotaWarning renders the subject and HTML body for a quota threshold
// email. Threshold is one of 80, 90, 100.
func BuildQuotaWarning(name string, threshold int, q *models.UsageQuota) (string, string) {
	appName := env.GetEnv("APP_NAME", "NeuraDesk")
	resetDate := q.ResetAt.UTC().Format("January 2, 2006")

	var subject, headline string
	if threshold >= 100 {
		subject = fmt.Sprintf("[%s] You have used up your monthly AI requests", appName)
		headline = "Your monthly AI request quota is exhausted."
	} else {
		subject = fmt.Sprintf("[%s] You have used %d%% of your monthly AI requests", appName, threshold)
		headline = fmt.Sprintf("You have reached %d%% of your monthly AI request quota.", threshold)
	}

	body := fmt.Sprintf(`
<h2>Hi %s,</h2>
<p>%s</p>
<p><strong>%d</strong> of <strong>%d</strong> requests used this period.</p>
<p>Your quota resets on <strong>%s</strong>. Upgrade your plan any time to raise the limit immediately.</p>
<p><a href="%s/pricing">See plans</a></p>
<p>— The %s team</p>`,
		name, headline, q.AIRequestsUsed, q.AIRequestsLimit, resetDate, publicDomain(), appName)

	return subject, body
}

// BuildSubscriptionNotice renders the mail sent when a subscription changes.
func BuildSubscriptionNotice(name, plan, status string) (string, string) {
	appName := env.GetEnv("APP_NAME", "NeuraDesk")
	subject := fmt.Sprintf("[%s] Your subscription is now on the %s plan", appName, plan)
	body := fmt.Sprintf(`
<h2>Hi %s,</h2>
<p>Your subscription changed: plan <strong>%s</strong>, status <strong>%s</strong>.</p>
<p>Your AI request quota has been refreshed to match the new plan.</p>
<p>— The %s team</p>`,
		name, plan, status, appName)
	return subject, body
}

// BuildActivationMail renders the account activation mail.
func BuildActivationMail(name, token string) (string, string) {
	appName := env.GetEnv("APP_NAME", "NeuraDesk")
	subject := fmt.Sprintf("[%s] Activate your account", appName)
	link := fmt.Sprintf("%s/activate?token=%s", publicDomain(), token)
	body := fmt.Sprintf(`
<h2>Welcome %s,</h2>
<p>Click the link below to activate your account. The link is valid for 24 hours.</p>
<p><a href="%s">%s</a></p>
<p>— The %s team</p>`,
		name, link, link, appName)
	return subject, body
}

func publicDomain() string {
	base := env.GetEnv("PUBLIC_DOMAIN", "")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}
	return base
}
