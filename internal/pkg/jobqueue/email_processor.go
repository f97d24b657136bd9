package jobqueue

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/MarcusHaas/NeuraDesk/internal/pkg/mail"
)

// processEmailDeliveryJob delivers one pre-rendered email via SMTP.
func (q *Queue) processEmailDeliveryJob(job *Job) error {
	payload, err := EmailDeliveryJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("failed to parse email delivery job payload: %w", err)
	}

	if strings.TrimSpace(payload.To) == "" {
		return fmt.Errorf("email delivery job %s has no recipient", job.ID)
	}

	log.Infof("[EmailDelivery] Sending %s mail to %s", payload.Kind, payload.To)
	if err := mail.SendMail(payload.To, payload.Subject, payload.Body); err != nil {
		return fmt.Errorf("failed to send %s mail to %s: %w", payload.Kind, payload.To, err)
	}

	return nil
}
