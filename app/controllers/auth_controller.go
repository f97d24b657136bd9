package controllers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"

	"github.com/MarcusHaas/NeuraDesk/app/models"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/database"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/jobqueue"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/mail"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/session"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/statistics"
)

const (
	AUTH_KEY       string = "authenticated"
	USER_ID        string = "user_id"
	USER_NAME      string = "username"
	USER_IS_ADMIN  string = "isAdmin"
	FROM_PROTECTED string = "fromProtected"
)

func HandleAuthLogin(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		var user models.User
		fm := fiber.Map{
			"type": "error",
		}

		// notice: in production you should not inform the user
		// with detailed messages about login failures
		result := database.GetDB().Where("email = ?", c.FormValue("email")).First(&user)
		if result.Error != nil {
			fm["message"] = "There is a problem with the login process"

			return flash.WithError(c, fm).Redirect("/login")
		}

		if !models.CheckPasswordHash(c.FormValue("password"), user.Password) {
			fm["message"] = "There is a problem with the login process"

			return flash.WithError(c, fm).Redirect("/login")
		}

		if !user.IsActive() {
			fm["message"] = "Bitte aktiviere zuerst dein Konto über den Link in der E-Mail"

			return flash.WithError(c, fm).Redirect("/login")
		}

		sess, err := session.GetSessionStore().Get(c)
		if err != nil {
			fm["message"] = fmt.Sprintf("something went wrong: %s", err)

			return flash.WithError(c, fm).Redirect("/login")
		}

		sess.Set(AUTH_KEY, true)
		sess.Set(USER_ID, user.ID)
		sess.Set(USER_NAME, user.Name)
		sess.Set(USER_IS_ADMIN, user.Role == models.ROLE_ADMIN)

		if err := sess.Save(); err != nil {
			fm["message"] = fmt.Sprintf("something went wrong: %s", err)

			return flash.WithError(c, fm).Redirect("/login")
		}

		database.GetDB().Model(&user).Update("last_login_at", time.Now())

		ipv4, ipv6 := GetClientIP(c)
		log.Infof("[Auth] login user=%d ip4=%s ip6=%s", user.ID, ipv4, ipv6)

		fm = fiber.Map{
			"type":    "success",
			"message": "Glückwunsch du bist drin! Viel Spaß!",
		}

		return flash.WithSuccess(c, fm).Redirect("/")
	}

	return c.Render("auth/login", fiber.Map{
		"Title":         "Einloggen",
		"CSRFToken":     c.Locals("csrf"),
		"Flash":         flash.Get(c),
		"FromProtected": isLoggedIn(c),
	})
}

func HandleAuthLogout(c *fiber.Ctx) error {
	fm := fiber.Map{
		"type": "error",
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		fm["message"] = "logged out (no sess)"

		return flash.WithError(c, fm).Redirect("/login")
	}

	if err := sess.Destroy(); err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)

		return flash.WithError(c, fm).Redirect("/login")
	}

	fm = fiber.Map{
		"type":    "success",
		"message": "Bye bye! Auf wiedersehen.",
	}

	c.Locals(FROM_PROTECTED, false)

	return flash.WithSuccess(c, fm).Redirect("/login")
}

func HandleAuthRegister(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		user, err := models.CreateUser(c.FormValue("username"), c.FormValue("email"), c.FormValue("password"))
		if err != nil {
			fm := fiber.Map{
				"type":    "error",
				"message": fmt.Sprintf("something went wrong: %s", err),
			}

			return flash.WithError(c, fm).Redirect("/register")
		}

		if err := user.GenerateActivationToken(); err != nil {
			fm := fiber.Map{
				"type":    "error",
				"message": fmt.Sprintf("something went wrong: %s", err),
			}

			return flash.WithError(c, fm).Redirect("/register")
		}

		if err := database.GetDB().Create(&user).Error; err != nil {
			fm := fiber.Map{
				"type":    "error",
				"message": fmt.Sprintf("something went wrong: %s", err),
			}

			return flash.WithError(c, fm).Redirect("/register")
		}

		enqueueActivationMail(user)

		// Update statistics after registration
		go statistics.UpdateStatisticsCache()

		fm := fiber.Map{
			"type":    "success",
			"message": "Mega! Du hast dich erfolgreich registriert! Bitte bestätige deine E-Mail.",
		}

		return flash.WithSuccess(c, fm).Redirect("/login")
	}

	return c.Render("auth/register", fiber.Map{
		"Title":         "Registrieren",
		"CSRFToken":     c.Locals("csrf"),
		"Flash":         flash.Get(c),
		"FromProtected": isLoggedIn(c),
	})
}

// HandleAuthActivate consumes the activation token from the registration mail.
func HandleAuthActivate(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Query("token", c.FormValue("token")))
	if token == "" {
		return c.Render("auth/activate", fiber.Map{
			"Title":     "Konto aktivieren",
			"CSRFToken": c.Locals("csrf"),
			"Flash":     flash.Get(c),
		})
	}

	var user models.User
	if err := database.GetDB().Where("activation_token = ?", token).First(&user).Error; err != nil {
		fm := fiber.Map{"type": "error", "message": "Ungültiger oder abgelaufener Aktivierungslink"}
		return flash.WithError(c, fm).Redirect("/login")
	}

	updates := map[string]interface{}{
		"status":           models.STATUS_ACTIVE,
		"activation_token": "",
	}
	if err := database.GetDB().Model(&user).Updates(updates).Error; err != nil {
		fm := fiber.Map{"type": "error", "message": "Aktivierung fehlgeschlagen"}
		return flash.WithError(c, fm).Redirect("/login")
	}

	fm := fiber.Map{"type": "success", "message": "Konto aktiviert! Du kannst dich jetzt einloggen."}
	return flash.WithSuccess(c, fm).Redirect("/login")
}

// enqueueActivationMail renders the activation mail and hands delivery to the
// job queue. Delivery problems must never fail the registration flow.
func enqueueActivationMail(user *models.User) {
	subject, body := mail.BuildActivationMail(user.Name, user.ActivationToken)
	manager := jobqueue.GetManager()
	if !manager.IsRunning() {
		// No workers: deliver inline, best-effort.
		_ = mail.SendMail(user.Email, subject, body)
		return
	}
	_, _ = manager.GetQueue().EnqueueJob(jobqueue.JobTypeEmailDelivery, jobqueue.EmailDeliveryJobPayload{
		To:      user.Email,
		Subject: subject,
		Body:    body,
		Kind:    "account_activation",
		UserID:  user.ID,
	}.ToMap())
}
