// handlers/gamification.go
package handlers

import (
	"errors"
	"strconv"

	"java-quest-backend/middleware"
	"java-quest-backend/models"
	"java-quest-backend/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// ProgressRequest is the body of POST /progress: one completed challenge.
type ProgressRequest struct {
	UserID       string   `json:"userId" validate:"required"`
	XPGained     int64    `json:"xpGained" validate:"min=0"`
	BadgesEarned []string `json:"badgesEarned" validate:"omitempty,dive,required,max=64"`
}

func SetupGamificationRoutes(app *fiber.App, progressService *services.ProgressService, leaderboardService *services.LeaderboardService, badgeService *services.BadgeService, jwtSecret []byte) {
	// 🔓 Public routes — game clients call these with the userId from login
	app.Post("/progress", func(c *fiber.Ctx) error {
		var req ProgressRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if err := validate.Struct(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid progress payload",
				"cause": err.Error(),
			})
		}

		user, err := progressService.ApplyProgress(c.Context(), req.UserID, req.XPGained, req.BadgesEarned)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrUserNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "user not found",
				})
			case errors.Is(err, services.ErrNegativeXP):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "xpGained must not be negative",
				})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to update progress",
					"cause": err.Error(),
				})
			}
		}

		return c.JSON(userResponse(user))
	})

	app.Get("/leaderboard", func(c *fiber.Ctx) error {
		rows, err := leaderboardService.GetLeaderboard(c.Context())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load leaderboard",
				"cause": err.Error(),
			})
		}

		res := make([]fiber.Map, len(rows))
		for i, row := range rows {
			res[i] = fiber.Map{
				"name":   row.Name,
				"xp":     row.XP,
				"level":  row.Level,
				"badges": row.Badges,
			}
		}
		return c.JSON(res)
	})

	app.Get("/rank/:userId", func(c *fiber.Ctx) error {
		rank, err := leaderboardService.GetRank(c.Context(), c.Params("userId"))
		if err != nil {
			switch {
			case errors.Is(err, services.ErrRankUnavailable):
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rank lookup unavailable",
				})
			case errors.Is(err, services.ErrUserNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "user not ranked",
				})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to look up rank",
					"cause": err.Error(),
				})
			}
		}
		return c.JSON(fiber.Map{
			"user_id": c.Params("userId"),
			"rank":    rank,
		})
	})

	app.Get("/badges", func(c *fiber.Ctx) error {
		catalog, err := badgeService.ListCatalog(c.Context())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load badge catalog",
				"cause": err.Error(),
			})
		}
		return c.JSON(catalog)
	})

	// 🔐 Authenticated routes — token from /auth/login
	secured := app.Group("/me", middleware.UserContextMiddleware(jwtSecret))

	secured.Get("/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		user, err := progressService.GetProgress(c.Context(), userID)
		if err != nil {
			if errors.Is(err, services.ErrUserNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "user not found",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load progress",
				"cause": err.Error(),
			})
		}
		return c.JSON(userResponse(user))
	})

	secured.Get("/history", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		days, _ := strconv.Atoi(c.Query("days", "7"))
		events, err := progressService.GetRecentEvents(c.Context(), userID, days)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load history",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"events": events,
		})
	})
}

// userResponse projects a record to the progress payload — never the email or
// password hash.
func userResponse(user *models.User) fiber.Map {
	return fiber.Map{
		"id":          user.ID,
		"name":        user.Name,
		"xp":          user.XP,
		"level":       user.Level,
		"badges":      user.Badges,
		"totalSolved": user.TotalSolved,
	}
}
