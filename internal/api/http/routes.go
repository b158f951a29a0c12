package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/havet-arena/internal/bathing"
	"github.com/i474232898/havet-arena/internal/store"
)

var validate = validator.New()

const dateLayout = "2006-01-02"

// Refresher triggers a full widget refresh.
type Refresher interface {
	Refresh(ctx context.Context) string
}

// Board exposes what the widget currently shows.
type Board interface {
	Snapshot() store.Snapshot
	LatestResult() (bathing.ReconciliationResult, error)
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, refresher Refresher, board Board, now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	v1 := app.Group("/api/v1")

	v1.Get("/widget", func(c *fiber.Ctx) error {
		return c.JSON(board.Snapshot())
	})

	v1.Get("/bacteria", func(c *fiber.Ctx) error {
		res, err := board.LatestResult()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no bacteria result yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read bacteria result")
		}
		return c.JSON(res)
	})

	v1.Post("/refresh", func(c *fiber.Ctx) error {
		id := refresher.Refresh(c.UserContext())
		return c.JSON(fiber.Map{
			"refreshId": id,
			"widget":    board.Snapshot(),
		})
	})

	v1.Get("/week", func(c *fiber.Ctx) error {
		q, err := parseWeekQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		day := now()
		if q.Date != "" {
			if day, err = time.Parse(dateLayout, q.Date); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}

		wy := bathing.WeekOf(day)
		return c.JSON(fiber.Map{
			"date": day.Format(dateLayout),
			"week": wy.Week,
			"year": wy.Year,
		})
	})
}

// weekQuery holds query parameters for the week endpoint.
type weekQuery struct {
	Date string `validate:"omitempty,datetime=2006-01-02"`
}

func parseWeekQuery(c *fiber.Ctx) (weekQuery, error) {
	q := weekQuery{Date: c.Query("date")}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}
