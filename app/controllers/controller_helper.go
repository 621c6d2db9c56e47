package controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

const defaultPageSize = 25
const maxPageSize = 100

// parsePagination reads page/page_size query params into offset/limit.
func parsePagination(c *fiber.Ctx) (offset, limit int) {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.Query("page_size", strconv.Itoa(defaultPageSize)))
	if err != nil || size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return (page - 1) * size, size
}

// formatTimePtr renders an optional timestamp as RFC3339 UTC, nil-safe.
func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
