package utils

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type PageOptions struct {
	Page     int
	PerPage  int
	Paginate bool
}

// ParsePageOptions reads the page/perPage/paginate query parameters.
func ParsePageOptions(c *fiber.Ctx) PageOptions {
	return PageOptionsFrom(c.Query("page"), c.Query("perPage"), c.Query("paginate"))
}

// PageOptionsFrom coerces the textual parameters: page defaults to 1,
// perPage to 10, both clamped positive; paginate defaults to true and is
// disabled only by the literal "false".
func PageOptionsFrom(page, perPage, paginate string) PageOptions {
	opts := PageOptions{
		Page:     parseIntDefault(page, 1),
		PerPage:  parseIntDefault(perPage, 10),
		Paginate: paginate != "false",
	}
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PerPage < 1 {
		opts.PerPage = 10
	}
	return opts
}

// ApplyPage adds offset/limit to the query unless pagination is disabled,
// in which case the whole filtered set comes back as one page.
func ApplyPage(db *gorm.DB, opts PageOptions) *gorm.DB {
	if !opts.Paginate {
		return db
	}
	return db.Offset((opts.Page - 1) * opts.PerPage).Limit(opts.PerPage)
}

// FilterLike adds a case-insensitive substring match on column when value
// is non-empty; an absent filter matches everything.
func FilterLike(db *gorm.DB, column, value string) *gorm.DB {
	value = strings.TrimSpace(value)
	if value == "" {
		return db
	}
	return db.Where("LOWER("+column+") LIKE ?", "%"+strings.ToLower(value)+"%")
}

func parseIntDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
