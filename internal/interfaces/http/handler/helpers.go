package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
)

// toDecimalPtr converts a float64 to a *decimal.Decimal
func toDecimalPtr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

// toDecimal converts a float64 to a decimal.Decimal
func toDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// toDecimalFromString parses an exact decimal string from a request body.
func toDecimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// bindFilter reads the common pagination and ordering query parameters.
func bindFilter(c *gin.Context) shared.Filter {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return shared.Filter{
		Page:     page,
		PageSize: pageSize,
		OrderBy:  c.Query("order_by"),
		OrderDir: c.Query("order_dir"),
		Search:   c.Query("search"),
	}
}

// parseQuantity parses a request quantity string into the exact fixed-point
// representation the ledger uses. Floats never enter stock math.
func parseQuantity(s string) (valueobject.Quantity, error) {
	return valueobject.NewQuantityFromString(s)
}
