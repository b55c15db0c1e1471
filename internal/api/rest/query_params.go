package rest

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/nextplace/prediction-engine/internal/store"
)

const MAX_PAGE_SIZE = 100

// SearchPropertiesQueryParams holds query parameters for GET /properties
type SearchPropertiesQueryParams struct {
	// Filters
	Market   string   `form:"market"`
	City     string   `form:"city"`
	MinPrice *float64 `form:"min_price"`
	MaxPrice *float64 `form:"max_price"`
	Sold     *bool    `form:"sold"`

	// Pagination
	Limit  int    `form:"limit,default=20"`
	Offset uint64 `form:"offset,default=0"`
}

// Validate checks filter consistency
func (p *SearchPropertiesQueryParams) Validate() error {
	if p.Limit < 1 {
		return fmt.Errorf("limit must be positive")
	}
	if p.MinPrice != nil && *p.MinPrice < 0 {
		return fmt.Errorf("min_price must not be negative")
	}
	if p.MinPrice != nil && p.MaxPrice != nil && *p.MaxPrice < *p.MinPrice {
		return fmt.Errorf("max_price must not be less than min_price")
	}
	return nil
}

// ToFilter converts the query parameters into a store filter
func (p *SearchPropertiesQueryParams) ToFilter() store.PropertyQueryFilter {
	return store.PropertyQueryFilter{
		Market:   p.Market,
		City:     p.City,
		MinPrice: p.MinPrice,
		MaxPrice: p.MaxPrice,
		Sold:     p.Sold,
		Limit:    p.Limit,
		Offset:   p.Offset,
	}
}

// ParseSearchPropertiesQuery parses query parameters for GET /properties
func ParseSearchPropertiesQuery(c *gin.Context) (*SearchPropertiesQueryParams, error) {
	var params SearchPropertiesQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}

	// Cap limits
	if params.Limit > MAX_PAGE_SIZE {
		params.Limit = MAX_PAGE_SIZE
	}

	return &params, nil
}

// PaginationQueryParams holds plain limit/offset pagination
type PaginationQueryParams struct {
	Limit  int    `form:"limit,default=20"`
	Offset uint64 `form:"offset,default=0"`
}

// ParsePaginationQuery parses limit/offset query parameters
func ParsePaginationQuery(c *gin.Context) (*PaginationQueryParams, error) {
	var params PaginationQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}

	if params.Limit < 1 {
		return nil, fmt.Errorf("limit must be positive")
	}
	if params.Limit > MAX_PAGE_SIZE {
		params.Limit = MAX_PAGE_SIZE
	}

	return &params, nil
}
