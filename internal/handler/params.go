package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"vehicle_import/internal/domain"
	"vehicle_import/internal/middleware"
	apperrors "vehicle_import/pkg/errors"
)

func parseIDParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validation("invalid %s", name)
	}
	return id, nil
}

func queryInt64(c *gin.Context, name string) (*int64, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperrors.Validation("invalid %s", name)
	}
	return &v, nil
}

func queryInt(c *gin.Context, name string) (int, error) {
	v, err := queryInt64(c, name)
	if err != nil || v == nil {
		return 0, err
	}
	return int(*v), nil
}

func principal(c *gin.Context) (domain.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return domain.Principal{}, apperrors.New(apperrors.ErrUnauthorized, "authentication required")
	}
	return p, nil
}

func bindError(err error) error {
	return apperrors.Validation("invalid request body: %v", err)
}
