package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	mwauth "github.com/K-dubey09/bookstore/internal/middleware/auth"
	"github.com/K-dubey09/bookstore/internal/resource"
)

// ResourceHandler exposes the collection registry over generic CRUD routes.
type ResourceHandler struct {
	Registry *resource.Registry
}

func (h *ResourceHandler) collection(c echo.Context) (resource.Collection, error) {
	col, ok := h.Registry.Lookup(c.Param("collection"))
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "unknown collection")
	}
	return col, nil
}

func (h *ResourceHandler) List(c echo.Context) error {
	col, err := h.collection(c)
	if err != nil {
		return err
	}

	id := mwauth.From(c)
	if !col.Public() && id.IsAnonymous() {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	out, err := col.List(c.Request().Context(), id, c.QueryParams())
	if err != nil {
		return resourceError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ResourceHandler) Create(c echo.Context) error {
	col, err := h.collection(c)
	if err != nil {
		return err
	}

	id := mwauth.From(c)
	if id.IsAnonymous() {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil || !json.Valid(payload) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	out, err := col.Create(c.Request().Context(), id, payload)
	if err != nil {
		return resourceError(err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *ResourceHandler) Update(c echo.Context) error {
	col, err := h.collection(c)
	if err != nil {
		return err
	}

	id := mwauth.From(c)
	if id.IsAnonymous() {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	resID, err := strconv.Atoi(c.Param("id"))
	if err != nil || resID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil || !json.Valid(payload) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	out, err := col.Update(c.Request().Context(), id, uint(resID), payload)
	if err != nil {
		return resourceError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ResourceHandler) Delete(c echo.Context) error {
	col, err := h.collection(c)
	if err != nil {
		return err
	}

	id := mwauth.From(c)
	if id.IsAnonymous() {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	resID, err := strconv.Atoi(c.Param("id"))
	if err != nil || resID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := col.Delete(c.Request().Context(), id, uint(resID)); err != nil {
		return resourceError(err)
	}
	return c.NoContent(http.StatusOK)
}

// resourceError maps the collection sentinels to stable, role-agnostic HTTP
// denials.
func resourceError(err error) error {
	switch {
	case errors.Is(err, resource.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, resource.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	case errors.Is(err, resource.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, resource.ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, "username taken")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
