package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/nrin31266/stomphub/internal/domain"
	apperrors "github.com/nrin31266/stomphub/internal/errors"
)

// userEventTopic receives a domain.UserEvent after every successful
// user mutation, so management dashboards subscribed to it stay live.
const userEventTopic = "/topic/manager/users"

type userRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (s *Server) registerUserRoutes(rateLimit echo.MiddlewareFunc) {
	g := s.echo.Group("/users", rateLimit)
	g.GET("", s.handleListUsers)
	g.GET("/:id", s.handleGetUser)
	g.POST("", s.handleCreateUser)
	g.PUT("/:id", s.handleUpdateUser)
	g.DELETE("/:id", s.handleDeleteUser)
}

func (s *Server) handleListUsers(c echo.Context) error {
	users, err := s.users.List(c.Request().Context())
	if err != nil {
		return apperrors.InternalError("failed to list users", err)
	}
	if err := c.JSON(http.StatusOK, users); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleGetUser(c echo.Context) error {
	id, err := parseUserID(c)
	if err != nil {
		return err
	}

	user, err := s.users.Get(c.Request().Context(), id)
	if errors.Is(err, domain.ErrUserNotFound) {
		return apperrors.NotFoundError("user not found").WithContext("user_id", id)
	}
	if err != nil {
		return apperrors.InternalError("failed to load user", err).WithContext("user_id", id)
	}

	if err := c.JSON(http.StatusOK, user); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleCreateUser(c echo.Context) error {
	req, err := bindUserRequest(c)
	if err != nil {
		return err
	}

	user, err := s.users.Create(c.Request().Context(), req.Name, req.Phone)
	if err != nil {
		return apperrors.InternalError("failed to create user", err)
	}

	s.hub.Publish(userEventTopic, domain.UserEvent{User: *user, Action: domain.UserActionAdd})

	if err := c.JSON(http.StatusCreated, user); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleUpdateUser(c echo.Context) error {
	id, err := parseUserID(c)
	if err != nil {
		return err
	}
	req, err := bindUserRequest(c)
	if err != nil {
		return err
	}

	user, err := s.users.Update(c.Request().Context(), id, req.Name, req.Phone)
	if errors.Is(err, domain.ErrUserNotFound) {
		return apperrors.NotFoundError("user not found").WithContext("user_id", id)
	}
	if err != nil {
		return apperrors.InternalError("failed to update user", err).WithContext("user_id", id)
	}

	s.hub.Publish(userEventTopic, domain.UserEvent{User: *user, Action: domain.UserActionUpdate})

	if err := c.JSON(http.StatusOK, user); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleDeleteUser(c echo.Context) error {
	id, err := parseUserID(c)
	if err != nil {
		return err
	}

	err = s.users.Delete(c.Request().Context(), id)
	if errors.Is(err, domain.ErrUserNotFound) {
		return apperrors.NotFoundError("user not found").WithContext("user_id", id)
	}
	if err != nil {
		return apperrors.InternalError("failed to delete user", err).WithContext("user_id", id)
	}

	// Subscribers only need the id to drop the row.
	s.hub.Publish(userEventTopic, domain.UserEvent{User: domain.User{ID: id}, Action: domain.UserActionDelete})

	return c.NoContent(http.StatusNoContent)
}

func parseUserID(c echo.Context) (int32, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, apperrors.ValidationError("invalid user id").WithContext("id", raw)
	}
	return int32(id), nil
}

func bindUserRequest(c echo.Context) (*userRequest, error) {
	var req userRequest
	if err := c.Bind(&req); err != nil {
		return nil, apperrors.ValidationError("invalid request body")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.ValidationError("name is required")
	}
	return &req, nil
}
