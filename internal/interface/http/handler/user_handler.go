package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/users-api/internal/domain/repository"
	"github.com/wichananm65/users-api/internal/interface/presenter"
	"github.com/wichananm65/users-api/internal/logging"
	"github.com/wichananm65/users-api/internal/usecase"
)

const (
	msgCreateFailed = "An error occurred when attempting to create a User."
	msgListFailed   = "An error occurred when attempting to get the users."
)

// UserHandler adapts HTTP requests to use case calls.
type UserHandler struct {
	usecase   usecase.UserUsecase
	presenter *presenter.UserPresenter
	logger    logging.Logger
}

func NewUserHandler(usecase usecase.UserUsecase, presenter *presenter.UserPresenter, logger logging.Logger) *UserHandler {
	return &UserHandler{usecase: usecase, presenter: presenter, logger: logger}
}

func (h *UserHandler) RegisterRoutes(router fiber.Router) {
	users := router.Group("/users")
	users.Post("/create", h.createUser)
	users.Get("", h.listUsers)
	users.Delete("/:user_id", h.deleteUser)
}

func (h *UserHandler) createUser(c *fiber.Ctx) error {
	ctx := c.UserContext()
	log := h.logger.With("request_id", RequestID(c))

	input, details := DecodeCreateUser(c.Body())
	if details != nil {
		log.Info(ctx, "create user rejected", "violations", len(details))
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": details})
	}

	user, err := h.usecase.Create(ctx, input)
	if err != nil {
		logStorageError(ctx, log, "create user failed", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msgCreateFailed})
	}

	log.Info(ctx, "user created", "user_id", user.ID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": fmt.Sprintf("User with id of %d created successfully.", user.ID),
	})
}

func (h *UserHandler) listUsers(c *fiber.Ctx) error {
	ctx := c.UserContext()
	log := h.logger.With("request_id", RequestID(c))

	users, err := h.usecase.List(ctx)
	if err != nil {
		logStorageError(ctx, log, "list users failed", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msgListFailed})
	}

	log.Debug(ctx, "users listed", "count", len(users))
	return c.JSON(h.presenter.ToList(users))
}

func (h *UserHandler) deleteUser(c *fiber.Ctx) error {
	ctx := c.UserContext()
	log := h.logger.With("request_id", RequestID(c))

	id, detail := ParseUserID(c.Params("user_id"))
	if detail != nil {
		log.Info(ctx, "delete user rejected", "user_id", c.Params("user_id"))
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"detail": []ValidationErrorDetail{*detail},
		})
	}

	err := h.usecase.Delete(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		log.Info(ctx, "user not found", "user_id", id)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": fmt.Sprintf("User with id %d not found.", id),
		})
	case err != nil:
		logStorageError(ctx, log, "delete user failed", err, "user_id", id)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("An error occurred when attempting to delete a User with id the of %d.", id),
		})
	}

	log.Info(ctx, "user deleted", "user_id", id)
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("User with id of %d has been deleted successfully.", id),
	})
}

// RequestID returns the id the requestid middleware stored for this request.
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}

func logStorageError(ctx context.Context, log logging.Logger, msg string, err error, args ...any) {
	var storageErr *repository.StorageError
	if errors.As(err, &storageErr) {
		args = append(args, "op", storageErr.Op)
	}
	args = append(args, "error", err)
	log.Error(ctx, msg, args...)
}
