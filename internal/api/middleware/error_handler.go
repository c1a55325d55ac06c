package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/api/codec"
	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
)

type errorBody struct {
	Code    string `json:"code" cbor:"code"`
	Message string `json:"message" cbor:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error" cbor:"error"`
}

func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return send(c, fiberErr.Code, "HTTP_ERROR", fiberErr.Message)
		}

		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			if appErr.StatusCode >= 500 {
				logger.Error("internal error",
					slog.String("code", appErr.Code),
					slog.String("message", appErr.Message),
					slog.Any("error", appErr.Err),
					slog.String("request_id", requestID(c)),
				)
			}
			return send(c, appErr.StatusCode, appErr.Code, appErr.Error())
		}

		// backend failures that never became an AppError
		logger.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Path()),
			slog.String("request_id", requestID(c)),
		)

		return send(c, fiber.StatusInternalServerError, domain.ErrInternal.Code, err.Error())
	}
}

func send(c *fiber.Ctx, status int, code, message string) error {
	return codec.Send(c, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}
