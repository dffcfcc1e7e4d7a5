package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-billing/internal/domain/errs"
	"github.com/oksasatya/go-ddd-billing/pkg/response"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindMessaging:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorDetails(err error) any {
	var e *errs.Error
	if !errors.As(err, &e) {
		return nil
	}
	switch e.Kind {
	case errs.KindValidation, errs.KindConflict:
		if e.Field != "" {
			return map[string]string{e.Field: e.Message}
		}
	}
	return nil
}

// respondError writes err using the shared envelope. Messaging failures happen
// after commit, so the committed entity goes out in data alongside the error.
func respondError[T any](c *gin.Context, logger *logrus.Logger, err error, committed T) {
	status := StatusFor(err)
	msg := err.Error()
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"status":     status,
		"path":       c.FullPath(),
	})
	switch {
	case status == http.StatusBadGateway:
		entry.Warn("request committed but event publish failed")
		msg = "changes saved but event publication failed"
		response.ErrorWithData(c, status, msg, errorDetails(err), committed)
		return
	case status >= http.StatusInternalServerError:
		entry.Error("request failed")
		msg = "internal server error"
	default:
		entry.Debug("request rejected")
	}
	response.Error[any](c, status, msg, errorDetails(err))
}

func badRequest(c *gin.Context, message string, details any) {
	response.Error[any](c, http.StatusBadRequest, message, details)
}
