package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"custody_payments_back/pkg/composer"
	"custody_payments_back/pkg/locker"
	"custody_payments_back/pkg/service"
)

type Error struct {
	Message string `json:"message"`
}

func newErrorResponse(c *gin.Context, statusCode int, message string) {
	logrus.Error(message)
	c.AbortWithStatusJSON(statusCode, Error{Message: message})
}

func wrapOkJSON(c *gin.Context, response map[string]interface{}) {
	c.JSON(http.StatusOK, response)
}

// respondServiceError переводит доменные ошибки в HTTP-статусы; всё
// неопознанное маскируется, чтобы не светить внутренности наружу
func respondServiceError(c *gin.Context, err error) {
	switch typed := err.(type) {
	case *service.ValidationError:
		newErrorResponse(c, http.StatusUnprocessableEntity, typed.Message)
	case *service.NotFoundError:
		newErrorResponse(c, http.StatusNotFound, typed.Message)
	case *service.AuthorizationError:
		newErrorResponse(c, http.StatusForbidden, typed.Message)
	case *service.AccountError:
		newErrorResponse(c, typed.StatusCode, typed.Message)
	case *composer.PaymentError:
		newErrorResponse(c, http.StatusInternalServerError, typed.Message)
	default:
		if err == locker.ErrLockTimeout {
			newErrorResponse(c, http.StatusBadRequest, "unable to compose a new transaction")
			return
		}
		logrus.Errorf("error.unhandled: %s", err)
		newErrorResponse(c, http.StatusInternalServerError, "Unable to complete this request")
	}
}
