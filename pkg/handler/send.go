package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"custody_payments_back/models"
	"custody_payments_back/pkg/currency"
	"custody_payments_back/pkg/middleware"
)

func currentUser(c *gin.Context) (models.User, bool) {
	value, exists := c.Get(middleware.UserCtx)
	if !exists {
		newErrorResponse(c, http.StatusUnauthorized, "user is not authorized")
		return models.User{}, false
	}
	user, ok := value.(models.User)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "user is not authorized")
		return models.User{}, false
	}
	return user, true
}

// Создание send с адреса :id; повторный запрос с тем же requestId вернёт
// уже исполненный send без повторного бродкаста
func (h *Handler) CreateSend(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CreateSendRequest
	if err := c.BindJSON(&req); err != nil {
		newErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	send, err := h.service.Sends.ExecuteSend(user, c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	wrapOkJSON(c, map[string]interface{}{
		"data": send,
	})
}

func (h *Handler) CreateMultiSend(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CreateMultiSendRequest
	if err := c.BindJSON(&req); err != nil {
		newErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	send, err := h.service.Sends.ExecuteMultiSend(user, c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	wrapOkJSON(c, map[string]interface{}{
		"data": send,
	})
}

func (h *Handler) GetSend(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	send, err := h.service.Sends.GetSend(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if send.UserID != user.ID {
		newErrorResponse(c, http.StatusForbidden, "Not authorized to view this send")
		return
	}

	wrapOkJSON(c, map[string]interface{}{
		"data": send,
	})
}

// Оценка комиссии по всем приоритетам; ничего не компонует и не блокирует
func (h *Handler) EstimateFee(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.EstimateFeeRequest
	if err := c.BindJSON(&req); err != nil {
		newErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	feeInfo, err := h.service.Sends.EstimateFee(user, c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	fees := make(map[string]interface{}, len(feeInfo.Fees)*2)
	for tier, feeSat := range feeInfo.Fees {
		fees[tier] = currency.SatoshisToValue(feeSat)
		fees[tier+"Sat"] = feeSat
	}

	wrapOkJSON(c, map[string]interface{}{
		"data": map[string]interface{}{
			"fees": fees,
			"size": feeInfo.Size,
		},
	})
}

func (h *Handler) Cleanup(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CleanupRequest
	if err := c.BindJSON(&req); err != nil {
		newErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Sends.Cleanup(user, c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	wrapOkJSON(c, map[string]interface{}{
		"data": result,
	})
}

// Текущие ставки комиссии: для каждого приоритета float-значение
// и целочисленный satoshi-дубль с суффиксом Sat
func (h *Handler) GetFeeRates(c *gin.Context) {
	rates, err := h.service.Sends.FeeRates()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	data := make(map[string]interface{}, len(rates)*2)
	for tier, satPerByte := range rates {
		data[tier] = currency.SatoshisToValue(satPerByte)
		data[tier+"Sat"] = satPerByte
	}

	wrapOkJSON(c, map[string]interface{}{
		"data": data,
	})
}
