package handler

import (
	"custody_payments_back/pkg/middleware"
	"custody_payments_back/pkg/repository"
	"custody_payments_back/pkg/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *service.Service
	repos   *repository.Repository
}

func NewHandler(service *service.Service, repos *repository.Repository) *Handler {
	return &Handler{
		service: service,
		repos:   repos,
	}
}

func (h *Handler) InitRoute() *gin.Engine {
	router := gin.New()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "X-Api-Token"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))

	api := router.Group("/api", middleware.AuthMiddleware(h.repos.Authorization))
	{
		sends := api.Group("/sends")
		{
			sends.POST("/:id", h.CreateSend)
			sends.GET("/:id", h.GetSend)
			sends.GET("/:id/estimate-fee", h.EstimateFee)
			sends.POST("/:id/cleanup", h.Cleanup)
		}
		api.POST("/multisends/:id", h.CreateMultiSend)
		api.GET("/fee-rates", h.GetFeeRates)
	}
	return router
}
