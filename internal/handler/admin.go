package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"volunteer_chat/internal/jobs"
	"volunteer_chat/internal/service"
	"volunteer_chat/pkg/logger"
)

// ExpiryRunner runs the featured-project expiry once.
type ExpiryRunner interface {
	Run(ctx context.Context) (jobs.FeaturedExpiryResult, error)
}

type AdminHandler struct {
	featuredService service.FeaturedService
	expiry          ExpiryRunner
	log             logger.Logger
}

func NewAdminHandler(featuredService service.FeaturedService, expiry ExpiryRunner, log logger.Logger) *AdminHandler {
	return &AdminHandler{
		featuredService: featuredService,
		expiry:          expiry,
		log:             log,
	}
}

func (h *AdminHandler) FeatureProject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req service.FeatureProjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	featured, err := h.featuredService.Feature(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, featured)
}

// ExpireFeatured triggers the expiry job outside its schedule.
func (h *AdminHandler) ExpireFeatured(c *gin.Context) {
	result, err := h.expiry.Run(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
