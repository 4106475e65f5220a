package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-file-hub/utils"
)

// StorageStats returns the requesting user's quota ledger: actual usage,
// logical usage and the savings deduplication bought them.
func (ctrl *Controller) StorageStats(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		utils.JSON401(c, "Unauthorized: user_id not found")
		return
	}

	stats, err := ctrl.Stats.UserStorage(userID)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(c.Request.Context(), err, "[Stats] Failed to load storage stats for user %s", userID)
		utils.JSON500(c, "Failed to load storage stats")
		return
	}

	utils.JSON200(c, stats)
}

// DeduplicationStats returns system-wide dedup effectiveness.
func (ctrl *Controller) DeduplicationStats(c *gin.Context) {
	stats, err := ctrl.Stats.Deduplication()
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(c.Request.Context(), err, "[Stats] Failed to load deduplication stats")
		utils.JSON500(c, "Failed to load deduplication stats")
		return
	}

	utils.JSON200(c, stats)
}

// IndexStats returns keyword index totals.
func (ctrl *Controller) IndexStats(c *gin.Context) {
	stats, err := ctrl.Stats.Index()
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(c.Request.Context(), err, "[Stats] Failed to load index stats")
		utils.JSON500(c, "Failed to load index stats")
		return
	}

	utils.JSON200(c, stats)
}
