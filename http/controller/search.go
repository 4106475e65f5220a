package controller

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-file-hub/service"
	"github.com/tnqbao/gau-file-hub/utils"
)

// SearchFiles matches the user's files against one or more keywords.
// Keywords are passed as a comma-separated "q" parameter; a file matches
// when it contains any of them.
func (ctrl *Controller) SearchFiles(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		utils.JSON401(c, "Unauthorized: user_id not found")
		return
	}

	q := c.Query("q")
	if strings.TrimSpace(q) == "" {
		utils.JSON400(c, "Query parameter 'q' is required")
		return
	}

	records, err := ctrl.Searcher.Search(strings.Split(q, ","), userID)
	if err != nil {
		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			utils.JSON400(c, validationErr.Error())
			return
		}
		ctrl.Infra.Logger.ErrorWithContextf(c.Request.Context(), err, "[Search] Query failed for user %s", userID)
		utils.JSON500(c, "Search failed")
		return
	}

	utils.JSON200(c, gin.H{"files": records, "count": len(records)})
}
