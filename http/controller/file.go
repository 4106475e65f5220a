package controller

import (
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tnqbao/gau-file-hub/repository"
	"github.com/tnqbao/gau-file-hub/service"
	"github.com/tnqbao/gau-file-hub/utils"
)

// UploadFile accepts one multipart file, deduplicates it against stored
// content and returns the created record. A 201 indicates a brand-new blob,
// a 200 a reference to existing content.
func (ctrl *Controller) UploadFile(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetString("user_id")
	if userID == "" {
		utils.JSON401(c, "Unauthorized: user_id not found")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[File] Failed to get file from form data")
		utils.JSON400(c, "Failed to get file: "+err.Error())
		return
	}

	if fileHeader.Size > ctrl.Config.EnvConfig.Storage.MaxFileSize {
		utils.JSON413(c, gin.H{
			"message":  "File too large",
			"max_size": ctrl.Config.EnvConfig.Storage.MaxFileSize,
			"size":     fileHeader.Size,
		})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[File] Failed to open uploaded file")
		utils.JSON500(c, "Failed to read uploaded file")
		return
	}
	defer src.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	record, err := ctrl.Registry.Upload(ctx, userID, src, fileHeader.Filename, contentType)
	if err != nil {
		ctrl.respondUploadError(c, err)
		return
	}

	payload := gin.H{
		"file":         record,
		"deduplicated": record.IsReference,
	}
	if record.IsReference {
		utils.JSON200(c, payload)
		return
	}
	utils.JSON201(c, payload)
}

func (ctrl *Controller) respondUploadError(c *gin.Context, err error) {
	ctx := c.Request.Context()

	var validationErr *service.ValidationError
	var quotaErr *service.QuotaExceededError
	switch {
	case errors.As(err, &validationErr):
		utils.JSON400(c, validationErr.Error())
	case errors.As(err, &quotaErr):
		utils.JSON413(c, gin.H{
			"message": quotaErr.Error(),
			"used":    quotaErr.Used,
			"quota":   quotaErr.Quota,
		})
	default:
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[File] Upload failed")
		utils.JSON500(c, "Failed to store file")
	}
}

// ListFiles returns the user's files with optional filtering on type, size
// range, upload time range and search over the original filename.
func (ctrl *Controller) ListFiles(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		utils.JSON401(c, "Unauthorized: user_id not found")
		return
	}

	filter := repository.RecordFilter{
		Search:   c.Query("search"),
		FileType: c.Query("file_type"),
		OrderBy:  c.DefaultQuery("order_by", "uploaded_at"),
		Desc:     c.DefaultQuery("order", "desc") == "desc",
	}

	if v := c.Query("min_size"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			utils.JSON400(c, "Invalid min_size")
			return
		}
		filter.MinSize = n
	}
	if v := c.Query("max_size"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			utils.JSON400(c, "Invalid max_size")
			return
		}
		filter.MaxSize = n
	}
	if v := c.Query("uploaded_after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.JSON400(c, "Invalid uploaded_after, expected RFC3339 timestamp")
			return
		}
		filter.Start = t
	}
	if v := c.Query("uploaded_before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.JSON400(c, "Invalid uploaded_before, expected RFC3339 timestamp")
			return
		}
		filter.End = t
	}

	records, err := ctrl.Registry.List(userID, filter)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(c.Request.Context(), err, "[File] Failed to list files for user %s", userID)
		utils.JSON500(c, "Failed to list files")
		return
	}

	utils.JSON200(c, gin.H{"files": records, "count": len(records)})
}

// GetFile returns one record's metadata, including its index status.
func (ctrl *Controller) GetFile(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		utils.JSON401(c, "Unauthorized: user_id not found")
		return
	}

	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid file id")
		return
	}

	record, err := ctrl.Registry.Get(userID, fileID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			utils.JSON404(c, "File not found")
			return
		}
		ctrl.Infra.Logger.ErrorWithContextf(c.Request.Context(), err, "[File] Failed to load file %s", fileID)
		utils.JSON500(c, "Failed to load file")
		return
	}

	utils.JSON200(c, gin.H{"file": record})
}

// DownloadFile streams the record's content. References resolve to the same
// shared blob as the canonical record.
func (ctrl *Controller) DownloadFile(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetString("user_id")
	if userID == "" {
		utils.JSON401(c, "Unauthorized: user_id not found")
		return
	}

	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid file id")
		return
	}

	body, record, err := ctrl.Registry.Download(ctx, userID, fileID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			utils.JSON404(c, "File not found")
			return
		}
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[File] Failed to download file %s", fileID)
		utils.JSON500(c, "Failed to download file")
		return
	}
	defer body.Close()

	c.Header("Content-Disposition", `attachment; filename="`+record.OriginalFilename+`"`)
	c.Header("Content-Type", record.FileType)
	c.Header("Content-Length", strconv.FormatInt(record.Size, 10))
	if _, err := io.Copy(c.Writer, body); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[File] Stream interrupted for file %s", fileID)
	}
}

// DeleteFile removes one record and releases quota and blob references.
func (ctrl *Controller) DeleteFile(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetString("user_id")
	if userID == "" {
		utils.JSON401(c, "Unauthorized: user_id not found")
		return
	}

	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid file id")
		return
	}

	if err := ctrl.Registry.Delete(ctx, userID, fileID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			utils.JSON404(c, "File not found")
			return
		}
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[File] Failed to delete file %s", fileID)
		utils.JSON500(c, "Failed to delete file")
		return
	}

	utils.JSON200(c, gin.H{"message": "File deleted"})
}

// FileTypes returns the distinct MIME types among the user's files, useful
// for building filter UIs.
func (ctrl *Controller) FileTypes(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		utils.JSON401(c, "Unauthorized: user_id not found")
		return
	}

	types, err := ctrl.Registry.FileTypes(userID)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(c.Request.Context(), err, "[File] Failed to list file types for user %s", userID)
		utils.JSON500(c, "Failed to list file types")
		return
	}

	utils.JSON200(c, gin.H{"file_types": types})
}

// ReindexAll queues an indexing task for every stored file.
func (ctrl *Controller) ReindexAll(c *gin.Context) {
	ctx := c.Request.Context()

	queued, err := ctrl.Registry.ReindexAll(ctx)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[File] Failed to queue reindex")
		utils.JSON500(c, "Failed to queue reindex")
		return
	}

	utils.JSON200(c, gin.H{"queued": queued})
}
