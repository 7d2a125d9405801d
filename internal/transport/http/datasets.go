package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// UploadDataset stores a multipart CSV upload and returns its id.
// POST /datasets
func (h *Handler) UploadDataset(c echo.Context) error {
	if h.datasets == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "dataset uploads are not configured"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
	}
	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read upload"})
	}
	defer src.Close()

	ds, err := h.datasets.Save(fileHeader.Filename, src, c.FormValue("domain_column"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"dataset_id": ds.ID,
		"columns":    ds.Columns,
		"rows":       ds.Rows,
	})
}

// ListDatasets returns all stored datasets, newest first.
// GET /datasets
func (h *Handler) ListDatasets(c echo.Context) error {
	if h.datasets == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "dataset uploads are not configured"})
	}
	list, err := h.datasets.List()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"datasets": list})
}
