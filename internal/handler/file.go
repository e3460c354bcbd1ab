package handler

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/CageChen/marktree/internal/markdown"
	"github.com/CageChen/marktree/internal/vfs"
	"github.com/gin-gonic/gin"
)

// FileResponse represents the rendered content of a leaf
type FileResponse struct {
	ID      vfs.Identifier     `json:"id"`
	Path    string             `json:"path"`
	Source  string             `json:"source"`
	RelPath string             `json:"relPath"`
	Title   string             `json:"title"`
	HTML    string             `json:"html"`
	Outline []markdown.Heading `json:"outline"`
	Links   []markdown.Link    `json:"links"`
	ModTime time.Time          `json:"modTime"`
}

// GetLeaf returns the rendered HTML for the document behind a leaf
func (a *API) GetLeaf(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	entry, content, err := a.lib.Read(id)
	if err != nil {
		a.readError(c, err)
		return
	}

	result, err := a.renderer.Render(content, entry.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to render markdown: " + err.Error(),
		})
		return
	}

	doc := entry.Document
	c.JSON(http.StatusOK, FileResponse{
		ID:      entry.ID,
		Path:    entry.Path,
		Source:  doc.Source,
		RelPath: doc.RelPath,
		Title:   result.Title,
		HTML:    result.HTML,
		Outline: result.Outline,
		Links:   result.Links,
		ModTime: doc.ModTime,
	})
}

// GetRaw returns the raw markdown content
func (a *API) GetRaw(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	_, content, err := a.lib.Read(id)
	if err != nil {
		a.readError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", content)
}

func (a *API) readError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, vfs.ErrNotFound), errors.Is(err, os.ErrNotExist):
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
	case errors.Is(err, os.ErrPermission):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
