// Package handler provides the HTTP and WebSocket API over a document library.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/CageChen/marktree/internal/library"
	"github.com/CageChen/marktree/internal/markdown"
	"github.com/CageChen/marktree/internal/selector"
	"github.com/CageChen/marktree/internal/source"
	"github.com/CageChen/marktree/internal/vfs"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TreeRow represents one visible node of a render pass
type TreeRow struct {
	ID            vfs.Identifier `json:"id"`
	Name          string         `json:"name"`
	Path          string         `json:"path"`
	Kind          string         `json:"kind"`
	Depth         int            `json:"depth"`
	Locked        bool           `json:"locked"`
	Expanded      bool           `json:"expanded,omitempty"`
	Selected      bool           `json:"selected,omitempty"`
	MultiSelected bool           `json:"multiSelected,omitempty"`
	Source        string         `json:"source,omitempty"`
	RelPath       string         `json:"relPath,omitempty"`
	ModTime       *time.Time     `json:"modTime,omitempty"`
	Size          int64          `json:"size,omitempty"`
}

// ActionView describes a context action or button.
type ActionView struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Tooltip string `json:"tooltip,omitempty"`
}

// TreeResponse is the result of a render pass.
type TreeResponse struct {
	Pass          int          `json:"pass"`
	SortMode      string       `json:"sortMode"`
	Filter        string       `json:"filter"`
	QuickMove     []string     `json:"quickMove"`
	Rows          []TreeRow    `json:"rows"`
	FolderActions []ActionView `json:"folderActions"`
	LeafActions   []ActionView `json:"leafActions"`
	MainActions   []ActionView `json:"mainActions"`
	Buttons       []ActionView `json:"buttons"`
}

// API serves the tree view of a library.
type API struct {
	lib      *library.Library
	renderer *markdown.Renderer
	hub      *Hub
	logger   *zap.Logger
}

// NewAPI creates the API. Committed library changes are pushed to hub clients.
func NewAPI(lib *library.Library, renderer *markdown.Renderer, hub *Hub, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	lib.OnChange(hub.TreeChanged)
	return &API{lib: lib, renderer: renderer, hub: hub, logger: logger.Named("api")}
}

// Register mounts the API routes on r.
func (a *API) Register(r gin.IRouter) {
	api := r.Group("/api")
	{
		api.GET("/tree", a.GetTree)
		api.PUT("/view", a.UpdateView)
		api.POST("/select", a.Select)
		api.POST("/expand", a.Expand)
		api.POST("/drag", a.Drag)
		api.POST("/nodes/:id/actions/:key", a.NodeAction)
		api.POST("/main-actions/:key", a.MainAction)
		api.POST("/buttons/:key", a.Button)
		api.GET("/sort-modes", a.SortModes)
		api.GET("/leaves/:id", a.GetLeaf)
		api.GET("/leaves/:id/raw", a.GetRaw)
		api.POST("/open", a.OpenExternal)
		api.GET("/ws", a.hub.HandleWS)
	}
}

// GetTree performs a render pass and returns the visible rows
func (a *API) GetTree(c *gin.Context) {
	resp := TreeResponse{Rows: []TreeRow{}}
	err := a.lib.Render(func(sel *library.Selector, row selector.Row[source.Document]) {
		resp.Rows = append(resp.Rows, rowView(row))
	})
	if err != nil {
		a.logger.Warn("cannot save layout", zap.Error(err))
	}

	a.lib.View(func(sel *library.Selector) {
		resp.Pass = sel.Pass()
		resp.SortMode = sel.SortMode().String()
		resp.Filter = sel.Filter()
		resp.QuickMove = sel.QuickMoveSlots()
		for _, act := range sel.FolderActions() {
			resp.FolderActions = append(resp.FolderActions, ActionView{act.Key, act.Label, act.Tooltip})
		}
		for _, act := range sel.LeafActions() {
			resp.LeafActions = append(resp.LeafActions, ActionView{act.Key, act.Label, act.Tooltip})
		}
		resp.MainActions = commandViews(sel.MainActions())
		resp.Buttons = commandViews(sel.Buttons())
	})
	c.JSON(http.StatusOK, resp)
}

// UpdateViewRequest changes the sort mode and/or the filter
type UpdateViewRequest struct {
	SortMode *string `json:"sort_mode"`
	Filter   *string `json:"filter"`
}

// UpdateView changes how the tree is presented
func (a *API) UpdateView(c *gin.Context) {
	var req UpdateViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	var mode vfs.SortMode
	if req.SortMode != nil {
		var err error
		if mode, err = vfs.ParseSortMode(*req.SortMode); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	a.lib.View(func(sel *library.Selector) {
		if req.SortMode != nil {
			sel.SetSortMode(mode)
		}
		if req.Filter != nil {
			sel.SetFilter(*req.Filter)
		}
	})
	c.JSON(http.StatusOK, gin.H{"message": "view updated"})
}

// SelectRequest selects a node. Multi toggles it in the multi-selection
// instead; Clear drops every selection first.
type SelectRequest struct {
	ID    *vfs.Identifier `json:"id"`
	Multi bool            `json:"multi"`
	Clear bool            `json:"clear"`
}

// Select changes the selection
func (a *API) Select(c *gin.Context) {
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	err := a.lib.Do(func(sel *library.Selector) error {
		if req.Clear {
			sel.ClearSelection()
		}
		if req.ID == nil {
			return nil
		}
		n, err := lookup(sel, *req.ID)
		if err != nil {
			return err
		}
		if req.Multi {
			sel.ToggleMultiSelect(n)
		} else {
			sel.Select(n)
		}
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "selection updated"})
}

// ExpandRequest opens or closes a folder. With Descendants the whole subtree
// changes; Pass tags the request with the render pass it was made in.
type ExpandRequest struct {
	ID          vfs.Identifier `json:"id" binding:"required"`
	Expanded    bool           `json:"expanded"`
	Descendants bool           `json:"descendants"`
	Pass        *int           `json:"pass"`
}

// Expand changes folder expansion
func (a *API) Expand(c *gin.Context) {
	var req ExpandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	applied := true
	err := a.lib.Do(func(sel *library.Selector) error {
		folder, err := lookupFolder(sel, req.ID)
		if err != nil {
			return err
		}
		if !req.Descendants {
			sel.SetExpanded(folder, req.Expanded)
			return nil
		}
		pass := -1
		if req.Pass != nil {
			pass = *req.Pass
		}
		applied = sel.ToggleDescendants(folder, pass, req.Expanded)
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied})
}

// DragRequest drops a node onto a folder
type DragRequest struct {
	ID     vfs.Identifier  `json:"id" binding:"required"`
	Target *vfs.Identifier `json:"target"` // nil or 0 is the root
}

// Drag moves a node by drag and drop. Locked nodes refuse.
func (a *API) Drag(c *gin.Context) {
	var req DragRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	err := a.lib.Do(func(sel *library.Selector) error {
		n, err := lookup(sel, req.ID)
		if err != nil {
			return err
		}
		var target vfs.Identifier
		if req.Target != nil {
			target = *req.Target
		}
		folder, err := lookupFolder(sel, target)
		if err != nil {
			return err
		}
		if n.IsLocked() {
			return fmt.Errorf("drag %q: %w", n.FullName(), vfs.ErrLocked)
		}
		sel.Drop(n, folder)
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "drop queued"})
}

// ActionRequest carries the free-form input of an action
type ActionRequest struct {
	Input string `json:"input"`
}

// NodeAction triggers a folder or leaf context action
func (a *API) NodeAction(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	req := bindAction(c)
	err = a.lib.Do(func(sel *library.Selector) error {
		n, err := lookup(sel, id)
		if err != nil {
			return err
		}
		return sel.TriggerNodeAction(c.Param("key"), n, req.Input)
	})
	a.actionResult(c, err)
}

// MainAction triggers a whole-view context action
func (a *API) MainAction(c *gin.Context) {
	req := bindAction(c)
	err := a.lib.Do(func(sel *library.Selector) error {
		return sel.TriggerMainAction(c.Param("key"), req.Input)
	})
	a.actionResult(c, err)
}

// Button triggers a bottom-bar button
func (a *API) Button(c *gin.Context) {
	req := bindAction(c)
	err := a.lib.Do(func(sel *library.Selector) error {
		return sel.TriggerButton(c.Param("key"), req.Input)
	})
	a.actionResult(c, err)
}

func (a *API) actionResult(c *gin.Context, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "action applied"})
}

// SortModeView describes a sort mode
type SortModeView struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SortModes lists the available sort modes
func (a *API) SortModes(c *gin.Context) {
	modes := vfs.SortModes()
	views := make([]SortModeView, len(modes))
	for i, m := range modes {
		views[i] = SortModeView{Key: m.String(), Name: m.Name(), Description: m.Description()}
	}
	c.JSON(http.StatusOK, views)
}

// OpenRequest asks the server to open a link or file externally
type OpenRequest struct {
	Label   string `json:"label"`
	Address string `json:"address" binding:"required"`
}

// OpenExternal opens an address with the desktop's default handler.
// Failures are reported to websocket clients as notifications.
func (a *API) OpenExternal(c *gin.Context) {
	var req OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address is required"})
		return
	}
	if err := checkExternalAddress(req.Address); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Label == "" {
		req.Label = req.Address
	}
	var opened bool
	a.lib.View(func(sel *library.Selector) { opened = sel.OpenExternal(req.Label, req.Address) })
	c.JSON(http.StatusOK, gin.H{"opened": opened})
}

// checkExternalAddress admits web and mail links only. Anything else would
// hand a client-chosen file or scheme handler to the desktop.
func checkExternalAddress(address string) error {
	u, err := url.Parse(address)
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return errors.New("address has no host")
		}
		return nil
	case "mailto":
		if u.Opaque == "" {
			return errors.New("address has no recipient")
		}
		return nil
	}
	return fmt.Errorf("scheme %q is not allowed", u.Scheme)
}

func rowView(row selector.Row[source.Document]) TreeRow {
	n := row.Node
	view := TreeRow{
		ID:            n.Identifier(),
		Name:          n.Name(),
		Path:          n.FullName(),
		Kind:          n.Kind().String(),
		Depth:         row.Depth,
		Locked:        n.IsLocked(),
		Expanded:      row.Expanded,
		Selected:      row.Selected,
		MultiSelected: row.MultiSelected,
	}
	if leaf, ok := n.(*vfs.Leaf[source.Document]); ok {
		doc := leaf.Value()
		view.Source, view.RelPath, view.Size = doc.Source, doc.RelPath, doc.Size
		if !doc.ModTime.IsZero() {
			modTime := doc.ModTime
			view.ModTime = &modTime
		}
	}
	return view
}

func commandViews(commands []selector.Command) []ActionView {
	views := make([]ActionView, len(commands))
	for i, cmd := range commands {
		views[i] = ActionView{cmd.Key, cmd.Label, cmd.Tooltip}
	}
	return views
}

func bindAction(c *gin.Context) ActionRequest {
	var req ActionRequest
	// The body is optional.
	_ = c.ShouldBindJSON(&req)
	return req
}

func parseID(raw string) (vfs.Identifier, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	return vfs.Identifier(id), err
}

func lookup(sel *library.Selector, id vfs.Identifier) (library.Node, error) {
	n, ok := sel.FileSystem().ByID(id)
	if !ok {
		return nil, &vfs.NotFoundError{Path: "#" + strconv.FormatUint(uint64(id), 10)}
	}
	return n, nil
}

func lookupFolder(sel *library.Selector, id vfs.Identifier) (*vfs.Folder[source.Document], error) {
	n, err := lookup(sel, id)
	if err != nil {
		return nil, err
	}
	folder, ok := n.(*vfs.Folder[source.Document])
	if !ok {
		return nil, &vfs.OperationError{Op: "lookup", Path: n.FullName(), Reason: "not a folder"}
	}
	return folder, nil
}

// writeError maps tree errors to HTTP statuses.
func writeError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, vfs.ErrNotFound), errors.Is(err, selector.ErrUnknownAction):
		status = http.StatusNotFound
	case errors.Is(err, vfs.ErrNameConflict), errors.Is(err, vfs.ErrLocked):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
