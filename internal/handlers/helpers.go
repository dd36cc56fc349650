package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/vet-agenda/internal/httperr"
	"github.com/BruksfildServices01/vet-agenda/internal/middleware"
	"github.com/BruksfildServices01/vet-agenda/internal/workspace"
)

func workspaceFor(c *gin.Context, reg *workspace.Registry) (*workspace.Workspace, bool) {
	ws, err := reg.Get(c.GetString(middleware.ContextUserID), c.GetString(middleware.ContextClinicID))
	if err != nil {
		httperr.Internal(c, "workspace_failed", "Could not open the workspace.")
		return nil, false
	}
	return ws, true
}

// ensureLoaded fetches the calendar list the first time the page is used.
func ensureLoaded(c *gin.Context, ws *workspace.Workspace) bool {
	if ws.Screen.Loaded() {
		return true
	}
	if err := ws.Screen.Load(c.Request.Context()); err != nil {
		httperr.FromError(c, err)
		return false
	}
	return true
}

// parseIDList reads "1,2,3". Empty input yields nil.
func parseIDList(s string) ([]uint, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, true
	}
	parts := strings.Split(s, ",")
	out := make([]uint, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, false
		}
		out = append(out, uint(v))
	}
	return out, true
}

// writeFormError answers a failed form operation with the error and the
// form as it stands, so the UI can show field messages.
func writeFormError(c *gin.Context, err error, form any) {
	n := httperr.Notify(err)
	status, code := httperr.StatusOf(err)
	c.JSON(status, gin.H{
		"error_code":   code,
		"message":      n.Message,
		"notification": n,
		"form":         form,
	})
}
