package ws

import (
    "net/http"
    "strings"

    "github.com/gin-gonic/gin"
    "github.com/gorilla/websocket"

    "github.com/nkodex/examsync_backend/internal/models"
)

var upgrader = websocket.Upgrader{
    CheckOrigin: func(r *http.Request) bool {
        // Allow all origins; rely on JWT auth.
        return true
    },
}

// SyncEventsHandler upgrades a dashboard connection onto the sync hub.
// Admins see all exams; operators must name the exams they follow via the
// exam_id query parameter (repeatable).
func SyncEventsHandler(hub *SyncHub) gin.HandlerFunc {
    return func(c *gin.Context) {
        uVal, ok := c.Get("user")
        if !ok {
            c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
            return
        }
        user := uVal.(models.User)
        role := strings.ToLower(user.Role)
        if role != "admin" && role != "operator" {
            c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
            return
        }

        allowAll := role == "admin"
        allowedExams := map[string]struct{}{}
        if !allowAll {
            examIDs := c.QueryArray("exam_id")
            if len(examIDs) == 0 {
                c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "exam_id required"})
                return
            }
            for _, id := range examIDs {
                if id = strings.TrimSpace(id); id != "" {
                    allowedExams[id] = struct{}{}
                }
            }
        }

        conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
        if err != nil {
            return
        }
        client := newSyncClient(hub, conn, allowedExams, allowAll)
        hub.register <- client

        go client.writePump()
        client.readPump()
    }
}
