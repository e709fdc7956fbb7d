package realtime

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/lingamvamshikrishnareddy/curry/middleware"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin (adjust for production with proper CORS)
		return true
	},
}

// HandleWebSocket upgrades the connection and authenticates it once at
// handshake time. The token rides in the Sec-WebSocket-Protocol header (the
// browser WebSocket API cannot set Authorization), with a query-param
// fallback for non-browser clients.
func HandleWebSocket(hub *Hub, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Sec-WebSocket-Protocol")
		var responseHeader http.Header
		if token != "" {
			// Echo the protocol back or browsers abort the handshake.
			responseHeader = http.Header{"Sec-WebSocket-Protocol": []string{token}}
		} else {
			token = c.Query("token")
			if token == "" {
				authHeader := c.GetHeader("Authorization")
				parts := strings.Split(authHeader, " ")
				if len(parts) == 2 && parts[0] == "Bearer" {
					token = parts[1]
				}
			}
		}

		claims, err := middleware.ValidateToken(token, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, responseHeader)
		if err != nil {
			hub.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			Hub:    hub,
			Conn:   conn,
			Send:   make(chan []byte, 256),
			UserID: claims.UserID,
		}

		hub.Register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}
