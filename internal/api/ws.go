package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/worktrail/worktrail/internal/middleware"
	"github.com/worktrail/worktrail/internal/realtime"
)

// wsConfig holds what the WebSocket endpoint needs beyond the dispatcher.
type wsConfig struct {
	originPatterns []string
	timelineLen    int
	validator      realtime.PrincipalValidator
}

// wsHandler handles GET /api/v1/ws?project_id=&account_id=. The scope is
// subscribed before the upgrade so a bad scope still gets a JSON error.
func wsHandler(appCtx context.Context, log *logrus.Logger, d *realtime.Dispatcher, cfg wsConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if principal(c) == nil {
			return
		}

		projectID, ok := queryUUID(c, "project_id")
		if !ok {
			return
		}

		accountID, ok := queryUUID(c, "account_id")
		if !ok {
			return
		}

		sub, err := d.Subscribe(realtime.Scope{ProjectID: projectID, AccountID: accountID})
		if err != nil {
			if errors.Is(err, realtime.ErrEmptyScope) {
				respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
				return
			}

			respondError(c, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())

			return
		}

		// CORS origins double as WebSocket origin patterns; config validation
		// keeps them to plain host patterns.
		conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
			OriginPatterns:       cfg.originPatterns,
			CompressionMode:      websocket.CompressionContextTakeover,
			CompressionThreshold: 128,
		})
		if err != nil {
			sub.Unsubscribe()
			log.WithError(err).Error("ws.accept_failed")

			return
		}

		session := realtime.NewSession(conn, sub, cfg.timelineLen, log, cfg.validator, middleware.ExtractBearerToken(c))

		// The session ends with the server or with the request.
		wsCtx, wsCancel := context.WithCancel(appCtx)
		defer wsCancel()

		stop := context.AfterFunc(c.Request.Context(), wsCancel)
		defer stop()

		session.Serve(wsCtx)
	}
}
