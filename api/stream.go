package api

import (
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard/domain"
	"taskboard/events"
)

// streamTasks pushes the full task list as a server-sent event on connect
// and after every change signalled by the broker.
func streamTasks(repo domain.Repository, broker *events.Broker, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if broker == nil {
			return c.JSON(http.StatusNotImplemented, errorResponse{Error: "stream unsupported"})
		}
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "stream unsupported"})
		}
		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		c.Response().WriteHeader(http.StatusOK)

		ctx := c.Request().Context()
		ch := broker.Subscribe()
		defer broker.Unsubscribe(ch)
		entry := logger.WithField("remote", c.RealIP())
		entry.Debug("stream opened")
		for {
			tasks, err := repo.List(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				entry.WithError(err).Error("stream fetch tasks")
				return nil
			}
			data, err := sonic.Marshal(tasks)
			if err != nil {
				entry.WithError(err).Error("stream marshal tasks")
				return nil
			}
			if _, err := c.Response().Write([]byte("data: ")); err != nil {
				return nil
			}
			if _, err := c.Response().Write(data); err != nil {
				return nil
			}
			if _, err := c.Response().Write([]byte("\n\n")); err != nil {
				return nil
			}
			flusher.Flush()
			select {
			case <-ctx.Done():
				entry.Debug("stream closed")
				return nil
			case <-ch:
			}
		}
	}
}
