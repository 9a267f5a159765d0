package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/spec-kit/hms-gateway/internal/auth"
	"github.com/spec-kit/hms-gateway/internal/dashboard"
	"github.com/spec-kit/hms-gateway/internal/realtime"
	apperrors "github.com/spec-kit/hms-gateway/pkg/util/errorutil"
)

// topicModules names the module whose capability gates each change feed.
// Only the staff feed is written by this service; the rest come from the
// services that own those records.
var topicModules = map[realtime.Topic]string{
	realtime.TopicStaff:        dashboard.ModuleUsers,
	realtime.TopicPatients:     dashboard.ModulePatients,
	realtime.TopicAppointments: dashboard.ModuleAppointments,
	realtime.TopicRooms:        dashboard.ModuleRooms,
	realtime.TopicBilling:      dashboard.ModuleBilling,
}

// ChangesHandler streams change notifications as server-sent events.
type ChangesHandler struct {
	hub       *realtime.Hub
	router    *dashboard.Router
	heartbeat time.Duration
	logger    *zap.Logger
}

// NewChangesHandler constructs handler.
func NewChangesHandler(hub *realtime.Hub, router *dashboard.Router, heartbeat time.Duration, logger *zap.Logger) *ChangesHandler {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &ChangesHandler{hub: hub, router: router, heartbeat: heartbeat, logger: logger}
}

// Stream handles GET /dashboard/changes/:topic.
func (h *ChangesHandler) Stream(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("session required")
	}

	topic, err := realtime.ParseTopic(c.Params("topic"))
	if err != nil {
		return apperrors.NewNotFound("topic", map[string]any{"topic": c.Params("topic")})
	}
	if _, err := h.router.Authorize(string(principal.Profile.Role), topicModules[topic]); err != nil {
		return err
	}

	sub, err := h.hub.Subscribe(c.UserContext(), topic)
	if err != nil {
		return apperrors.NewUpstreamUnavailable("change notifications", err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	staffID := principal.Profile.ID
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer func() {
			if err := sub.Close(); err != nil {
				h.logger.Debug("closing change subscription", zap.Error(err))
			}
		}()
		h.pump(w, sub, staffID)
	}))
	return nil
}

// pump writes changes until the subscription ends or the client goes away.
func (h *ChangesHandler) pump(w *bufio.Writer, sub *realtime.Subscription, staffID string) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	if _, err := fmt.Fprintf(w, "retry: %d\n\n", 3000); err != nil || w.Flush() != nil {
		return
	}
	for {
		select {
		case change, ok := <-sub.Changes():
			if !ok {
				return
			}
			payload, err := json.Marshal(change)
			if err != nil {
				h.logger.Warn("encoding change failed", zap.String("change_id", change.ID), zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: change\ndata: %s\n\n", change.ID, payload); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				h.logger.Debug("change stream closed by client", zap.String("staff_id", staffID))
				return
			}
		case <-ticker.C:
			if _, err := w.WriteString(": ping\n\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				h.logger.Debug("change stream closed by client", zap.String("staff_id", staffID))
				return
			}
		}
	}
}
