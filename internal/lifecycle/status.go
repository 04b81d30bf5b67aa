package lifecycle

import (
	"time"

	"inferd/pkg/types"
)

// Status builds a detailed status response for /status.
func (c *Controller) Status() types.StatusResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	resp := types.StatusResponse{
		EngineReady:      c.model != nil && c.session != nil,
		Model:            c.modelID,
		PendingCancels:   len(c.cancelled),
		GenerationsTotal: c.generations,
		ResetsTotal:      c.resets,
		UptimeSeconds:    int64(time.Since(c.startTime).Seconds()),
		ServerTimeUnix:   time.Now().Unix(),
	}
	if c.active != nil {
		resp.Active = &types.GenerationStatus{
			ID:         string(c.active.id),
			State:      "streaming",
			TokenCount: c.active.tokenCount,
		}
	}
	return resp
}
