package lifecycle

// StopGeneration requests cooperative cancellation of the active generation.
// It records the id in the cancelled set, cancels the pull context as a hint
// to the engine, and clears the active record. It returns once those state
// updates are applied, without waiting for the pump to observe them; the
// per-token predicate guarantees no further token for that id reaches a
// consumer. With nothing active it is a no-op. Never fails.
func (c *Controller) StopGeneration() bool {
	c.mu.Lock()
	act := c.active
	if act == nil {
		c.mu.Unlock()
		return false
	}
	c.cancelled[act.id] = struct{}{}
	c.active = nil
	c.mu.Unlock()

	act.cancel()
	stopsTotal.Inc()
	c.pub.Publish(Event{Name: "generation_stop", GenerationID: string(act.id)})
	c.log.Debug().Str("generation_id", string(act.id)).Msg("generation stop requested")
	return true
}
