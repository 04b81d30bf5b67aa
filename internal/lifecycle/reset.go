package lifecycle

import "errors"

// ResetContext tears down the conversation state: it stops any in-flight
// generation, then releases the session and the model in that order. The
// local handles are cleared even when the engine fails to release one — a
// leaked native resource is less harmful than a stuck controller — in which
// case the call returns a TeardownFailure warning. Subsequent
// StartGeneration calls fail with ErrEngineNotReady until EnsureEngine
// re-establishes the model and session. Idempotent.
func (c *Controller) ResetContext() error {
	c.StopGeneration()

	c.mu.Lock()
	sess, mdl := c.session, c.model
	modelID := c.modelID
	c.session, c.model, c.modelID = nil, nil, ""
	if sess != nil || mdl != nil {
		c.resets++
	}
	c.mu.Unlock()

	if sess == nil && mdl == nil {
		return nil
	}

	var errs []error
	if sess != nil {
		if err := sess.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if mdl != nil {
		if err := mdl.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	resetsTotal.Inc()
	c.pub.Publish(Event{Name: "context_reset", ModelID: modelID})
	if len(errs) > 0 {
		err := TeardownFailure(errors.Join(errs...))
		teardownFailures.Inc()
		c.log.Warn().Err(err).Str("model", modelID).Msg("context reset: engine teardown failed, handles cleared")
		return err
	}
	c.log.Info().Str("model", modelID).Msg("context reset")
	return nil
}
