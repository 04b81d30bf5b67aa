package lifecycle

import (
	"context"

	"inferd/internal/engine"
)

// EnsureEngine lazily establishes the model and session for modelID,
// resolving it against the registry (empty id uses the configured default).
// Already-established state for the same model is a no-op; a different model
// triggers a full ResetContext first, since a session is only valid while
// its model is loaded. Fields set in params override the configured session
// defaults. This is the re-acquisition path after ResetContext; generation
// itself never loads anything.
func (c *Controller) EnsureEngine(ctx context.Context, modelID string, params engine.SessionParams) error {
	if modelID == "" {
		modelID = c.defaultModel
		if modelID == "" {
			return ErrModelNotFound("(unspecified)")
		}
	}

	c.mu.Lock()
	if c.model != nil && c.session != nil && c.modelID == modelID {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	mdl, ok := c.modelByID(modelID)
	if !ok {
		return ErrModelNotFound(modelID)
	}

	// Different model (or partial state) currently held: start clean.
	if err := c.ResetContext(); err != nil && !IsTeardownFailure(err) {
		return err
	}

	c.pub.Publish(Event{Name: "engine_load_start", ModelID: modelID})
	c.log.Info().Str("model", modelID).Str("path", mdl.Path).Msg("engine load start")

	loaded, err := c.eng.LoadModel(ctx, engine.ModelConfig{
		Path:    mdl.Path,
		CtxSize: c.ctxSize,
		Threads: c.threads,
	})
	if err != nil {
		c.pub.Publish(Event{Name: "engine_load_fail", ModelID: modelID, Fields: map[string]any{"error": err.Error()}})
		return EngineFailure(err)
	}
	sess, err := loaded.OpenSession(c.mergeParams(params))
	if err != nil {
		_ = loaded.Close()
		c.pub.Publish(Event{Name: "engine_load_fail", ModelID: modelID, Fields: map[string]any{"error": err.Error()}})
		return EngineFailure(err)
	}

	c.mu.Lock()
	// A concurrent EnsureEngine may have won the race; last writer wins and
	// the loser's handles are released below.
	prevSess, prevMdl := c.session, c.model
	c.session, c.model, c.modelID = sess, loaded, modelID
	c.mu.Unlock()
	if prevSess != nil {
		_ = prevSess.Close()
	}
	if prevMdl != nil {
		_ = prevMdl.Close()
	}

	c.pub.Publish(Event{Name: "engine_ready", ModelID: modelID})
	c.log.Info().Str("model", modelID).Msg("engine ready")
	return nil
}

// mergeParams overlays non-zero fields of p onto the configured defaults.
func (c *Controller) mergeParams(p engine.SessionParams) engine.SessionParams {
	out := c.params
	if p.MaxTokens > 0 {
		out.MaxTokens = p.MaxTokens
	}
	if p.Temperature > 0 {
		out.Temperature = p.Temperature
	}
	if p.TopP > 0 {
		out.TopP = p.TopP
	}
	if p.TopK > 0 {
		out.TopK = p.TopK
	}
	if p.Seed != 0 {
		out.Seed = p.Seed
	}
	if len(p.Stop) > 0 {
		out.Stop = append([]string(nil), p.Stop...)
	}
	return out
}
