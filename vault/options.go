package vault

import "log/slog"

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}
