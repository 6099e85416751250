// Package logger builds *slog.Logger instances with functional options and
// provides attribute helpers that keep key names consistent across the
// pub/sub packages.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithEnvironment(os.Getenv("APP_ENV"), "pubsubmux"),
//	    logger.WithAttr(logger.Component("cli")),
//	)
//	logger.SetAsDefault(log)
//
//	log.Warn("message for unknown channel", logger.Channel("orders"))
//
// # Options
//
//   - WithDevelopment / WithProduction / WithEnvironment – presets (text+debug
//     or json+info) tagged with a service name.
//   - WithFormat, WithLevel, WithOutput – explicit overrides.
//   - WithAttr – static attributes attached to every record.
//
// Helpers such as Channel, SubscriberID, Attempt and Error return slog.Attr
// values. Error returns an empty attribute for a nil error, so it can be
// passed unconditionally.
package logger
