// Package logging builds the structured zap loggers used across arbiter.
//
// Components never log through a global: each accepts a *zap.Logger via an
// option and defaults to zap.NewNop(). The CLI builds the root logger from
// the log section of the configuration and hands named children down.
package logging
