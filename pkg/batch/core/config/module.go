// Package config provides core configuration structures and utilities for the batch framework.
// This module defines Fx providers for configuration-related components.
package config

import "go.uber.org/fx"

// NewLoggingConfigProvider extracts and provides *LoggingConfig from *Config.
// This allows other Fx components to depend only on the logging configuration.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.Offshore.System.Logging
}

// NewRemoteChunkConfigProvider extracts and provides *RemoteChunkConfig from *Config.
// The chunk dispatcher depends only on this slice of the configuration.
func NewRemoteChunkConfigProvider(cfg *Config) *RemoteChunkConfig {
	return &cfg.Offshore.Batch.RemoteChunk
}

// Module provides configuration-related components to Fx.
// It includes providers for the loaded configuration, derived configuration
// slices, and the EnvironmentExpander.
var Module = fx.Options(
	fx.Provide(NewConfigProvider),
	fx.Provide(NewLoggingConfigProvider),
	fx.Provide(NewRemoteChunkConfigProvider),
	// Provides an instance of EnvironmentExpander (specifically OsEnvironmentExpander)
	// as the EnvironmentExpander interface, making it available for dependency injection.
	fx.Provide(func() EnvironmentExpander {
		return NewOsEnvironmentExpander()
	}),
)
