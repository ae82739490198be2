// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package logutil provides a structured logging abstraction built on top of slog.
//
// The global logger is configured once by the CLI and every package scopes its own
// ComponentLogger from it:
//
//	logutil.SetupLogger(debug, structured)
//
//	log := logutil.NewLogger("metadata").WithEndpoint(endpoint)
//	log.Info("metadata staged", "path", doc.Path, "version", doc.Version)
//
// # Debug Mode
//
// Debug logging can be enabled in two ways:
//   - Pass debug=true to SetupLogger
//   - Set ODATA_DEBUG=true environment variable
//
// # Structured Logging
//
// When structured=true is passed to SetupLogger, logs are output as JSON:
//
//	{"time":"2024-01-15T10:30:00Z","level":"INFO","msg":"metadata staged","component":"metadata"}
//
// Otherwise, logs use the slog text format:
//
//	time=2024-01-15T10:30:00Z level=INFO msg="metadata staged" component=metadata
//
// # Redaction
//
// Attributes whose key mentions a password, secret, cookie, token or authorization
// header are replaced with [REDACTED] by both handlers. Credential values should
// still be kept out of messages, which are not inspected.
package logutil
