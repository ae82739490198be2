// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package logutil

import (
	"log/slog"
	"strings"
)

// Redacted replaces the value of any attribute whose key names a secret.
const Redacted = "[REDACTED]"

var sensitiveKeys = []string{
	"password",
	"secret",
	"cookie",
	"authorization",
	"token",
	"fedauth",
	"rtfa",
}

// IsSensitiveKey reports whether an attribute key looks like it carries a secret.
// Matching is case-insensitive and by substring, so "set-cookie" and
// "client_secret" are both caught.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// redactAttr is installed as the handler's ReplaceAttr hook.
func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		return a
	}
	if IsSensitiveKey(a.Key) {
		return slog.String(a.Key, Redacted)
	}
	return a
}
