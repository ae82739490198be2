// Package mcptool exposes metadata retrieval as a Model Context Protocol
// tool served over stdio.
//
// The fetch_odata_metadata tool never prompts: credentials come from the
// configured store only. Calls are rate limited.
package mcptool
