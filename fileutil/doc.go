// Package fileutil provides file system helpers shared by the configuration,
// settings, credential and staging code.
//
// # Atomic Write Operations
//
// AtomicWriteJSON, AtomicWriteJSONPerm and AtomicWriteFile never leave a file in a
// partial state: data goes to a uniquely named temporary file in the target
// directory, is synced, gets its final permissions and is then renamed over the
// target. Renames are retried 5 times with a 20ms linear backoff and the temporary
// file is removed on any failure.
//
//	if err := fileutil.AtomicWriteJSONPerm(path, creds, fileutil.SecretFilePermission); err != nil {
//	    return err
//	}
//
// # Staging Files
//
// CreateTemp validates and creates the staging directory before creating a uniquely
// named file in it; RemoveIfExists is the matching cleanup.
//
// # File Permissions
//
//   - DirPermission (0750)
//   - FilePermission (0644)
//   - SecretFilePermission (0600) for credential files
package fileutil
