// Package security provides validation helpers used before touching the file system
// or persisting user supplied names.
//
// # Path Validation
//
// ValidatePath and ValidatePathWithinBases reject parent directory references and
// resolve symbolic links, so a staging directory or configuration path supplied on
// the command line cannot escape the intended location.
//
// # Names
//
// ValidateServiceName checks connected service names (they become folder names for
// generated code) and ValidateNamespacePrefix checks the dotted namespace handed to
// the code generator.
//
// # Secret Files
//
// ValidateFilePermissions reports ErrInsecureFilePermissions for group or world
// writable files. The file credential store refuses to read such files.
// IsContainerEnvironment is used to decide whether an OS keyring is likely to exist.
package security
