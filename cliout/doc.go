// Package cliout prints command results either as styled text or as JSON.
//
// # Output Formats
//
//   - default: human-readable text with colors and Unicode symbols
//   - json: indented JSON for automation and scripting
//
//	if err := cliout.SetFormat("json"); err != nil {
//	    return err
//	}
//	return cliout.Print(result, func() {
//	    cliout.Success("Metadata staged at %s", result.Path)
//	    cliout.Label("Version", result.Version)
//	})
//
// # Colors and Symbols
//
// Colors are disabled when NO_COLOR is set or after NoColor. Legacy Windows
// consoles get ASCII symbols ("[+]", "[!]") instead of Unicode.
//
// All output goes to os.Stdout unless redirected with SetOutput.
package cliout
