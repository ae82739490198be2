// Package browser opens documentation and service URLs in the user's web browser.
//
// Launching is delegated to github.com/pkg/browser. This package adds URL
// validation (http and https only, so file:// and javascript: are refused),
// target selection and a timeout.
//
// # Browser Targets
//
//   - TargetDefault: the system default browser (alias for TargetSystem)
//   - TargetSystem: the system default browser
//   - TargetNone: never launch
//
// # Example Usage
//
//	err := browser.Launch(browser.LaunchOptions{
//	    URL:    desc.DocsURI,
//	    Target: browser.TargetDefault,
//	})
//
// Launch returns immediately; errors from the launch itself are written to
// Stderr. LaunchSync waits and returns them.
package browser
