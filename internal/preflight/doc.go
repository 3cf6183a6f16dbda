// Package preflight provides readiness checks for external services
// and filesystem paths that clipper depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup so obviously broken deployments
//     fail loudly before any job is admitted.
//   - The CLI "clipper status" command uses individual check functions
//     (CheckLLM, CheckDirectoryAccess, CheckSystemDeps) to display health.
package preflight
