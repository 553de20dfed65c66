// Package domain contains the state trees edited by baseline-manager.
//
// This package is the innermost layer of the application. It knows nothing
// about storage, logging or the command line, only about the shape of the
// two persisted states and the rules that hold inside them.
//
// # Entities
//
//   - [ConfigurationState]: output options, provider profiles, listors and baselines
//   - [UIState]: flat editor preferences (theme, locks, export and delete behaviour)
//
// # Design Principles
//
// State trees are:
//   - Value types whose Clone method returns a copy sharing no mutable memory
//   - Created from package-private templates that are never handed out
//   - Validated by struct tags (see [Validate]) rather than hand-written checks
package domain
