// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data under the chronicle home directory.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage with change watching
//   - PromptStore: user-editable classifier prompt templates
package file
