// Package file loads kernel settings from a TOML file overlaid with
// CHATCOPILOT_* environment variables.
//
// Adapters:
//   - SettingsLoader: reads ~/.chatcopilot/config.toml and the environment
//   - SaveKernelSettings: writes a settings file with 0600 permissions
package file
