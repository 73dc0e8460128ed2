// Package config loads the guard layer's settings.
//
// Settings come from, in increasing precedence: built-in defaults, a YAML
// file, and CHATGUARD_* environment variables. The YAML file may reference
// environment variables as ${VAR} (a missing variable is an error) and
// secrets as secretref:<provider>:<ref> in the auth section.
//
// Watcher reloads the file when it changes so the write guard and
// sanitizer can be rebuilt without a restart.
package config
