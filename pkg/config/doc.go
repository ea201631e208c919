// Package config loads scriptd server settings.
//
// Settings come from four layers, later ones winning:
//
//  1. Built-in defaults (Default)
//  2. A YAML or JSON file (LoadFromFile)
//  3. SCRIPTD_* environment variables (ApplyEnv)
//  4. Command-line flags, applied by the CLI
//
// A minimal YAML file:
//
//	port: 8080
//	documentRoot: webroot
//	sessionTimeout: 10m
//	routes:
//	  /hello: HelloWorker
//
// ToOptions turns the result into server.Options.
package config
