// Package config provides configuration structures and utilities for apkscan.
// It defines decompiler settings, analysis limits, signature table overrides
// and report preferences, and loads the optional .apkscan YAML file.
package config
