// Package file stores lidarqc settings as a TOML file, by default
// ~/.lidarqc/config.toml. Missing keys take their defaults.
package file
