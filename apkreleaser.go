/*
Package apkreleaser builds and publishes the Android APKs of a React Native
monorepo.

A release bumps the Gradle version, builds one APK per variant, creates a
GitHub release, uploads every APK to it and adds an entry to the changelog.

# Variants

  - main: the default build, also copied to the "latest" alias
  - 32bit: restricted to 32-bit ABIs, without voice typing
  - vosk: with the Vosk voice typing module

# Configuration

apkreleaser reads an optional YAML file (.apkreleaser.yaml). Every field has a
default, so a release of the default project needs no file at all.

# Usage

	apkreleaser release                      # Pre-release of all variants
	apkreleaser release --type full          # Stable release
	apkreleaser release --release-name vosk  # Single variant
	apkreleaser build                        # Bump and build, publish nothing
	apkreleaser changelog --version 3.2.1    # Preview the changelog entry
*/
package apkreleaser

// Version is the current version of apkreleaser
const Version = "1.0.0"

// BuildDate is set at build time
var BuildDate string

// GitCommit is set at build time
var GitCommit string
