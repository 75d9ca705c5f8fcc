package config

// Version is the begriff tool version. Can be overridden at build time
// using: -ldflags "-X github.com/begriff-lang/begriff/internal/config.Version=..."
var Version = "0.3.0"

const ManifestFileName = "begriff.yaml"

// ManifestFileNames are all recognized workspace manifest filenames.
var ManifestFileNames = []string{"begriff.yaml", "begriff.yml"}

// EnvDebugInfer enables candidate-search trace output when set to "1".
const EnvDebugInfer = "BEGRIFF_DEBUG_INFER"

// IndexFileName is the SQLite index written by `begriff index`,
// relative to the workspace root.
const IndexFileName = "begriff.db"

// DefaultPackageName is assumed for manifests that omit `package:`.
const DefaultPackageName = "main"

// Reserved method-dispatch separator in materialized bindings
// (e.g. "Ord.lessThan" for a concept default).
const MethodSeparator = "."
