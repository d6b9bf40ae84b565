// Package language derives a language tag for an indexed file from its
// extension or well-known filename.
package language

import (
	"path/filepath"
	"strings"
)

// extensionMap maps file extensions (including the dot) to language tags.
var extensionMap = map[string]string{
	// Go
	".go": "go",

	// JavaScript/TypeScript
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".cjs": "javascript",
	".ts":  "typescript",
	".tsx": "typescript",

	// Python
	".py":  "python",
	".pyw": "python",
	".pyi": "python",

	// Web
	".html":   "html",
	".htm":    "html",
	".css":    "css",
	".scss":   "scss",
	".sass":   "sass",
	".less":   "less",
	".vue":    "vue",
	".svelte": "svelte",

	// Data/Config
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".toml": "toml",
	".xml":  "xml",
	".ini":  "ini",
	".env":  "env",

	// Documentation
	".md":       "markdown",
	".mdx":      "markdown",
	".markdown": "markdown",
	".rst":      "rst",
	".txt":      "text",

	// Shell
	".sh":   "shell",
	".bash": "shell",
	".zsh":  "shell",
	".fish": "fish",
	".ps1":  "powershell",

	// Ruby
	".rb":   "ruby",
	".rake": "ruby",
	".erb":  "erb",

	// Rust
	".rs": "rust",

	// Java/Kotlin
	".java": "java",
	".kt":   "kotlin",
	".kts":  "kotlin",

	// C/C++
	".c":   "c",
	".h":   "c",
	".cpp": "cpp",
	".hpp": "cpp",
	".cc":  "cpp",
	".cxx": "cpp",

	// C#
	".cs": "csharp",

	// Swift
	".swift": "swift",

	// PHP
	".php": "php",

	// Scala
	".scala": "scala",

	// Elixir/Erlang
	".ex":  "elixir",
	".exs": "elixir",
	".erl": "erlang",

	// Haskell
	".hs": "haskell",

	// Lua
	".lua": "lua",

	// Zig
	".zig": "zig",

	// Dart
	".dart": "dart",

	// SQL
	".sql": "sql",

	// Misc
	".graphql": "graphql",
	".gql":     "graphql",
	".proto":   "protobuf",
	".tf":      "terraform",
	".tfvars":  "terraform",
}

// filenameMap maps well-known extensionless filenames to language tags.
var filenameMap = map[string]string{
	"Dockerfile":  "dockerfile",
	"Makefile":    "makefile",
	"makefile":    "makefile",
	"GNUmakefile": "makefile",
	"Gemfile":     "ruby",
	"Rakefile":    "ruby",
}

// Detect returns the language tag for a file path, or "" when the
// extension is not recognized.
func Detect(path string) string {
	base := filepath.Base(path)
	if lang, ok := filenameMap[base]; ok {
		return lang
	}

	ext := strings.ToLower(filepath.Ext(base))
	if lang, ok := extensionMap[ext]; ok {
		return lang
	}

	return ""
}
