package ignore

// defaultExcludeDirs are directory names skipped anywhere in the tree.
var defaultExcludeDirs = []string{
	".git",
	".svn",
	".hg",
	"node_modules",
	"vendor",
	"__pycache__",
	"dist",
	"build",
	"target",
	"out",
	".idea",
	".vscode",
	".cache",
	".next",
	".nuxt",
	"coverage",
	".venv",
	"venv",
}

// defaultExcludeFiles are glob patterns for files never indexed: lockfiles,
// minified bundles, and binary or media extensions the NUL-byte sniff would
// catch anyway but that are cheaper to drop by name.
var defaultExcludeFiles = []string{
	"*.min.js",
	"*.min.css",
	"*.map",
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"go.sum",
	"Cargo.lock",
	"*.png",
	"*.jpg",
	"*.jpeg",
	"*.gif",
	"*.bmp",
	"*.ico",
	"*.webp",
	"*.mp3",
	"*.mp4",
	"*.avi",
	"*.mov",
	"*.pdf",
	"*.zip",
	"*.tar",
	"*.gz",
	"*.bz2",
	"*.7z",
	"*.jar",
	"*.war",
	"*.class",
	"*.o",
	"*.a",
	"*.so",
	"*.dylib",
	"*.dll",
	"*.exe",
	"*.bin",
	"*.wasm",
	"*.woff",
	"*.woff2",
	"*.ttf",
	"*.eot",
	"*.db",
	"*.sqlite",
}

// sensitiveFilePatterns are never indexed regardless of other configuration.
var sensitiveFilePatterns = []string{
	".env",
	".env.*",
	"*.pem",
	"*.key",
	"*.p12",
	"*.pfx",
	"*credentials*",
	"*secrets*",
	".netrc",
	".npmrc",
	".pypirc",
	"id_rsa",
	"id_dsa",
	"id_ecdsa",
	"id_ed25519",
}
