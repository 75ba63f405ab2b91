package common

import (
	"bytes"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/mitchellh/go-homedir"
)

var (
	CHECKMATE_BASE_DIR, _ = homedir.Expand("~/.checkmate")

	//NonSourceExtensions are media, archives, fonts and compiled artefacts that are never pattern scanned
	NonSourceExtensions = appendMaps(
		makeMap("png,jpg,jpeg,gif,bmp,ico,webp,tif,tiff,psd"),
		makeMap("zip,tar,gz,tgz,bz2,xz,7z,rar,jar,war,ear,whl,gem,nupkg"),
		makeMap("woff,woff2,ttf,otf,eot"),
		makeMap("mp3,mp4,wav,avi,mov,webm,ogg,flac,mkv,m4a"),
		makeMap("pdf,exe,dll,so,dylib,class,pyc,pyo,o,a,wasm,bin,dat"),
	)

	//DocumentationExtensions are documentation and data files that are only checked for leaked credentials
	DocumentationExtensions = makeMap("md,markdown,txt,rst,adoc,json,yaml,yml,toml,xml,csv,ini,cfg,conf,lock")

	//SourceExtensions are the file types a repository fetcher considers worth retrieving
	SourceExtensions = appendMaps(
		makeMap("js,mjs,cjs,jsx,ts,tsx,vue,svelte,py,rb,php,pl,pm,sh,bash,zsh,ps1,bat,cmd"),
		makeMap("go,rs,java,kt,kts,scala,groovy,c,h,cc,cpp,hpp,cs,swift,m,dart,lua,r,sol"),
		makeMap("html,htm,svg,sql,env,gradle,tf"),
		DocumentationExtensions,
	)

	//SourceFileNames are extension-less files worth retrieving
	SourceFileNames = map[string]struct{}{
		"Dockerfile": {}, "Makefile": {}, "Rakefile": {}, "Gemfile": {}, "Procfile": {},
		"Jenkinsfile": {}, ".npmrc": {}, ".env": {}, "setup.cfg": {},
	}

	documentationNames = map[string]struct{}{
		"readme": {}, "license": {}, "changelog": {}, "contributing": {}, "authors": {}, "notice": {},
	}

	testFileGlobs = compileGlobs(
		"**/*_test.go",
		"**/*.test.*",
		"**/*.spec.*",
		"**/test_*.py",
		"**/*_test.py",
		"**/conftest.py",
		"**/test/**",
		"**/tests/**",
		"**/__tests__/**",
		"**/__mocks__/**",
		"**/testdata/**",
		"**/fixtures/**",
		"**/spec/**",
	)
)

//CommentStyle is a bit set describing the line comment syntaxes a file type supports
type CommentStyle int

const (
	//SlashComments covers //, /* and * continuation lines
	SlashComments CommentStyle = 1 << iota
	//HashComments covers # and triple-quoted docstrings
	HashComments
	//MarkupComments covers <!--
	MarkupComments
	//DashComments covers --
	DashComments
)

var commentStyles = func() map[string]CommentStyle {
	styles := make(map[string]CommentStyle)
	for ext := range makeMap("js,mjs,cjs,jsx,ts,tsx,go,java,kt,kts,scala,groovy,c,h,cc,cpp,hpp,cs,swift,m,dart,rs,sol,gradle") {
		styles[ext] = SlashComments
	}
	for ext := range makeMap("py,rb,sh,bash,zsh,pl,pm,r,ps1,yaml,yml,toml,tf,env,cfg,conf,ini") {
		styles[ext] = HashComments
	}
	for ext := range makeMap("html,htm,xml,svg,md,markdown,vue,svelte") {
		styles[ext] = MarkupComments | SlashComments
	}
	styles[".php"] = SlashComments | HashComments
	styles[".sql"] = DashComments | SlashComments
	styles[".lua"] = DashComments
	return styles
}()

//CommentStyleFor returns the comment syntaxes for a file, defaulting to slash and hash styles when the extension is unknown
func CommentStyleFor(path string) CommentStyle {
	if style, present := commentStyles[strings.ToLower(filepath.Ext(path))]; present {
		return style
	}
	return SlashComments | HashComments
}

//IsCommentLine reports whether the line, in the context of the file's type, starts with a comment marker
func IsCommentLine(path, line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	style := CommentStyleFor(path)
	if style&SlashComments != 0 &&
		(strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/*") || strings.HasPrefix(trimmed, "*")) {
		return true
	}
	if style&HashComments != 0 &&
		(strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, `"""`) || strings.HasPrefix(trimmed, "'''")) {
		return true
	}
	if style&MarkupComments != 0 && strings.HasPrefix(trimmed, "<!--") {
		return true
	}
	if style&DashComments != 0 && strings.HasPrefix(trimmed, "--") {
		return true
	}
	return false
}

//IsBinary reports whether content looks binary, i.e. contains a NUL byte
func IsBinary(content []byte) bool {
	return bytes.IndexByte(content, 0) >= 0
}

//IsNonSourceFile indicates whether the path names media, an archive, a font or a compiled artefact
func IsNonSourceFile(path string) bool {
	_, present := NonSourceExtensions[strings.ToLower(filepath.Ext(path))]
	return present
}

//IsDocumentationFile indicates whether the path names documentation or a data file
func IsDocumentationFile(path string) bool {
	extension := strings.ToLower(filepath.Ext(path))
	if _, present := DocumentationExtensions[extension]; present {
		return true
	}
	baseName := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	_, present := documentationNames[baseName]
	return present && extension == ""
}

//IsSourceLike indicates whether a repository fetcher should retrieve the file at path
func IsSourceLike(p string) bool {
	if _, present := SourceFileNames[path.Base(p)]; present {
		return true
	}
	_, present := SourceExtensions[strings.ToLower(path.Ext(p))]
	return present
}

//IsTestFile indicates whether the path follows a common test-file naming convention
func IsTestFile(p string) bool {
	normalised := "/" + strings.TrimPrefix(filepath.ToSlash(p), "/")
	for _, g := range testFileGlobs {
		if g.Match(normalised) {
			return true
		}
	}
	return false
}

func compileGlobs(patterns ...string) []glob.Glob {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, glob.MustCompile(p, '/'))
	}
	return out
}

func appendMaps(maps ...map[string]struct{}) map[string]struct{} {
	result := make(map[string]struct{})
	for _, m := range maps {
		for k := range m {
			result[k] = struct{}{}
		}
	}
	return result
}

func makeMap(elements string) map[string]struct{} {
	result := make(map[string]struct{})
	for _, s := range strings.Split(elements, ",") {
		result["."+s] = struct{}{}
	}
	return result
}
