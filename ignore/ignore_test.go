package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ShouldIgnorePath_SegmentEquality(t *testing.T) {
	patterns := NewPatternSet("node_modules", "dist")

	assert.True(t, ShouldIgnorePath("node_modules/lib/index.js", patterns))
	assert.True(t, ShouldIgnorePath("web/dist/app.js", patterns))
	assert.False(t, ShouldIgnorePath("src/distance.py", patterns))
	assert.False(t, ShouldIgnorePath("src/app.py", patterns))
}

func Test_ShouldIgnorePath_HiddenSegmentsWithDottedPattern(t *testing.T) {
	withDot := NewPatternSet(".git")
	withoutDot := NewPatternSet("node_modules")

	assert.True(t, ShouldIgnorePath(".github/workflows/ci.yml", withDot))
	assert.True(t, ShouldIgnorePath("src/.hidden.py", withDot))
	assert.False(t, ShouldIgnorePath(".github/workflows/ci.yml", withoutDot))
}

func Test_ShouldIgnorePath_RootIsNeverIgnored(t *testing.T) {
	assert.False(t, ShouldIgnorePath(".", DefaultPatternSet()))
}

func Test_LoadPatternFile_SkipsCommentsAndBlankLines(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, ".gitignore")
	require.NoError(t, os.WriteFile(filePath, []byte("# deps\nnode_modules\n\n  build/  \n/tmp\ndocs/api\n"), 0644))

	assert.Equal(t, []string{"node_modules", "build"}, LoadPatternFile(filePath))
}

func Test_LoadPatternFile_MissingFile(t *testing.T) {
	assert.Empty(t, LoadPatternFile(filepath.Join(t.TempDir(), "missing")))
}

func Test_LoadPatternFile_UnreadableIsEmpty(t *testing.T) {
	// A directory in place of the file cannot be scanned.
	tmpDir := t.TempDir()
	dirPath := filepath.Join(tmpDir, ".gitignore")
	require.NoError(t, os.Mkdir(dirPath, 0755))

	assert.Empty(t, LoadPatternFile(dirPath))
}

func Test_Matcher_DefaultPatterns(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	assert.True(t, matcher.Match("node_modules/express/index.js", false))
	assert.True(t, matcher.Match(".git/config", false))
	assert.True(t, matcher.Match("pkg/__pycache__", true))
	assert.False(t, matcher.Match("main.go", false))
	assert.False(t, matcher.Match(".", true))
}

func Test_Matcher_GitignoreLiteralAndGlob(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".gitignore"), []byte("generated\n*.gen.py\nsecret/\n"), 0644))

	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	assert.True(t, matcher.Match("src/generated/models.py", false))
	assert.True(t, matcher.Match("models.gen.py", false))
	assert.True(t, matcher.Match("secret", true))
	assert.False(t, matcher.Match("src/models.py", false))
}

func Test_Matcher_RootAnchoredLineOnlyMatchesAtRoot(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".gitignore"), []byte("/lib\n"), 0644))

	m := NewMatcher(MatcherOptions{RootDir: tmpDir})

	assert.True(t, m.Match("lib", true))
	assert.False(t, m.Match("src/lib", true))
	assert.False(t, m.Match("src/lib/x.py", false))
}

func Test_Matcher_Claudeignore(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".claudeignore"), []byte("fixtures\n"), 0644))

	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	assert.True(t, matcher.Match("tests/fixtures/sample.py", false))
}

func Test_Matcher_CustomPatterns(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{
		RootDir:        tmpDir,
		CustomPatterns: []string{"*.min.js", "docs/**"},
	})

	assert.True(t, matcher.Match("web/vendor.min.js", false))
	assert.True(t, matcher.Match("docs/api/index.md", false))
	assert.False(t, matcher.Match("web/app.js", false))
}

func Test_Matcher_ShouldIgnoreDirAbsolute(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	assert.True(t, matcher.ShouldIgnoreDir(filepath.Join(tmpDir, "node_modules")))
	assert.False(t, matcher.ShouldIgnoreDir(filepath.Join(tmpDir, "src")))
	assert.False(t, matcher.ShouldIgnoreDir(tmpDir))
}

func Test_Matcher_IsFileTooLarge(t *testing.T) {
	matcher := NewMatcher(MatcherOptions{RootDir: t.TempDir(), MaxFileSizeBytes: 100})

	assert.False(t, matcher.IsFileTooLarge(100))
	assert.True(t, matcher.IsFileTooLarge(101))
}

func Test_Matcher_DefaultMaxFileSize(t *testing.T) {
	matcher := NewMatcher(MatcherOptions{RootDir: t.TempDir()})

	assert.False(t, matcher.IsFileTooLarge(DefaultMaxFileSizeBytes))
	assert.True(t, matcher.IsFileTooLarge(DefaultMaxFileSizeBytes+1))
}

func Test_Matcher_Reload(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})
	assert.False(t, matcher.Match("scratch/a.py", false))

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".gitignore"), []byte("scratch\n"), 0644))
	matcher.Reload()

	assert.True(t, matcher.Match("scratch/a.py", false))
	assert.True(t, matcher.Patterns().Contains("scratch"))
}

func Test_IsIgnoreFile(t *testing.T) {
	assert.True(t, IsIgnoreFile("/repo/.gitignore"))
	assert.True(t, IsIgnoreFile(".claudeignore"))
	assert.False(t, IsIgnoreFile("/repo/main.go"))
}
