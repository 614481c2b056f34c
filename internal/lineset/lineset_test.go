package lineset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsWholeLineOnly(t *testing.T) {
	content := "alpha ALL=(ALL) NOPASSWD: /usr/sbin/reboot\n"
	assert.True(t, Contains(content, "alpha ALL=(ALL) NOPASSWD: /usr/sbin/reboot"))
	assert.False(t, Contains(content, "alpha ALL=(ALL) NOPASSWD: /usr/sbin/re"))
	assert.False(t, Contains(content, "reboot"))
}

func TestContainsIgnoresSurroundingWhitespace(t *testing.T) {
	assert.True(t, Contains("  entry one  \n", "entry one"))
}

func TestMissingPreservesOrder(t *testing.T) {
	content := "b\n"
	missing := Missing(content, []string{"c", "a", "b"})
	assert.Equal(t, []string{"c", "a"}, missing)
}

func TestMergeNoChange(t *testing.T) {
	content := "# section\na\nb\n"
	merged, changed := Merge(content, "# section", []string{"a", "b"})
	assert.False(t, changed)
	assert.Equal(t, content, merged)
}

func TestMergeAppendsSectionOnce(t *testing.T) {
	merged, changed := Merge("", "# managed", []string{"a"})
	assert.True(t, changed)

	merged2, changed2 := Merge(merged, "# managed", []string{"b"})
	assert.True(t, changed2)
	assert.Equal(t, 1, strings.Count(merged2, "# managed"))
	assert.Contains(t, merged2, "a\n")
	assert.Contains(t, merged2, "b\n")
}

func TestMergeIdempotentUnion(t *testing.T) {
	merged, _ := Merge("", "# managed", []string{"toolA", "toolB"})
	merged, _ = Merge(merged, "# managed", []string{"toolA", "toolC"})

	for _, entry := range []string{"toolA", "toolB", "toolC"} {
		assert.Equal(t, 1, strings.Count(merged, entry), entry)
	}
}

func TestMergeKeepsExistingContent(t *testing.T) {
	content := "keep this line\n"
	merged, changed := Merge(content, "# managed", []string{"new"})
	assert.True(t, changed)
	assert.True(t, strings.HasPrefix(merged, content))
	assert.True(t, strings.HasSuffix(merged, "new\n"))
}

func TestMergeAddsTrailingNewlineToExistingContent(t *testing.T) {
	merged, changed := Merge("no newline at end", "", []string{"entry"})
	assert.True(t, changed)
	assert.Contains(t, merged, "no newline at end\nentry\n")
}
