package safematch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileRejectsUnsafePatterns(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
	}{
		{name: "classic nested plus", pattern: "(a+)+"},
		{name: "nested star", pattern: "(a*)*"},
		{name: "star over plus", pattern: "(a+)*"},
		{name: "doubly wrapped", pattern: "((a+))+"},
		{name: "nested with prefix", pattern: "foo(bar+)+baz"},
		{name: "repeat over quantified group", pattern: "(a+){2,10}"},
		{name: "huge repetition bound", pattern: "a{1,100000}"},
		{name: "overlong pattern", pattern: strings.Repeat("a", 2000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.pattern, false)
			require.Error(t, err)
			var ue *UnsafePatternError
			assert.ErrorAs(t, err, &ue)
		})
	}
}

func TestCompileAcceptsSafePatterns(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
	}{
		{name: "plain literal", pattern: "foo"},
		{name: "alternation group", pattern: "(foo|bar)"},
		{name: "quantified alternation", pattern: "(foo|bar)+"},
		{name: "char class star", pattern: "[a-z]*"},
		{name: "anchored", pattern: "^func \\w+\\("},
		{name: "bounded repeat", pattern: "a{1,10}"},
		{name: "sequential groups", pattern: "(a+)(b+)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re, err := Compile(tt.pattern, false)
			require.NoError(t, err)
			require.NotNil(t, re)
		})
	}
}

func TestCompileCaseInsensitive(t *testing.T) {
	re, err := Compile("foo", true)
	require.NoError(t, err)
	assert.True(t, re.MatchString("FOO()"))
}

func TestCompileInvalidSyntax(t *testing.T) {
	_, err := Compile("([unclosed", false)
	require.Error(t, err)
	var ue *UnsafePatternError
	assert.ErrorAs(t, err, &ue)
}

func TestCompileLiteral(t *testing.T) {
	re := CompileLiteral("a.b*c", false, false)
	assert.True(t, re.MatchString("xa.b*cy"))
	assert.False(t, re.MatchString("aXbYc"))

	re = CompileLiteral("Foo", true, false)
	assert.True(t, re.MatchString("calling foo() here"))

	re = CompileLiteral("foo", false, true)
	assert.True(t, re.MatchString("call foo now"))
	assert.False(t, re.MatchString("callfoobar"))
}
