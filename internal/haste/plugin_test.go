package haste

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultHasteImpl_FindsProvidesModuleDeclaration(t *testing.T) {
	t.Parallel()

	impl := defaultHasteImpl{}
	id := impl.GetHasteName("a.js", []byte("/**\n * @providesModule Foo\n */\nconst a = 1;"))
	assert.Equal(t, "Foo", id)
}

func TestDefaultHasteImpl_NoDeclaration_ReturnsEmpty(t *testing.T) {
	t.Parallel()

	impl := defaultHasteImpl{}
	id := impl.GetHasteName("a.js", []byte("const a = 1;"))
	assert.Empty(t, id)
}

func TestDefaultHasteImpl_OnlyScansFirst30Lines(t *testing.T) {
	t.Parallel()

	impl := defaultHasteImpl{}
	var body string
	for i := 0; i < 40; i++ {
		body += "// filler\n"
	}
	body += "// @providesModule TooLate\n"

	id := impl.GetHasteName("a.js", []byte(body))
	assert.Empty(t, id)
}

func TestDefaultDependencyExtractor_ExtractsRequireAndImportSpecifiers(t *testing.T) {
	t.Parallel()

	extr := defaultDependencyExtractor{}
	code := []byte(`
		const a = require('Foo');
		import Bar from "Bar";
		require("Foo");
	`)
	deps := extr.Extract(code, "a.js", extr)
	assert.Equal(t, []string{"Foo", "Bar"}, deps)
}

func TestDefaultDependencyExtractor_NoMatches_ReturnsEmpty(t *testing.T) {
	t.Parallel()

	extr := defaultDependencyExtractor{}
	deps := extr.Extract([]byte("const a = 1;"), "a.js", extr)
	assert.Empty(t, deps)
}
